package web

import (
	"net/http"

	"github.com/KaramelBytes/geoportal/internal/geo"
)

const geoUnavailable = "The map server could not be reached."

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Layers []geo.Layer
		Notice string
	}{}
	if s.Layers == nil {
		data.Notice = geoUnavailable
	} else if layers, err := s.Layers.ListLayers(r.Context()); err != nil {
		s.Log.Warn("list layers failed", "err", err)
		data.Notice = geoUnavailable
	} else {
		data.Layers = layers
	}
	s.render(w, r, http.StatusOK, "datasets", data)
}

func (s *Server) handleViewDataset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data := struct {
		Name          string
		Workspace     string
		WMSURL        string
		LayerFullName string
		Columns       []string
		Rows          [][]string
		Notice        string
	}{Name: name}
	if s.Layers == nil {
		data.Notice = geoUnavailable
		s.render(w, r, http.StatusOK, "view_dataset", data)
		return
	}
	data.Workspace = s.Layers.Workspace()
	data.WMSURL = s.Layers.WMSURL()
	data.LayerFullName = s.Layers.QualifiedName(name)
	sample, err := s.Layers.Features(r.Context(), name)
	if err != nil {
		s.Log.Warn("fetch features failed", "layer", name, "err", err)
		data.Notice = geoUnavailable
	} else {
		data.Columns = sample.Columns
		data.Rows = sample.Rows
	}
	s.render(w, r, http.StatusOK, "view_dataset", data)
}

func (s *Server) handleViewMetadata(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data := struct {
		geo.Metadata
		Notice string
	}{Metadata: geo.DefaultMetadata(name)}
	if s.Layers == nil {
		data.Notice = geoUnavailable
	} else {
		md, err := s.Layers.Metadata(r.Context(), name)
		if err != nil {
			s.Log.Warn("fetch metadata failed", "layer", name, "err", err)
			data.Notice = geoUnavailable
		}
		data.Metadata = md
	}
	s.render(w, r, http.StatusOK, "view_metadata", data)
}
