package web

import (
	"bytes"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/KaramelBytes/geoportal/internal/analysis"
	"github.com/KaramelBytes/geoportal/internal/pipeline"
)

type visualizeView struct {
	pipeline.Page
	// PlotJS is PlotData marked safe for the inline JSON script block.
	PlotJS template.JS
}

func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	req := pipeline.Request{SessionID: sessionID(r), TableName: r.URL.Query().Get("table")}
	status := http.StatusOK

	if r.Method == http.MethodPost {
		up, err := s.readUpload(w, r)
		switch {
		case err == nil:
			req.Upload = up
		case errors.Is(err, http.ErrMissingFile):
		default:
			s.Log.Warn("read upload failed", "err", err)
			status = http.StatusBadRequest
		}
	}

	page := s.Pipeline.Build(r.Context(), req)
	if status != http.StatusOK && page.Notice == "" {
		page.Notice = "The uploaded file could not be read."
	}
	s.render(w, r, status, "visualize", visualizeView{Page: page, PlotJS: template.JS(page.PlotData)})
}

// readUpload returns the "csv_file" part of a multipart POST.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*pipeline.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, err
	}
	f, hdr, err := r.FormFile("csv_file")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.MaxUploadBytes {
		return nil, errors.New("file exceeds upload limit")
	}
	return &pipeline.Upload{Filename: hdr.Filename, Data: data}, nil
}

// handlePlot renders one numeric column of the current data as a PNG.
func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	col := r.PathValue("column")
	page := s.Pipeline.Build(r.Context(), pipeline.Request{SessionID: sessionID(r), TableName: r.URL.Query().Get("table")})
	series, ok := page.Series[col]
	if !ok {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := analysis.RenderSeriesPNG(&buf, col, series); err != nil {
		if errors.Is(err, analysis.ErrNoData) {
			http.NotFound(w, r)
			return
		}
		s.Log.Error("render plot failed", "column", col, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
