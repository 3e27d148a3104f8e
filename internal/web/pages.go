package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/KaramelBytes/geoportal/internal/store"
	"github.com/KaramelBytes/geoportal/internal/uploads"
)

const recentUploads = 6

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := struct{ Recent []store.Upload }{}
	if s.Recent != nil {
		recent, err := s.Recent.RecentUploads(r.Context(), recentUploads)
		if err != nil {
			s.Log.Warn("recent uploads failed", "err", err)
		}
		data.Recent = recent
	}
	s.render(w, r, http.StatusOK, "home", data)
}

func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "upload", nil)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.Uploads == nil {
		http.Error(w, "uploads are disabled", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		s.flash(r, "The upload could not be read.")
		http.Redirect(w, r, "/upload/", http.StatusSeeOther)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.flash(r, "No file uploaded.")
		http.Redirect(w, r, "/upload/", http.StatusSeeOther)
		return
	}
	defer file.Close()

	_, err = s.Uploads.Save(r.Context(), uploads.Input{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Filename:    hdr.Filename,
		UploadedBy:  currentUser(r),
		Body:        file,
	})
	switch {
	case errors.Is(err, uploads.ErrNoFile):
		s.flash(r, "No file uploaded.")
		http.Redirect(w, r, "/upload/", http.StatusSeeOther)
		return
	case errors.Is(err, uploads.ErrTooLarge):
		s.flash(r, "The file is too large.")
		http.Redirect(w, r, "/upload/", http.StatusSeeOther)
		return
	case err != nil:
		s.Log.Error("save upload failed", "err", err)
		s.flash(r, "The file could not be saved.")
		http.Redirect(w, r, "/upload/", http.StatusSeeOther)
		return
	}
	s.flash(r, "File uploaded successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
