package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "login", "signup", "upload", "visualize", "datasets", "view_dataset", "view_metadata"}

type pageTemplate struct{ t *template.Template }

func parsePages() (map[string]*pageTemplate, error) {
	funcs := template.FuncMap{"pathEscape": url.PathEscape}
	out := make(map[string]*pageTemplate, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		out[name] = &pageTemplate{t: t}
	}
	return out, nil
}

// view is the data every page template receives.
type view struct {
	User  string
	Flash string
	Data  any
}

// render executes a page into a buffer first so template errors become a 500
// rather than a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	p, ok := s.pages[name]
	if !ok {
		s.Log.Error("unknown template", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	v := view{User: currentUser(r), Data: data}
	if sid := sessionID(r); sid != "" {
		v.Flash = s.Sessions.PopFlash(r.Context(), sid)
	}
	var buf bytes.Buffer
	if err := p.t.ExecuteTemplate(&buf, "layout", v); err != nil {
		s.Log.Error("render failed", "template", name, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// flash queues a message for the next rendered page.
func (s *Server) flash(r *http.Request, msg string) {
	if sid := sessionID(r); sid != "" {
		if err := s.Sessions.Flash(r.Context(), sid, msg); err != nil {
			s.Log.Warn("flash failed", "err", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
