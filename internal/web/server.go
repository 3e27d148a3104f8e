// Package web serves the portal's pages and the chat relay.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/KaramelBytes/geoportal/internal/ai"
	"github.com/KaramelBytes/geoportal/internal/geo"
	"github.com/KaramelBytes/geoportal/internal/pipeline"
	"github.com/KaramelBytes/geoportal/internal/session"
	"github.com/KaramelBytes/geoportal/internal/store"
	"github.com/KaramelBytes/geoportal/internal/uploads"
)

// Accounts authenticates and registers users.
type Accounts interface {
	CreateUser(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) error
}

// Layers is the GeoServer surface the dataset pages use.
type Layers interface {
	ListLayers(ctx context.Context) ([]geo.Layer, error)
	Features(ctx context.Context, layer string) (*geo.FeatureSample, error)
	Metadata(ctx context.Context, layer string) (geo.Metadata, error)
	Workspace() string
	WMSURL() string
	QualifiedName(layer string) string
}

// Uploader stores files from the upload page.
type Uploader interface {
	Save(ctx context.Context, in uploads.Input) (store.Upload, error)
}

// Deps are the collaborators of the web layer. Nil optional fields disable
// the matching feature.
type Deps struct {
	Log      *slog.Logger
	Sessions *session.Manager
	Pipeline *pipeline.Orchestrator
	Accounts Accounts
	Uploads  Uploader
	Recent   uploads.Lister
	Layers   Layers
	Chat     ai.Generator
	// Health reports the readiness of backing services.
	Health func(ctx context.Context) error

	MaxUploadBytes int64
}

// Server holds parsed templates and dependencies.
type Server struct {
	Deps
	pages map[string]*pageTemplate
}

func NewServer(d Deps) (*Server, error) {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Sessions == nil {
		d.Sessions = session.NewManager(session.NewMemory(), false)
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 32 << 20
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{Deps: d, pages: pages}, nil
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /login/", s.handleLoginForm)
	mux.HandleFunc("POST /login/", s.handleLogin)
	mux.HandleFunc("GET /signup/", s.handleSignupForm)
	mux.HandleFunc("POST /signup/", s.handleSignup)
	mux.HandleFunc("GET /logout/", s.handleLogout)
	mux.HandleFunc("POST /logout/", s.handleLogout)

	mux.Handle("GET /upload/", s.requireLogin(s.handleUploadForm))
	mux.Handle("POST /upload/", s.requireLogin(s.handleUpload))

	mux.Handle("GET /visualize", s.requireLogin(s.handleVisualize))
	mux.Handle("POST /visualize", s.requireLogin(s.handleVisualize))
	mux.Handle("GET /visualize/plot/{column}", s.requireLogin(s.handlePlot))

	mux.Handle("GET /datasets", s.requireLogin(s.handleDatasets))
	mux.Handle("GET /datasets/view/{name}/", s.requireLogin(s.handleViewDataset))
	mux.Handle("GET /datasets/metadata/{name}/", s.requireLogin(s.handleViewMetadata))

	mux.HandleFunc("/geo-chat/", s.handleChat)

	return s.recoverer(s.logRequests(s.withSession(mux)))
}
