package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/geoportal/internal/ai"
	"github.com/KaramelBytes/geoportal/internal/geo"
	"github.com/KaramelBytes/geoportal/internal/pipeline"
	"github.com/KaramelBytes/geoportal/internal/session"
	"github.com/KaramelBytes/geoportal/internal/store"
	"github.com/KaramelBytes/geoportal/internal/uploads"
	"github.com/KaramelBytes/geoportal/internal/utils"
	"github.com/KaramelBytes/geoportal/internal/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web portal",
	Example: `  geoportal serve
  geoportal serve --listen :8080 --debug
  GEOPORTAL_SESSION_BACKEND=sqlite geoportal serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("listen") {
			c.ListenAddr = flagListen
		}
		log := newLogger()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := store.New(ctx, c.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := checkDatabase(ctx, st, serveMigrate); err != nil {
			log.Warn("database unavailable, serving without it", "err", err)
		}

		sessions, closeSessions, err := openSessionStore(ctx, c.SessionBackend, c.SessionDSN)
		if err != nil {
			return err
		}
		defer closeSessions.Close()

		if err := utils.EnsureDir(c.UploadDir); err != nil {
			return fmt.Errorf("create upload dir: %w", err)
		}
		maxBytes := int64(c.MaxUploadMB) << 20
		timeout := time.Duration(c.HTTPTimeoutSec) * time.Second

		srv, err := web.NewServer(web.Deps{
			Log:            log,
			Sessions:       session.NewManager(sessions, c.CookieSecure),
			Pipeline:       pipeline.New(sessions, st, log),
			Accounts:       st,
			Uploads:        uploads.NewService(c.UploadDir, maxBytes, st),
			Recent:         st,
			Layers:         newGeoClient(c.GeoServerURL, c.GeoServerWorkspace, c.GeoServerUser, c.GeoServerPassword, c.WFSMaxFeatures, timeout),
			Chat:           ai.NewOllamaClient(c.OllamaHost, c.OllamaModel, timeout),
			Health:         st.Ping,
			MaxUploadBytes: maxBytes,
		})
		if err != nil {
			return err
		}

		httpSrv := &http.Server{
			Addr:              c.ListenAddr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("listening", "addr", c.ListenAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			log.Info("shutting down")
			return httpSrv.Shutdown(shutdownCtx)
		})
		if err := g.Wait(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagListen, "listen", ":8000", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "create portal tables on startup")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openSessionStore picks the session cache backend.
func openSessionStore(ctx context.Context, backend, dsn string) (session.Store, io.Closer, error) {
	switch backend {
	case "", "memory":
		return session.NewMemory(), nopCloser{}, nil
	case "sqlite":
		s, err := session.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q (use memory or sqlite)", backend)
	}
}

type database interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
}

// checkDatabase pings db and, when asked, migrates it. An error leaves the
// portal running; database-backed pages degrade on their own.
func checkDatabase(ctx context.Context, db database, migrate bool) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	if migrate {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func newGeoClient(base, workspace, user, pass string, maxFeatures int, timeout time.Duration) *geo.Client {
	return geo.NewClient(geo.Config{
		BaseURL:     base,
		Workspace:   workspace,
		Username:    user,
		Password:    pass,
		MaxFeatures: maxFeatures,
		Timeout:     timeout,
	})
}
