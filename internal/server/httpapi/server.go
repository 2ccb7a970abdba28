// Package httpapi exposes the memory wall over HTTP: history, upload,
// the real-time WebSocket feed and operational endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/logging"
	"github.com/dmitrijs2005/heartwall/internal/server/fanout"
	"github.com/dmitrijs2005/heartwall/internal/server/metrics"
	"github.com/dmitrijs2005/heartwall/internal/server/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MemoryService is the storage orchestrator as seen by the handlers.
type MemoryService interface {
	Create(ctx context.Context, sub *models.Submission) (*models.MemoryRecord, error)
	List(ctx context.Context) ([]*models.MemoryRecord, error)
	ListPage(ctx context.Context, before time.Time, beforeID int64, limit int) ([]*models.MemoryRecord, error)
}

type Options struct {
	Addr            string
	CORSOrigins     []string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	// BlobDir, when set, is served read-only under /blobs.
	BlobDir string
	// TLSDomains switches the listener to HTTPS with ACME certificates.
	TLSDomains  []string
	TLSCacheDir string
}

type Server struct {
	opts    Options
	router  *gin.Engine
	service MemoryService
	hub     *fanout.Hub
	logger  logging.Logger
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func New(opts Options, service MemoryService, hub *fanout.Hub, logger logging.Logger) *Server {
	metrics.RegisterMetrics()
	logger = logger.With("module", "http")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(RequestMetricsMiddleware())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{opts: opts, router: r, service: service, hub: hub, logger: logger}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/memories", s.listMemories)
	s.router.POST("/upload", s.upload)

	ws := fanout.NewHandler(s.hub, originChecker(s.opts.CORSOrigins))
	s.router.GET("/ws", gin.WrapH(ws))

	if s.opts.BlobDir != "" {
		s.router.StaticFS("/blobs", gin.Dir(s.opts.BlobDir, false))
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listen := srv.ListenAndServe
	if len(s.opts.TLSDomains) > 0 {
		srv.TLSConfig = certManager(s.opts.TLSDomains, s.opts.TLSCacheDir).TLSConfig()
		listen = func() error { return srv.ListenAndServeTLS("", "") }
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.opts.Addr, "tls", len(s.opts.TLSDomains) > 0)
		if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info(ctx, "http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if allowsAll(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = normalizeOrigins(origins)
	}
	return cfg
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:5173"}
	}
	return origins
}

func allowsAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// originChecker applies the CORS allow-list to WebSocket upgrades.
// Requests without an Origin header (non-browser clients) are accepted.
func originChecker(origins []string) func(r *http.Request) bool {
	if allowsAll(origins) {
		return nil
	}
	allowed := make(map[string]struct{})
	for _, o := range normalizeOrigins(origins) {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
