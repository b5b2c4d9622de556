package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"ctfdojo/internal/app"
	"ctfdojo/internal/catalog"
	"ctfdojo/internal/game"
	"ctfdojo/internal/telemetry"

	clog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

type Options struct {
	Config   app.ServerConfig
	Catalogs []catalog.Catalog
	Store    app.Store
	Logger   telemetry.Sink
	Log      *clog.Logger
	// Duration is the round length in seconds for every connection.
	Duration int
	Seed     int64
	// Tick is the countdown interval. Zero means one second.
	Tick time.Duration
}

// Server serves the catalogs over REST and runs one game session per
// websocket connection.
type Server struct {
	cfg      app.ServerConfig
	router   *chi.Mux
	catalogs []catalog.Catalog
	store    app.Store
	events   telemetry.Sink
	log      *clog.Logger
	duration int
	seed     int64
	tick     time.Duration
	upgrader websocket.Upgrader
	conns    atomic.Int64
}

func New(opts Options) *Server {
	logger := opts.Log
	if logger == nil {
		logger = clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "ctfdojo-server", ReportTimestamp: true})
	}
	events := opts.Logger
	if events == nil {
		events = telemetry.Nop{}
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = game.DefaultDuration
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second
	}
	origins := opts.Config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	opts.Config.AllowedOrigins = origins

	s := &Server{
		cfg:      opts.Config,
		catalogs: opts.Catalogs,
		store:    opts.Store,
		events:   events,
		log:      logger,
		duration: duration,
		seed:     opts.Seed,
		tick:     tick,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.setupRouter()
	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// The socket lives outside the timeout group; a round outlasts it.
	r.Get("/ws", s.handleWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/healthz", s.handleHealth)
		r.Route("/api/catalogs", func(r chi.Router) {
			r.Get("/", s.handleListCatalogs)
			r.Get("/{id}", s.handleGetCatalog)
		})
	})

	s.router = r
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// sessionSeed gives each connection its own hint sequence. A configured seed
// stays reproducible: the nth connection always gets seed+n.
func (s *Server) sessionSeed() int64 {
	n := s.conns.Add(1)
	if s.seed == 0 {
		return 0
	}
	return s.seed + n
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
