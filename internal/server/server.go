// Package server exposes the repair engine and the known-good workflow store
// over HTTP.
//
// Routes:
//
//	GET    /healthz                    liveness probe
//	POST   /v1/repair                  repair a workflow without storing it
//	POST   /v1/validate                list invariant violations of a workflow
//	GET    /v1/workflows               list stored workflow IDs
//	PUT    /v1/workflows/{id}          repair and store a workflow
//	GET    /v1/workflows/{id}          fetch a stored workflow
//	GET    /v1/workflows/{id}/dot      stored workflow as Graphviz DOT
//	DELETE /v1/workflows/{id}          remove a stored workflow
//	GET    /v1/catalog                 list catalog node types
//	GET    /v1/catalog/resolve         resolve ?type=&label= against the catalog
//
// A PUT whose repair fails fatally answers 422 with the error code and
// leaves the stored workflow untouched.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flowmend/pkg/idalloc"
	"github.com/matzehuels/flowmend/pkg/observability"
	"github.com/matzehuels/flowmend/pkg/pipeline"
	"github.com/matzehuels/flowmend/pkg/repair"
	"github.com/matzehuels/flowmend/pkg/store"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

// DefaultMaxBodyBytes caps request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 8 << 20

// Options configures a [Server].
type Options struct {
	Runner       *pipeline.Runner
	Store        store.Store
	Catalog      *catalog.Catalog
	Layout       repair.LayoutConfig
	Logger       *log.Logger
	MaxBodyBytes int64
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	runner  *pipeline.Runner
	store   store.Store
	catalog *catalog.Catalog
	layout  repair.LayoutConfig
	logger  *log.Logger
	maxBody int64
	router  chi.Router

	// allocator overrides ID allocation; nil uses the default source.
	allocator *idalloc.Allocator
}

// New creates a server. Missing dependencies fall back to an uncached
// runner, an in-memory store, and the built-in catalog.
func New(opts Options) *Server {
	s := &Server{
		runner:  opts.Runner,
		store:   opts.Store,
		catalog: opts.Catalog,
		layout:  opts.Layout,
		logger:  opts.Logger,
		maxBody: opts.MaxBodyBytes,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, s.logger)
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/repair", s.repairWorkflow)
		r.Post("/validate", s.validateWorkflow)

		r.Get("/workflows", s.listWorkflows)
		r.Route("/workflows/{id}", func(r chi.Router) {
			r.Get("/", s.getWorkflow)
			r.Put("/", s.putWorkflow)
			r.Delete("/", s.deleteWorkflow)
			r.Get("/dot", s.getWorkflowDOT)
		})

		r.Get("/catalog", s.listCatalog)
		r.Get("/catalog/resolve", s.resolveType)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs each request at debug level and reports it to the
// HTTP observability hooks under its route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, ww.Status(), elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully within five seconds.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, readTimeout, writeTimeout time.Duration, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
