package queuedash

import (
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"
)

//go:embed ui/index.html
var uiFS embed.FS

// Gateway exposes read and control operations plus a live event feed over
// the queues it was constructed with. It holds read-only references to the
// engine handles for its whole lifetime and owns no queue state itself.
type Gateway struct {
	cfg      *Config
	log      *zap.Logger
	registry *Registry
	guard    *guard
	sources  []EventSource
	metrics  *statsExporter

	// asset is the dashboard page, loaded once at construction.
	asset []byte
}

// New builds a gateway over the supplied queue handles. The registry is
// immutable afterwards; there is no later registration.
func New(cfg *Config, log *zap.Logger, queues ...Queue) (*Gateway, error) {
	const op = errors.Op("gateway_new")

	if cfg == nil {
		cfg = &Config{}
	}
	cfg.InitDefaults()

	if log == nil {
		log = zap.NewNop()
	}

	registry, err := NewRegistry(queues)
	if err != nil {
		return nil, errors.E(op, err)
	}

	asset, err := uiFS.ReadFile("ui/index.html")
	if err != nil {
		return nil, errors.E(op, err)
	}

	return &Gateway{
		cfg:      cfg,
		log:      log,
		registry: registry,
		guard: &guard{
			readOnly: cfg.ReadOnly,
			auth:     cfg.Authorize,
		},
		sources: cfg.Events,
		metrics: newStatsExporter(),
		asset:   asset,
	}, nil
}

// Handler returns the full HTTP surface mounted at the configured base path.
func (g *Gateway) Handler() http.Handler {
	if g.cfg.BasePath == "/" {
		return g.router()
	}

	root := chi.NewRouter()
	root.Mount(g.cfg.BasePath, g.router())
	return root
}

func (g *Gateway) router() chi.Router {
	r := chi.NewRouter()
	r.Use(g.countRequests)

	r.Get("/", g.handleIndex)

	r.Route("/api", func(r chi.Router) {
		r.Get("/queues", g.handleListQueues)
		r.Get("/events", g.handleEvents)

		r.Route("/queues/{name}", func(r chi.Router) {
			r.Get("/jobs", g.handleListJobs)
			r.Get("/job/{id}", g.handleGetJob)
			r.Get("/workers", g.handleWorkers)
			r.Get("/schedulers", g.handleSchedulers)
			r.Get("/dlq", g.handleDeadLetter)
			r.Get("/metrics", g.handleMetrics)
			r.Get("/search", g.handleSearch)

			r.Post("/pause", g.handlePause)
			r.Post("/resume", g.handleResume)
			r.Post("/obliterate", g.handleObliterate)
			r.Post("/drain", g.handleDrain)
			r.Post("/retry-all", g.handleRetryAll)
			r.Post("/clean", g.handleClean)

			r.Delete("/jobs/{id}", g.handleRemoveJob)
			r.Post("/jobs/{id}/retry", g.handleRetryJob)
			r.Post("/jobs/{id}/promote", g.handlePromoteJob)
		})
	})

	return r
}

// MetricsCollector exposes the gateway's operational counters for
// registration with a prometheus registry.
func (g *Gateway) MetricsCollector() prometheus.Collector {
	return g.metrics
}

func (g *Gateway) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(g.asset)
}

func (g *Gateway) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.metrics.CountRequest()
		next.ServeHTTP(w, r)
	})
}

// lookup resolves the {name} route parameter, answering 404 on a miss.
func (g *Gateway) lookup(w http.ResponseWriter, r *http.Request) (Queue, bool) {
	name := chi.URLParam(r, "name")

	q, ok := g.registry.Lookup(name)
	if !ok {
		g.queueNotFound(w, name)
		return nil, false
	}

	return q, true
}
