package formhttp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/formstate/internal/errors"
	"github.com/vango-dev/formstate/pkg/form"
	"github.com/vango-dev/formstate/pkg/middleware"
	"github.com/vango-dev/formstate/pkg/schema"
	"github.com/vango-dev/formstate/pkg/upload"
)

// SubmitFunc receives the values of a valid submission. files holds the
// stored file fields when a Store is configured.
type SubmitFunc func(ctx context.Context, formID string, values form.Values, files map[string]*upload.Stored) error

// Config configures a Server.
type Config struct {
	// Schemas holds the forms to serve. Required.
	Schemas *schema.Registry

	// OnSubmit is called for every valid submission.
	OnSubmit SubmitFunc

	// Store receives file fields of valid submissions before OnSubmit.
	Store upload.Store

	// FormOptions are applied to every form instance after the schema's
	// options (metrics, logger, tracer, timeouts).
	FormOptions []form.Option

	// Policy strips markup from free text. Default: bluemonday.StrictPolicy().
	Policy *bluemonday.Policy

	// MaxBodySize limits request bodies. Default: 10MB.
	MaxBodySize int64

	// CheckOrigin validates the Origin of WebSocket upgrades.
	// Default: same host only.
	CheckOrigin func(r *http.Request) bool

	// PingInterval is the keepalive interval of live sessions. Default: 30s.
	PingInterval time.Duration

	// Metrics records transport metrics. Optional.
	Metrics *middleware.Metrics

	// Gatherer, when set, is served at /metrics.
	Gatherer prometheus.Gatherer

	// Logger is the server logger. Default: slog.Default().
	Logger *slog.Logger
}

// Server is the form transport.
type Server struct {
	config   Config
	logger   *slog.Logger
	sanitize *sanitizer
	upgrader websocket.Upgrader
	router   chi.Router
}

// New creates a server.
func New(config Config) *Server {
	if config.Schemas == nil {
		config.Schemas = schema.NewRegistry()
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 10 << 20
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 30 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		logger:   logger.With("component", "formhttp"),
		sanitize: newSanitizer(config.Policy),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.config.Metrics.Handler)
	r.Use(middleware.Tracing(middleware.WithRequestFilter(func(r *http.Request) bool {
		return r.URL.Path != "/metrics"
	})))

	r.Route("/forms", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleSchema)
			r.Post("/submit", s.handleSubmit)
			r.Post("/validate", s.handleValidate)
			r.Get("/live", s.handleLive)
		})
	})

	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"forms": s.config.Schemas.IDs()})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	sch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

// lookup resolves the {id} schema, writing a 404 when it is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*schema.Schema, bool) {
	sch, err := s.config.Schemas.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return sch, true
}

// newForm creates a form instance for one request or session.
func (s *Server) newForm(sch *schema.Schema, opts ...form.Option) (*form.Form, error) {
	all := make([]form.Option, 0, len(s.config.FormOptions)+len(opts)+1)
	all = append(all, form.WithLogger(s.logger))
	all = append(all, s.config.FormOptions...)
	all = append(all, opts...)
	return sch.NewForm(all...)
}

// submitHook adapts the configured Store and OnSubmit to a form handler.
func (s *Server) submitHook(formID string, stored *map[string]*upload.Stored) form.SubmitFunc {
	return func(ctx context.Context, values form.Values) error {
		var files map[string]*upload.Stored
		if s.config.Store != nil {
			var err error
			files, err = upload.Persist(ctx, s.config.Store, formID, values)
			if err != nil {
				return errors.New("F142").Wrap(err)
			}
			if stored != nil {
				*stored = files
			}
		}
		if s.config.OnSubmit == nil {
			return nil
		}
		return s.config.OnSubmit(ctx, formID, values, files)
	}
}

type errorResponse struct {
	Error errors.Payload `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	var fe *errors.Error
	if !stderrors.As(err, &fe) {
		fe = errors.Newf(errors.CategoryTransport, "%s", http.StatusText(status)).Wrap(err)
	}
	writeJSON(w, status, errorResponse{Error: fe.Payload()})
}
