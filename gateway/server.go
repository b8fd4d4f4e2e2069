package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bnguyen2/merkle-drop/native/airdrop"
	"github.com/bnguyen2/merkle-drop/observability/metrics"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Engine    *airdrop.Engine
	Logger    *slog.Logger
	RateLimit RateLimit
}

// Server fronts the claim engine over HTTP. All state mutation still runs
// through the engine; the server only parses, authenticates and reports.
type Server struct {
	engine  *airdrop.Engine
	log     *slog.Logger
	metrics *metrics.AirdropMetrics
	router  http.Handler
}

// New constructs a configured router with caller authentication, per-client
// rate limiting and request logging.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:  cfg.Engine,
		log:     logger,
		metrics: metrics.Airdrop(),
	}
	s.metrics.InitPath("merkle")
	s.metrics.InitPath("signature")

	limiter := NewRateLimiter(cfg.RateLimit)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/info", s.handleInfo)
		r.Get("/claims/{address}", s.handleClaimStatus)
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/claims/merkle", s.handleMerkleClaim)
			r.Post("/claims/signature", s.handleSignatureClaim)
		})
		r.Post("/admin/disable-signatures", s.handleDisableSignatures)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", ww.Header().Get("X-Request-Id"),
		)
	})
}
