package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

// Chatter is the coordinator surface the transport needs.
type Chatter interface {
	Chat(ctx context.Context, req contractx.ChatRequest) contractx.Result
	ChatStream(ctx context.Context, req contractx.ChatRequest, sink func(contractx.TextFragment)) contractx.Result
	History(ctx context.Context, userID string) ([]contractx.Message, error)
	Clear(ctx context.Context, userID string) error
}

// Prober checks an upstream dependency for /healthz?deep=1.
type Prober interface {
	Probe(ctx context.Context) error
}

type Server struct {
	chat    Chatter
	probe   Prober
	limiter *userLimiter
	timeout time.Duration
	now     func() time.Time
}

// NewRouter wires the HTTP routes. probe may be nil.
func NewRouter(chat Chatter, probe Prober, cfg Config, logger zerolog.Logger) http.Handler {
	s := &Server{
		chat:    chat,
		probe:   probe,
		limiter: newUserLimiter(cfg.RatePerSecond, cfg.RateBurst, cfg.RateIdleTTL),
		timeout: cfg.TurnTimeout,
		now:     time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(logger))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/chat", s.handleChat)
		api.Post("/stream-chat", s.handleStreamChat)
		api.Get("/sessions/{userID}/messages", s.handleHistory)
		api.Delete("/sessions/{userID}", s.handleClear)
	})

	return r
}

func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			logger := hlog.FromRequest(r).With().Str("request_id", id).Logger()
			r = r.WithContext(logger.WithContext(r.Context()))
		}
		next.ServeHTTP(w, r)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
