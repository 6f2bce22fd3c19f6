package http

import (
	"context"
	"net/http"
	"time"

	"rwa-auth/internal/authz"
	"rwa-auth/internal/httpx"
	"rwa-auth/internal/observability/middleware"
	"rwa-auth/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	CORSOrigins []string
	// RateLimitPerMinute caps requests per client IP on /v1/auth. Zero disables it.
	RateLimitPerMinute int
	TrustProxy         bool
	// Ping backs /healthz. Nil always reports healthy.
	Ping func(ctx context.Context) error
	// JWKS is served under /.well-known/jwks.json when it reports true.
	JWKS func() (map[string]any, bool)
}

func NewRouter(auth service.AuthService, sessions *authz.SessionValidator, cfg RouterConfig) http.Handler {
	h := &authHandler{auth: auth, trustProxy: cfg.TrustProxy}
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.WithRequestAndTrace)
	r.Use(middleware.WithMetrics)
	r.Use(httpx.LogRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsIfSet(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Ping(ctx); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	if cfg.JWKS != nil {
		if jwk, ok := cfg.JWKS(); ok {
			r.Get("/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"keys": []any{jwk}})
			})
		}
	}

	r.Route("/v1/auth", func(r chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			if cfg.TrustProxy {
				r.Use(httprate.Limit(cfg.RateLimitPerMinute, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByRealIP)))
			} else {
				r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
			}
		}
		r.Post("/nonce", h.nonce)
		r.Post("/verify", h.verify)
		r.Group(func(pr chi.Router) {
			pr.Use(sessions.Middleware)
			pr.Get("/me", h.me)
		})
	})

	return r
}

// originsIfSet falls back to "*" when no origin is configured.
func originsIfSet(in []string) []string {
	if len(in) == 0 {
		return []string{"*"}
	}
	return in
}
