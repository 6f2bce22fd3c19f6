package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rwa-auth/internal/authz"
	"rwa-auth/internal/config"
	"rwa-auth/internal/events"
	"rwa-auth/internal/jwtsigner"
	"rwa-auth/internal/observability/logging"
	"rwa-auth/internal/observability/metrics"
	impl "rwa-auth/internal/service/impl"
	"rwa-auth/internal/store"
	"rwa-auth/internal/store/redisstore"
	httpx "rwa-auth/internal/transport/http"
	"rwa-auth/pkg/db"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: "auth",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)
	logger.Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1) DB
	gdb, err := db.OpenGorm(ctx, db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	st := store.New(gdb)
	if cfg.AutoMigrate {
		if err := st.AutoMigrate(ctx); err != nil {
			logger.Error("auto migrate", "error", err)
			os.Exit(1)
		}
	}

	// 2) Nonce backend
	var nonceStore impl.NonceStore = st.Nonces()
	ping := st.Ping
	switch cfg.NonceBackend {
	case config.NonceBackendPostgres:
	case config.NonceBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("redis url", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis ping", "error", err)
			os.Exit(1)
		}
		nonceStore = redisstore.NewNonceStore(rdb, cfg.NonceTTL)
		ping = func(ctx context.Context) error {
			if err := st.Ping(ctx); err != nil {
				return err
			}
			return rdb.Ping(ctx).Err()
		}
	default:
		logger.Error("unknown nonce backend", "backend", cfg.NonceBackend)
		os.Exit(1)
	}

	// 3) Session tokens
	signer, err := newSigner(cfg)
	if err != nil {
		logger.Error("token signer", "error", err)
		os.Exit(1)
	}

	// 4) Services
	ts := impl.NewTokenServiceImpl(signer)
	as := impl.NewAuthServiceImpl(
		impl.NewNonceServiceImpl(nonceStore, cfg.NonceTTL),
		st.Users(),
		ts,
		impl.AuthConfig{
			AddressPrefixes:     cfg.AddressPrefixes,
			BindPubKeyToAddress: cfg.BindPubKeyToAddress,
		},
	)
	as.Events = events.LogSink{Logger: logger}

	// 5) HTTP
	metrics.MustRegister("auth")
	router := httpx.NewRouter(as, authz.NewSessionValidator(ts), httpx.RouterConfig{
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustProxy:         cfg.TrustProxy,
		Ping:               ping,
		JWKS:               signer.PublicJWK,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	slog.Info("auth service listening",
		"addr", srv.Addr,
		"issuer", cfg.Issuer,
		"alg", signer.Algorithm(),
		"nonce_backend", cfg.NonceBackend,
		"nonce_ttl", cfg.NonceTTL,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("auth service stopped")
}

func newSigner(cfg config.Config) (*jwtsigner.Signer, error) {
	switch cfg.SigningAlg {
	case config.SigningAlgEdDSA:
		return jwtsigner.NewFromBase64(cfg.SigningKey, cfg.SigningKeyID, cfg.Issuer, cfg.Audience)
	case config.SigningAlgHS256, "":
		return jwtsigner.NewHS256([]byte(cfg.SigningKey), cfg.SigningKeyID, cfg.Issuer, cfg.Audience)
	default:
		return nil, errors.New("unsupported SIGNING_ALG " + cfg.SigningAlg)
	}
}
