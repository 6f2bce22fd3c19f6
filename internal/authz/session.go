package authz

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"rwa-auth/internal/jwtsigner"
	"rwa-auth/internal/observability/metrics"
	obsmw "rwa-auth/internal/observability/middleware"
)

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwtsigner.SessionClaims, error)
}

// SessionValidator authenticates requests carrying a session token as a
// bearer credential.
type SessionValidator struct {
	tokens tokenVerifier
}

func NewSessionValidator(tokens tokenVerifier) *SessionValidator {
	return &SessionValidator{tokens: tokens}
}

func (v *SessionValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := "success"
		defer func() {
			metrics.SessionChecksTotal.WithLabelValues(result).Inc()
		}()
		reqID := obsmw.RequestIDFromContext(r.Context())
		traceID := obsmw.TraceIDFromContext(r.Context())

		raw := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			result = "missing"
			unauthorized(w, "missing bearer token")
			slog.Warn("session missing bearer", "request_id", reqID, "trace_id", traceID)
			return
		}
		tokStr := strings.TrimSpace(raw[len("Bearer "):])

		claims, err := v.tokens.Verify(r.Context(), tokStr)
		if err != nil {
			result = "failure"
			unauthorized(w, "invalid token")
			slog.Warn("session invalid token", "error", err, "request_id", reqID, "trace_id", traceID)
			return
		}
		if claims.UserID == "" {
			result = "failure"
			unauthorized(w, "invalid token claims")
			slog.Warn("session token without user id", "request_id", reqID, "trace_id", traceID)
			return
		}

		slog.Debug("session accepted", "user_id", claims.UserID, "request_id", reqID, "trace_id", traceID)
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

type claimsKey struct{}

func WithClaims(ctx context.Context, c *jwtsigner.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFrom(ctx context.Context) (*jwtsigner.SessionClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*jwtsigner.SessionClaims)
	return c, ok && c != nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="rwa-auth"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
