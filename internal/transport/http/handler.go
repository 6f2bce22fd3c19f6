package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"rwa-auth/internal/authz"
	"rwa-auth/internal/domain"
	"rwa-auth/internal/dto"
	"rwa-auth/internal/netutil"
	"rwa-auth/internal/observability/middleware"
	"rwa-auth/internal/service"
	"rwa-auth/internal/service/impl"
	"rwa-auth/internal/walletsig"
)

const maxBodyBytes = 64 << 10

type authHandler struct {
	auth       service.AuthService
	trustProxy bool
}

func (h *authHandler) nonce(w http.ResponseWriter, r *http.Request) {
	var req dto.NonceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.auth.RequestNonce(r.Context(), req)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *authHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.auth.SubmitProof(r.Context(), req, netutil.ClientIP(r, h.trustProxy), r.UserAgent())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := authz.ClaimsFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.auth.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, impl.ErrInvalidUserID), errors.Is(err, impl.ErrUserNotFound):
			writeMessage(w, http.StatusUnauthorized, "unknown user")
		default:
			writeAuthError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, dto.UserResponse{
		ID:      u.ID.String(),
		Address: u.WalletAddress,
		Role:    u.Role,
	})
}

// decodeJSON reads a bounded JSON body. A malformed public key is reported
// as a signature encoding failure rather than a bad request.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		switch {
		case errors.Is(err, walletsig.ErrInvalidEncoding):
			writeAuthError(w, r, domain.ErrInvalidSignatureEncoding)
		case errors.Is(err, io.EOF):
			writeMessage(w, http.StatusBadRequest, "empty request body")
		default:
			writeMessage(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Message: msg})
}

// writeAuthError maps login failures to 400 (request problems), 401
// (signature problems) or 500. Storage detail never reaches the client.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingField):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidAddressFormat):
		writeMessage(w, http.StatusBadRequest, domain.ErrInvalidAddressFormat.Error())
	case errors.Is(err, domain.ErrNonceNotFound):
		writeMessage(w, http.StatusBadRequest, domain.ErrNonceNotFound.Error())
	case errors.Is(err, domain.ErrNonceMismatch):
		writeMessage(w, http.StatusBadRequest, domain.ErrNonceMismatch.Error())
	case errors.Is(err, domain.ErrInvalidSignatureEncoding):
		writeMessage(w, http.StatusUnauthorized, domain.ErrInvalidSignatureEncoding.Error())
	case errors.Is(err, domain.ErrInvalidSignature):
		writeMessage(w, http.StatusUnauthorized, domain.ErrInvalidSignature.Error())
	default:
		slog.Error("request failed", "error", err, "path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"trace_id", middleware.TraceIDFromContext(r.Context()))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
