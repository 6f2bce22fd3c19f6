package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rwa-auth/internal/adr36"
	"rwa-auth/internal/authz"
	"rwa-auth/internal/domain"
	"rwa-auth/internal/dto"
	"rwa-auth/internal/events"
	"rwa-auth/internal/jwtsigner"
	"rwa-auth/internal/service/impl"
	"rwa-auth/internal/store"
	"rwa-auth/internal/walletsig"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testServer struct {
	srv    *httptest.Server
	signer *jwtsigner.Signer
}

func newTestServer(t *testing.T, signer *jwtsigner.Signer, cfg RouterConfig) *testServer {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	if signer == nil {
		signer, err = jwtsigner.NewHS256([]byte("router-test"), "", "rwa-auth", "")
		if err != nil {
			t.Fatalf("signer: %v", err)
		}
	}
	tokens := impl.NewTokenServiceImpl(signer)
	auth := impl.NewAuthServiceImpl(
		impl.NewNonceServiceImpl(st.Nonces(), 0),
		st.Users(),
		tokens,
		impl.AuthConfig{AddressPrefixes: []string{"neutron"}, BindPubKeyToAddress: true},
	)
	auth.Events = events.Discard{}
	if cfg.Ping == nil {
		cfg.Ping = st.Ping
	}
	srv := httptest.NewServer(NewRouter(auth, authz.NewSessionValidator(tokens), cfg))
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testServer{srv: srv, signer: signer}
}

func (s *testServer) post(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return s.do(t, http.MethodPost, path, bytes.NewReader(buf), nil)
}

func (s *testServer) do(t *testing.T, method, path string, body *bytes.Reader, header http.Header) (*http.Response, []byte) {
	t.Helper()
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequest(method, s.srv.URL+path, nil)
	} else {
		req, err = http.NewRequest(method, s.srv.URL+path, body)
	}
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	_, _ = out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func message(t *testing.T, body []byte) string {
	t.Helper()
	var e dto.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return e.Message
}

type wallet struct {
	priv    *secp256k1.PrivateKey
	address string
}

func newTestWallet(t *testing.T) wallet {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	addr, err := walletsig.AddressFromPubKey("neutron", priv.PubKey())
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	return wallet{priv: priv, address: addr}
}

func (w wallet) signature(t *testing.T, nonce string) string {
	t.Helper()
	hash, err := adr36.MessageHash(w.address, nonce)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return base64.StdEncoding.EncodeToString(ecdsa.SignCompact(w.priv, hash, true)[1:])
}

func (w wallet) pubKeyB64() string {
	return base64.StdEncoding.EncodeToString(w.priv.PubKey().SerializeCompressed())
}

func (s *testServer) requestNonce(t *testing.T, address string) string {
	t.Helper()
	resp, body := s.post(t, "/v1/auth/nonce", dto.NonceRequest{Address: address})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("nonce status = %d body=%s", resp.StatusCode, body)
	}
	var out dto.NonceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode nonce: %v", err)
	}
	return out.Nonce
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t, nil, RouterConfig{})
	w := newTestWallet(t)
	nonce := s.requestNonce(t, w.address)

	verify := map[string]any{
		"address":   w.address,
		"nonce":     nonce,
		"signature": w.signature(t, nonce),
		"publicKey": w.pubKeyB64(),
	}
	resp, body := s.post(t, "/v1/auth/verify", verify)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d body=%s", resp.StatusCode, body)
	}
	var session dto.SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Token == "" || session.User.Address != w.address || session.User.Role != domain.RoleUser {
		t.Fatalf("unexpected session: %+v", session)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}

	resp, body = s.do(t, http.MethodGet, "/v1/auth/me", nil, http.Header{"Authorization": {"Bearer " + session.Token}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d body=%s", resp.StatusCode, body)
	}
	var me dto.UserResponse
	if err := json.Unmarshal(body, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.ID != session.User.ID {
		t.Fatalf("me = %+v, want id %s", me, session.User.ID)
	}

	// replay
	resp, body = s.post(t, "/v1/auth/verify", verify)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("replay status = %d", resp.StatusCode)
	}
	if got := message(t, body); got != domain.ErrNonceNotFound.Error() {
		t.Fatalf("replay message = %q", got)
	}
}

func TestLoginAcceptsByteArrayPublicKey(t *testing.T) {
	s := newTestServer(t, nil, RouterConfig{})
	w := newTestWallet(t)
	nonce := s.requestNonce(t, w.address)

	key := w.priv.PubKey().SerializeCompressed()
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	resp, body := s.post(t, "/v1/auth/verify", map[string]any{
		"address":   w.address,
		"nonce":     nonce,
		"signature": w.signature(t, nonce),
		"publicKey": ints,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%s", resp.StatusCode, body)
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t, nil, RouterConfig{})
	w := newTestWallet(t)
	other := newTestWallet(t)

	resp, body := s.post(t, "/v1/auth/nonce", dto.NonceRequest{Address: "bogus"})
	if resp.StatusCode != http.StatusBadRequest || message(t, body) != domain.ErrInvalidAddressFormat.Error() {
		t.Fatalf("bad address: %d %s", resp.StatusCode, body)
	}

	resp, body = s.post(t, "/v1/auth/verify", map[string]any{
		"address": w.address, "nonce": "ab", "signature": w.signature(t, "ab"),
	})
	if resp.StatusCode != http.StatusBadRequest || message(t, body) != domain.ErrNonceNotFound.Error() {
		t.Fatalf("no nonce: %d %s", resp.StatusCode, body)
	}

	nonce := s.requestNonce(t, w.address)

	resp, body = s.post(t, "/v1/auth/verify", map[string]any{"address": w.address, "nonce": nonce})
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(message(t, body), "signature") {
		t.Fatalf("missing signature: %d %s", resp.StatusCode, body)
	}

	resp, body = s.post(t, "/v1/auth/verify", map[string]any{
		"address": w.address, "nonce": nonce, "signature": other.signature(t, nonce), "publicKey": w.pubKeyB64(),
	})
	if resp.StatusCode != http.StatusUnauthorized || message(t, body) != domain.ErrInvalidSignature.Error() {
		t.Fatalf("bad signature: %d %s", resp.StatusCode, body)
	}

	resp, body = s.post(t, "/v1/auth/verify", map[string]any{
		"address": w.address, "nonce": nonce, "signature": "!!!", "publicKey": w.pubKeyB64(),
	})
	if resp.StatusCode != http.StatusUnauthorized || message(t, body) != domain.ErrInvalidSignatureEncoding.Error() {
		t.Fatalf("bad encoding: %d %s", resp.StatusCode, body)
	}

	resp, body = s.post(t, "/v1/auth/verify", map[string]any{
		"address": w.address, "nonce": nonce, "signature": w.signature(t, nonce), "publicKey": true,
	})
	if resp.StatusCode != http.StatusUnauthorized || message(t, body) != domain.ErrInvalidSignatureEncoding.Error() {
		t.Fatalf("bad public key: %d %s", resp.StatusCode, body)
	}

	resp, _ = s.do(t, http.MethodPost, "/v1/auth/verify", bytes.NewReader([]byte("{")), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body: %d", resp.StatusCode)
	}

	// every rejection above left the nonce usable
	resp, body = s.post(t, "/v1/auth/verify", map[string]any{
		"address": w.address, "nonce": nonce, "signature": w.signature(t, nonce), "publicKey": w.pubKeyB64(),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("final verify: %d %s", resp.StatusCode, body)
	}
}

func TestMeRequiresSession(t *testing.T) {
	s := newTestServer(t, nil, RouterConfig{})
	resp, _ := s.do(t, http.MethodGet, "/v1/auth/me", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodGet, "/v1/auth/me", nil, http.Header{"Authorization": {"Bearer nope"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil, RouterConfig{})
	resp, body := s.do(t, http.MethodGet, "/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}

	down := newTestServer(t, nil, RouterConfig{Ping: func(context.Context) error { return errors.New("down") }})
	resp, _ = down.do(t, http.MethodGet, "/healthz", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy = %d", resp.StatusCode)
	}
}

func TestJWKSPublishedForEdDSA(t *testing.T) {
	signer, err := jwtsigner.NewFromBase64("", "kid-1", "rwa-auth", "")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	s := newTestServer(t, signer, RouterConfig{JWKS: signer.PublicJWK})
	resp, body := s.do(t, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("jwks status = %d", resp.StatusCode)
	}
	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.Unmarshal(body, &set); err != nil || len(set.Keys) != 1 || set.Keys[0]["kid"] != "kid-1" {
		t.Fatalf("jwks = %s (%v)", body, err)
	}

	hs := newTestServer(t, nil, RouterConfig{})
	resp, _ = hs.do(t, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("HS256 jwks status = %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, nil, RouterConfig{RateLimitPerMinute: 2})
	w := newTestWallet(t)
	for i := 0; i < 2; i++ {
		s.requestNonce(t, w.address)
	}
	resp, _ := s.post(t, "/v1/auth/nonce", dto.NonceRequest{Address: w.address})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
}

type failingAuth struct{ *impl.AuthServiceImpl }

func (failingAuth) RequestNonce(context.Context, dto.NonceRequest) (*dto.NonceResponse, error) {
	return nil, fmt.Errorf("%w: store nonce: connection refused", domain.ErrPersistence)
}

func TestPersistenceErrorsAreGeneric(t *testing.T) {
	tokens, _ := jwtsigner.NewHS256([]byte("x"), "", "rwa-auth", "")
	h := NewRouter(failingAuth{}, authz.NewSessionValidator(impl.NewTokenServiceImpl(tokens)), RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/nonce", strings.NewReader(`{"address":"neutron1x"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := message(t, rec.Body.Bytes()); got != "internal server error" {
		t.Fatalf("message = %q", got)
	}
}
