package jwtsigner

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the payload of a session token: {id, address, role, exp}
// plus the registered issuer/subject/audience fields.
type SessionClaims struct {
	UserID  string `json:"id"`
	Address string `json:"address"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues and verifies session tokens with either an HS256 secret or
// an Ed25519 keypair.
type Signer struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	public    ed25519.PublicKey

	KeyID    string
	Issuer   string
	Audience string
}

// NewHS256 creates a signer from a shared secret.
func NewHS256(secret []byte, kid, iss, aud string) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty HS256 secret")
	}
	return &Signer{
		method:    jwt.SigningMethodHS256,
		signKey:   secret,
		verifyKey: secret,
		KeyID:     kid,
		Issuer:    iss,
		Audience:  aud,
	}, nil
}

// NewFromBase64 creates an EdDSA signer from base64-encoded ed25519 private key bytes.
// If privB64 is empty, it generates an ephemeral key (good for local dev).
func NewFromBase64(privB64, kid, iss, aud string) (*Signer, error) {
	var priv ed25519.PrivateKey
	if privB64 == "" {
		_, priv, _ = ed25519.GenerateKey(rand.Reader)
	} else {
		raw, err := base64.StdEncoding.DecodeString(privB64)
		if err != nil {
			return nil, err
		}
		if len(raw) != ed25519.PrivateKeySize {
			return nil, errors.New("invalid ed25519 private key size")
		}
		priv = ed25519.PrivateKey(raw)
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Signer{
		method:    jwt.SigningMethodEdDSA,
		signKey:   priv,
		verifyKey: pub,
		public:    pub,
		KeyID:     kid,
		Issuer:    iss,
		Audience:  aud,
	}, nil
}

func (s *Signer) Algorithm() string { return s.method.Alg() }

// Sign issues a token for claims valid for ttl and returns it with its expiry.
func (s *Signer) Sign(claims SessionClaims, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims.Issuer = s.Issuer
	claims.Subject = claims.UserID
	if s.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.Audience}
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	t := jwt.NewWithClaims(s.method, claims)
	if s.KeyID != "" {
		t.Header["kid"] = s.KeyID
	}
	signed, err := t.SignedString(s.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Truncate(time.Second), nil
}

// Parse verifies signature, issuer, audience and expiry and returns the claims.
func (s *Signer) Parse(tokenStr string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithExpirationRequired(),
	}
	if s.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.Audience))
	}
	claims := &SessionClaims{}
	tok, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.verifyKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// PublicJWK renders the public part as JWK for JWKS endpoint. HS256 signers
// have nothing to publish.
func (s *Signer) PublicJWK() (map[string]any, bool) {
	if s.public == nil {
		return nil, false
	}
	return map[string]any{
		"kty": "OKP",
		"crv": "Ed25519",
		"alg": "EdDSA",
		"use": "sig",
		"kid": s.KeyID,
		"x":   base64.RawURLEncoding.EncodeToString(s.public),
	}, true
}
