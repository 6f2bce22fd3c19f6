package walletsig

import (
	"encoding/base64"
	"errors"
	"math/big"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// SignatureSize is the length of a raw secp256k1 signature, r‖s.
const SignatureSize = 64

var ErrInvalidEncoding = errors.New("walletsig: invalid encoding")

// Signature is a raw ECDSA signature: 32-byte big-endian r followed by 32-byte s.
type Signature [SignatureSize]byte

func (s Signature) R() []byte { return s[:32] }
func (s Signature) S() []byte { return s[32:] }

// DecodeSignature base64-decodes sigB64 and coerces it to r‖s. Anything that is
// not exactly 64 bytes is treated as a DER SEQUENCE{INTEGER r, INTEGER s}.
func DecodeSignature(sigB64 string) (Signature, error) {
	raw, err := decodeBase64(sigB64)
	if err != nil {
		return Signature{}, ErrInvalidEncoding
	}
	return CoerceSignature(raw)
}

// CoerceSignature returns raw unchanged when it is already 64 bytes and
// otherwise converts it from DER.
func CoerceSignature(raw []byte) (Signature, error) {
	var out Signature
	if len(raw) == SignatureSize {
		copy(out[:], raw)
		return out, nil
	}
	return derToRaw(raw)
}

func derToRaw(der []byte) (Signature, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(r) || !inner.ReadASN1Integer(s) || !inner.Empty() {
		return Signature{}, ErrInvalidEncoding
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.BitLen() > 256 || s.BitLen() > 256 {
		return Signature{}, ErrInvalidEncoding
	}
	var out Signature
	r.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out, nil
}

// decodeBase64 accepts padded and unpadded standard base64; some wallet SDKs
// strip the padding.
func decodeBase64(in string) ([]byte, error) {
	in = strings.TrimSpace(in)
	if in == "" {
		return nil, ErrInvalidEncoding
	}
	if b, err := base64.StdEncoding.DecodeString(in); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(in)
}
