// Package walletsig verifies secp256k1 wallet signatures over a message hash,
// tolerating the inconsistent public key encodings real wallet integrations
// submit.
package walletsig

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	StrategyAsReceived = "as-received"
	StrategyOddParity  = "odd-parity"
	StrategyXOnly      = "x-only"
	StrategyRecovered  = "recovered"
)

// Attempt is the outcome of one strategy.
type Attempt struct {
	Strategy string
	OK       bool
	Skipped  bool
	Reason   string
	PubKey   *secp256k1.PublicKey
}

// Result is the overall verification outcome. Valid is never uncertain.
type Result struct {
	Valid    bool
	Strategy string
	PubKey   *secp256k1.PublicKey
	Attempts []Attempt
}

// Strategy checks sig over hash against one reinterpretation of key.
// Strategies are pure: they must not mutate key.
type Strategy func(hash []byte, sig *ecdsa.Signature, key []byte) Attempt

// DefaultStrategies is the ordered list of key reinterpretations tried by Verify.
var DefaultStrategies = []Strategy{
	keyStrategy(StrategyAsReceived, asReceived),
	keyStrategy(StrategyOddParity, forceOddParity),
	keyStrategy(StrategyXOnly, xOnlyEvenY),
}

type Verifier struct {
	strategies []Strategy
}

func NewVerifier(strategies ...Strategy) *Verifier {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Verifier{strategies: strategies}
}

// Verify runs the strategies in order and stops at the first success.
func (v *Verifier) Verify(hash []byte, sig Signature, key []byte) Result {
	parsed, reason := parseSignature(sig)
	if parsed == nil {
		return Result{Attempts: []Attempt{{Strategy: StrategyAsReceived, Reason: reason}}}
	}

	res := Result{Attempts: make([]Attempt, 0, len(v.strategies))}
	for _, strategy := range v.strategies {
		a := strategy(hash, parsed, key)
		res.Attempts = append(res.Attempts, a)
		if a.OK {
			res.Valid = true
			res.Strategy = a.Strategy
			res.PubKey = a.PubKey
			return res
		}
	}
	return res
}

// Recover derives candidate public keys from sig for each recovery id and
// returns the first one accepted by match. It is used when the client did not
// submit a public key at all.
func (v *Verifier) Recover(hash []byte, sig Signature, match func(*secp256k1.PublicKey) bool) Result {
	compact := make([]byte, 1+SignatureSize)
	copy(compact[1:], sig[:])

	var res Result
	for recID := byte(0); recID < 4; recID++ {
		// 27 + 4 marks a compressed-key compact signature.
		compact[0] = 27 + 4 + recID
		pub, _, err := ecdsa.RecoverCompact(compact, hash)
		if err != nil {
			res.Attempts = append(res.Attempts, Attempt{Strategy: StrategyRecovered, Reason: err.Error()})
			continue
		}
		if match != nil && !match(pub) {
			res.Attempts = append(res.Attempts, Attempt{Strategy: StrategyRecovered, Reason: "recovered key rejected", PubKey: pub})
			continue
		}
		res.Attempts = append(res.Attempts, Attempt{Strategy: StrategyRecovered, OK: true, PubKey: pub})
		res.Valid = true
		res.Strategy = StrategyRecovered
		res.PubKey = pub
		return res
	}
	return res
}

// VerifyEncoded decodes a base64 signature (raw or DER) and a base64 public
// key and reports whether any default strategy verifies. Malformed input
// yields false.
func VerifyEncoded(hash []byte, sigB64, pubKeyB64 string) bool {
	sig, err := DecodeSignature(sigB64)
	if err != nil {
		return false
	}
	key, err := decodeBase64(pubKeyB64)
	if err != nil {
		return false
	}
	return NewVerifier().Verify(hash, sig, key).Valid
}

func parseSignature(sig Signature) (*ecdsa.Signature, string) {
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig.R()); overflow || r.IsZero() {
		return nil, "signature r out of range"
	}
	if overflow := s.SetByteSlice(sig.S()); overflow || s.IsZero() {
		return nil, "signature s out of range"
	}
	return ecdsa.NewSignature(&r, &s), ""
}

// keyStrategy adapts a key transform into a Strategy. A transform returning
// ok=false marks the attempt as skipped.
func keyStrategy(name string, transform func(key []byte) ([]byte, bool)) Strategy {
	return func(hash []byte, sig *ecdsa.Signature, key []byte) Attempt {
		candidate, ok := transform(key)
		if !ok {
			return Attempt{Strategy: name, Skipped: true, Reason: "not applicable"}
		}
		pub, err := secp256k1.ParsePubKey(candidate)
		if err != nil {
			return Attempt{Strategy: name, Reason: err.Error()}
		}
		if !sig.Verify(hash, pub) {
			return Attempt{Strategy: name, Reason: "signature mismatch", PubKey: pub}
		}
		return Attempt{Strategy: name, OK: true, PubKey: pub}
	}
}

func asReceived(key []byte) ([]byte, bool) {
	return key, len(key) > 0
}

func forceOddParity(key []byte) ([]byte, bool) {
	switch {
	case len(key) == secp256k1.PubKeyBytesLenCompressed && key[0] != secp256k1.PubKeyFormatCompressedOdd:
		out := make([]byte, secp256k1.PubKeyBytesLenCompressed)
		out[0] = secp256k1.PubKeyFormatCompressedOdd
		copy(out[1:], key[1:])
		return out, true
	case len(key) == 32:
		return append([]byte{secp256k1.PubKeyFormatCompressedOdd}, key...), true
	default:
		return nil, false
	}
}

// xOnlyEvenY strips the parity byte and lifts the bare x coordinate using the
// even-y convention.
func xOnlyEvenY(key []byte) ([]byte, bool) {
	var x []byte
	switch len(key) {
	case secp256k1.PubKeyBytesLenCompressed:
		x = key[1:]
	case 32:
		x = key
	default:
		return nil, false
	}
	return append([]byte{secp256k1.PubKeyFormatCompressedEven}, x...), true
}
