package walletsig

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// KeyKind tags how a public key arrived on the wire.
type KeyKind int

const (
	KeyMissing KeyKind = iota
	KeyRawBytes
	KeyBase64
)

func (k KeyKind) String() string {
	switch k {
	case KeyRawBytes:
		return "raw-bytes"
	case KeyBase64:
		return "base64"
	default:
		return "missing"
	}
}

// PublicKeyInput is a submitted public key before it is resolved to bytes.
// JSON forms accepted:
//
//	null / absent / ""                                   -> KeyMissing
//	"A1b2..."                                            -> KeyBase64
//	{"type":"tendermint/PubKeySecp256k1","value":"A1.."} -> KeyBase64
//	[2, 161, ...]                                        -> KeyRawBytes
//	{"0": 2, "1": 161, ...}                              -> KeyRawBytes (serialized Uint8Array)
type PublicKeyInput struct {
	Kind KeyKind
	Raw  []byte
	Text string
}

func PublicKeyFromBytes(b []byte) PublicKeyInput {
	return PublicKeyInput{Kind: KeyRawBytes, Raw: append([]byte(nil), b...)}
}

func PublicKeyFromBase64(s string) PublicKeyInput {
	if s == "" {
		return PublicKeyInput{}
	}
	return PublicKeyInput{Kind: KeyBase64, Text: s}
}

func (p PublicKeyInput) IsMissing() bool { return p.Kind == KeyMissing }

// Resolve returns the key bytes. A missing key resolves to nil without error.
func (p PublicKeyInput) Resolve() ([]byte, error) {
	switch p.Kind {
	case KeyMissing:
		return nil, nil
	case KeyRawBytes:
		if len(p.Raw) == 0 {
			return nil, ErrInvalidEncoding
		}
		return append([]byte(nil), p.Raw...), nil
	case KeyBase64:
		b, err := decodeBase64(p.Text)
		if err != nil {
			return nil, ErrInvalidEncoding
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: unknown key kind %d", ErrInvalidEncoding, p.Kind)
	}
}

func (p PublicKeyInput) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case KeyRawBytes:
		return json.Marshal(base64.StdEncoding.EncodeToString(p.Raw))
	case KeyBase64:
		return json.Marshal(p.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reports malformed keys as ErrInvalidEncoding so callers can
// tell them apart from a malformed request body.
func (p *PublicKeyInput) UnmarshalJSON(data []byte) error {
	if err := p.decodeJSON(data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return nil
}

func (p *PublicKeyInput) decodeJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = PublicKeyInput{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PublicKeyFromBase64(s)
		return nil
	case '[':
		var nums []int
		if err := json.Unmarshal(data, &nums); err != nil {
			return fmt.Errorf("public key array: %w", err)
		}
		raw, err := bytesFromInts(nums)
		if err != nil {
			return err
		}
		*p = PublicKeyInput{Kind: KeyRawBytes, Raw: raw}
		return nil
	case '{':
		var amino struct {
			Type  string  `json:"type"`
			Value *string `json:"value"`
		}
		if err := json.Unmarshal(data, &amino); err == nil && amino.Value != nil {
			*p = PublicKeyFromBase64(*amino.Value)
			return nil
		}
		var indexed map[string]int
		if err := json.Unmarshal(data, &indexed); err != nil {
			return fmt.Errorf("public key object: %w", err)
		}
		nums := make([]int, len(indexed))
		for i := range nums {
			v, ok := indexed[strconv.Itoa(i)]
			if !ok {
				return fmt.Errorf("public key object: missing index %d", i)
			}
			nums[i] = v
		}
		raw, err := bytesFromInts(nums)
		if err != nil {
			return err
		}
		*p = PublicKeyInput{Kind: KeyRawBytes, Raw: raw}
		return nil
	default:
		return fmt.Errorf("public key: unsupported JSON value %q", data[:1])
	}
}

func bytesFromInts(nums []int) ([]byte, error) {
	out := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("public key: byte %d out of range: %d", i, n)
		}
		out[i] = byte(n)
	}
	return out, nil
}
