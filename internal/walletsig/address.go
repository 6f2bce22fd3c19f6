package walletsig

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

var ErrInvalidAddress = errors.New("walletsig: invalid address")

// AddressValidator checks that an account identifier is a lowercase bech32
// string with an accepted human readable prefix and a 20 or 32 byte payload.
type AddressValidator struct {
	prefixes map[string]struct{}
}

// NewAddressValidator accepts any prefix when none are given.
func NewAddressValidator(prefixes ...string) *AddressValidator {
	v := &AddressValidator{prefixes: map[string]struct{}{}}
	for _, p := range prefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			v.prefixes[p] = struct{}{}
		}
	}
	return v
}

// Validate returns the address prefix when addr is well formed.
func (v *AddressValidator) Validate(addr string) (string, error) {
	hrp, payload, err := decodeAddress(addr)
	if err != nil {
		return "", err
	}
	if len(v.prefixes) > 0 {
		if _, ok := v.prefixes[hrp]; !ok {
			return "", fmt.Errorf("%w: unexpected prefix %q", ErrInvalidAddress, hrp)
		}
	}
	if len(payload) != 20 && len(payload) != 32 {
		return "", fmt.Errorf("%w: payload length %d", ErrInvalidAddress, len(payload))
	}
	return hrp, nil
}

// AddressFromPubKey derives the account address bech32(hrp, ripemd160(sha256(compressed key))).
func AddressFromPubKey(hrp string, pub *secp256k1.PublicKey) (string, error) {
	sum := sha256.Sum256(pub.SerializeCompressed())
	h := ripemd160.New()
	_, _ = h.Write(sum[:])
	conv, err := bech32.ConvertBits(h.Sum(nil), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, conv)
}

// PubKeyMatchesAddress reports whether pub derives to addr under addr's own prefix.
func PubKeyMatchesAddress(addr string, pub *secp256k1.PublicKey) bool {
	if pub == nil {
		return false
	}
	hrp, _, err := decodeAddress(addr)
	if err != nil {
		return false
	}
	derived, err := AddressFromPubKey(hrp, pub)
	if err != nil {
		return false
	}
	return derived == addr
}

func decodeAddress(addr string) (string, []byte, error) {
	if addr == "" || addr != strings.ToLower(addr) {
		return "", nil, ErrInvalidAddress
	}
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return hrp, payload, nil
}
