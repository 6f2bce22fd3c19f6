package main

import (
	"encoding/base64"

	"rwa-auth/internal/adr36"
	"rwa-auth/internal/dto"
	"rwa-auth/internal/walletsig"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// wallet signs login nonces the way browser wallets do for ADR-36 signArbitrary.
type wallet struct {
	priv    *secp256k1.PrivateKey
	address string
}

func newWallet(priv *secp256k1.PrivateKey, hrp string) (wallet, error) {
	addr, err := walletsig.AddressFromPubKey(hrp, priv.PubKey())
	if err != nil {
		return wallet{}, err
	}
	return wallet{priv: priv, address: addr}, nil
}

func (w wallet) publicKeyB64() string {
	return base64.StdEncoding.EncodeToString(w.priv.PubKey().SerializeCompressed())
}

func (w wallet) proof(nonce string, der bool) (dto.VerifyRequest, error) {
	hash, err := adr36.MessageHash(w.address, nonce)
	if err != nil {
		return dto.VerifyRequest{}, err
	}
	var sig []byte
	if der {
		sig = ecdsa.Sign(w.priv, hash).Serialize()
	} else {
		sig = ecdsa.SignCompact(w.priv, hash, true)[1:]
	}
	return dto.VerifyRequest{
		Address:   w.address,
		Nonce:     nonce,
		Signature: base64.StdEncoding.EncodeToString(sig),
		PublicKey: walletsig.PublicKeyFromBase64(w.publicKeyB64()),
	}, nil
}
