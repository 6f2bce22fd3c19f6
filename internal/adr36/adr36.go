// Package adr36 builds the off-chain "sign arbitrary data" document that
// Cosmos wallets (Keplr, Leap, cosmjs) present to the user, and the hash that
// the wallet actually signs.
//
// The sign doc is a zero-fee, empty-chain amino transaction carrying a single
// sign/MsgSignData message. Its amino-JSON form sorts keys alphabetically at
// every level and carries no insignificant whitespace, so every field below is
// declared in sorted order and encoded with encoding/json.
package adr36

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
)

const (
	MsgSignDataType = "sign/MsgSignData"

	// AuthMessagePrefix prefixes the nonce in the text the wallet signs.
	AuthMessagePrefix = "Authentication RWA - Nonce: "
)

type SignDoc struct {
	AccountNumber string `json:"account_number"`
	ChainID       string `json:"chain_id"`
	Fee           Fee    `json:"fee"`
	Memo          string `json:"memo"`
	Msgs          []Msg  `json:"msgs"`
	Sequence      string `json:"sequence"`
}

type Fee struct {
	Amount []Coin `json:"amount"`
	Gas    string `json:"gas"`
}

type Coin struct {
	Amount string `json:"amount"`
	Denom  string `json:"denom"`
}

type Msg struct {
	Type  string      `json:"type"`
	Value MsgSignData `json:"value"`
}

type MsgSignData struct {
	Data   string `json:"data"`
	Signer string `json:"signer"`
}

// AuthMessage is the human readable text bound to a login nonce.
func AuthMessage(nonce string) string {
	return AuthMessagePrefix + nonce
}

// NewSignDoc wraps data for signer. data is base64 encoded into the message
// body exactly like cosmjs makeADR36AminoSignDoc does.
func NewSignDoc(signer string, data []byte) SignDoc {
	return SignDoc{
		AccountNumber: "0",
		ChainID:       "",
		Fee: Fee{
			Amount: []Coin{},
			Gas:    "0",
		},
		Memo: "",
		Msgs: []Msg{{
			Type: MsgSignDataType,
			Value: MsgSignData{
				Data:   base64.StdEncoding.EncodeToString(data),
				Signer: signer,
			},
		}},
		Sequence: "0",
	}
}

// Bytes returns the canonical amino-JSON serialization of the doc.
func (d SignDoc) Bytes() ([]byte, error) {
	return json.Marshal(d)
}

// SignBytes is NewSignDoc(signer, data).Bytes().
func SignBytes(signer string, data []byte) ([]byte, error) {
	return NewSignDoc(signer, data).Bytes()
}

// MessageHash returns SHA-256 over the sign bytes of the authentication
// message for nonce. This digest is what the wallet's secp256k1 key signs.
func MessageHash(signer, nonce string) ([]byte, error) {
	b, err := SignBytes(signer, []byte(AuthMessage(nonce)))
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}
