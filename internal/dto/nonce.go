package dto

type NonceRequest struct {
	Address string `json:"address"`
}

type NonceResponse struct {
	Nonce string `json:"nonce"`
}
