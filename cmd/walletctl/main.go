package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"rwa-auth/internal/dto"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "keygen":
		err = runKeygen(args)
	case "sign":
		err = runSign(args)
	case "login":
		err = runLogin(args)
	case "role":
		err = runRole(args)
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  keygen     Generate a secp256k1 key and its bech32 address")
	fmt.Fprintln(os.Stderr, "  sign       Sign a login nonce and print the proof")
	fmt.Fprintln(os.Stderr, "  login      Request a nonce, sign it and exchange it for a session")
	fmt.Fprintln(os.Stderr, "  role       Change the role of a registered wallet (direct DB access)")
	os.Exit(2)
}

type keyOutput struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
	Address    string `json:"address"`
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	hrp := fs.String("prefix", getenv("WALLETCTL_PREFIX", "neutron"), "bech32 address prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return err
	}
	w, err := newWallet(priv, *hrp)
	if err != nil {
		return err
	}
	return printJSON(keyOutput{
		PrivateKey: hex.EncodeToString(priv.Serialize()),
		PublicKey:  w.publicKeyB64(),
		Address:    w.address,
	})
}

func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	keyHex := fs.String("key", os.Getenv("WALLETCTL_KEY"), "private key (hex)")
	hrp := fs.String("prefix", getenv("WALLETCTL_PREFIX", "neutron"), "bech32 address prefix")
	nonce := fs.String("nonce", "", "nonce returned by /v1/auth/nonce")
	der := fs.Bool("der", false, "emit a DER signature instead of raw r||s")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*nonce) == "" {
		return fmt.Errorf("nonce is required")
	}

	w, err := walletFromHex(*keyHex, *hrp)
	if err != nil {
		return err
	}
	proof, err := w.proof(strings.TrimSpace(*nonce), *der)
	if err != nil {
		return err
	}
	return printJSON(proof)
}

func runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	baseURL := fs.String("base-url", getenv("WALLETCTL_BASE_URL", "http://localhost:8081"), "auth service base URL")
	keyHex := fs.String("key", os.Getenv("WALLETCTL_KEY"), "private key (hex)")
	hrp := fs.String("prefix", getenv("WALLETCTL_PREFIX", "neutron"), "bech32 address prefix")
	der := fs.Bool("der", false, "send a DER signature instead of raw r||s")
	if err := fs.Parse(args); err != nil {
		return err
	}

	w, err := walletFromHex(*keyHex, *hrp)
	if err != nil {
		return err
	}
	session, err := login(&http.Client{Timeout: 10 * time.Second}, *baseURL, w, *der)
	if err != nil {
		return err
	}
	return printJSON(session)
}

func login(client *http.Client, baseURL string, w wallet, der bool) (*dto.SessionResponse, error) {
	base := strings.TrimRight(baseURL, "/")

	var nonceResp dto.NonceResponse
	if err := postJSON(client, base+"/v1/auth/nonce", dto.NonceRequest{Address: w.address}, &nonceResp); err != nil {
		return nil, fmt.Errorf("nonce request failed: %w", err)
	}

	proof, err := w.proof(nonceResp.Nonce, der)
	if err != nil {
		return nil, err
	}

	var session dto.SessionResponse
	if err := postJSON(client, base+"/v1/auth/verify", proof, &session); err != nil {
		return nil, fmt.Errorf("verify request failed: %w", err)
	}
	return &session, nil
}

func walletFromHex(keyHex, hrp string) (wallet, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil || len(raw) != 32 {
		return wallet{}, fmt.Errorf("key must be 32 bytes of hex")
	}
	return newWallet(secp256k1.PrivKeyFromBytes(raw), hrp)
}

func postJSON(client *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode >= 400 {
		var e dto.ErrorResponse
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, e.Message)
		}
		if len(data) == 0 {
			data = []byte(resp.Status)
		}
		return fmt.Errorf("%s", strings.TrimSpace(string(data)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
