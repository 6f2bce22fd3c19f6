package walletsig

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestPublicKeyInputUnmarshal(t *testing.T) {
	key := []byte{2, 161, 7, 255}
	b64 := base64.StdEncoding.EncodeToString(key)

	cases := []struct {
		name string
		json string
		kind KeyKind
		want []byte
	}{
		{name: "null", json: `null`, kind: KeyMissing},
		{name: "empty string", json: `""`, kind: KeyMissing},
		{name: "base64 string", json: `"` + b64 + `"`, kind: KeyBase64, want: key},
		{name: "amino object", json: `{"type":"tendermint/PubKeySecp256k1","value":"` + b64 + `"}`, kind: KeyBase64, want: key},
		{name: "byte array", json: `[2,161,7,255]`, kind: KeyRawBytes, want: key},
		{name: "indexed object", json: `{"1":161,"0":2,"3":255,"2":7}`, kind: KeyRawBytes, want: key},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var in PublicKeyInput
			if err := json.Unmarshal([]byte(tc.json), &in); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if in.Kind != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, in.Kind)
			}
			got, err := in.Resolve()
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestPublicKeyInputAbsentField(t *testing.T) {
	var body struct {
		PublicKey PublicKeyInput `json:"publicKey"`
	}
	if err := json.Unmarshal([]byte(`{}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.PublicKey.IsMissing() {
		t.Fatalf("absent field should be missing")
	}
}

func TestPublicKeyInputRejects(t *testing.T) {
	for _, raw := range []string{`[1,300]`, `{"0":1,"2":3}`, `42`, `true`} {
		var in PublicKeyInput
		if err := json.Unmarshal([]byte(raw), &in); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}

	in := PublicKeyFromBase64("%%%")
	if _, err := in.Resolve(); err == nil {
		t.Fatalf("expected resolve error for invalid base64")
	}
}
