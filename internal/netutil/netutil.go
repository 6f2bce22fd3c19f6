// Package netutil normalizes client network metadata before it is logged.
package netutil

import (
	"net/http"
	"net/netip"
	"strings"
	"unicode/utf8"
)

const MaxUserAgentLength = 256

// NormalizeIP strips ports, brackets and zone identifiers from a remote
// address. It returns the input unchanged and false when no IP can be found.
func NormalizeIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, candidate := range hostCandidates(raw) {
		if addr, err := netip.ParseAddr(candidate); err == nil {
			return addr.WithZone("").Unmap().String(), true
		}
	}
	return raw, false
}

// hostCandidates lists the substrings of raw that may hold the bare IP, most
// specific first.
func hostCandidates(raw string) []string {
	out := []string{raw}
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return []string{ap.Addr().String()}
	}
	if strings.HasPrefix(raw, "[") {
		if end := strings.Index(raw, "]"); end > 0 {
			out = append(out, raw[1:end])
		}
	}
	if idx := strings.LastIndex(raw, ":"); idx > 0 && strings.Count(raw, ":") == 1 {
		out = append(out, raw[:idx])
	}
	return out
}

// ClientIP resolves the caller's IP. Forwarding headers are honoured only
// when the service sits behind a trusted proxy.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// XFF can be a list: client, proxy1, proxy2...
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip, ok := NormalizeIP(first); ok {
				return ip
			}
		}
		if ip, ok := NormalizeIP(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}
	if ip, ok := NormalizeIP(r.RemoteAddr); ok {
		return ip
	}
	return r.RemoteAddr
}

// TruncateUserAgent caps ua at MaxUserAgentLength runes.
func TruncateUserAgent(ua string) string {
	if utf8.RuneCountInString(ua) <= MaxUserAgentLength {
		return ua
	}
	n := 0
	for i := range ua {
		if n == MaxUserAgentLength {
			return ua[:i]
		}
		n++
	}
	return ua
}
