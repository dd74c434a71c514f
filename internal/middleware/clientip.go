package middleware

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP returns the caller address for logging. X-Forwarded-For and
// X-Real-IP are honoured first since the relay usually sits behind a proxy;
// these headers are spoofable and must not be used for access decisions.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
