package middleware

import (
	"net/http"
	"strconv"
)

// SecurityHeadersConfig configures security headers for JSON responses.
type SecurityHeadersConfig struct {
	// FrameOptions sets X-Frame-Options. Default: DENY
	FrameOptions string

	// ContentTypeNosniff sets X-Content-Type-Options: nosniff. Default: true
	ContentTypeNosniff bool

	// ReferrerPolicy sets Referrer-Policy. Default: no-referrer
	ReferrerPolicy string

	// CacheControl sets Cache-Control. Default: no-store, since status
	// responses describe live configuration.
	CacheControl string

	// HSTSMaxAge sets Strict-Transport-Security max-age in seconds.
	// 0 disables the header, which is the default because the relay
	// usually listens on plain HTTP behind a proxy.
	HSTSMaxAge int
}

// DefaultSecurityHeadersConfig returns the defaults for an API-only service.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		FrameOptions:       "DENY",
		ContentTypeNosniff: true,
		ReferrerPolicy:     "no-referrer",
		CacheControl:       "no-store",
	}
}

// SecurityHeaders adds security headers to all responses
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			if config.FrameOptions != "" {
				h.Set("X-Frame-Options", config.FrameOptions)
			}
			if config.ContentTypeNosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			if config.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", config.ReferrerPolicy)
			}
			if config.CacheControl != "" {
				h.Set("Cache-Control", config.CacheControl)
			}
			if config.HSTSMaxAge > 0 {
				h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(config.HSTSMaxAge))
			}

			next.ServeHTTP(w, r)
		})
	}
}
