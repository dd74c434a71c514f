package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dukerupert/mailrelay/internal/domain"
)

// Common size limits
const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize is the default maximum request body size (1MB).
	// A plain-text mail request never needs more.
	DefaultMaxBodySize = 1 * MB
)

// DefaultTimeout is the default request timeout. It must exceed the SMTP timeout
// so a slow relay surfaces as a delivery failure rather than a 503.
const DefaultTimeout = 60 * time.Second

// MaxBodySize limits the size of request bodies.
// If no size is provided, DefaultMaxBodySize is used.
// Bodies that declare a larger Content-Length are rejected with 413 before reading.
func MaxBodySize(maxBytes ...int64) func(http.Handler) http.Handler {
	limit := int64(DefaultMaxBodySize)
	if len(maxBytes) > 0 && maxBytes[0] > 0 {
		limit = maxBytes[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > limit {
				respondWithError(w, r, domain.Errorf(domain.ETOOLARGE, "http.body", "Request body too large"))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout cancels the request context after the given duration (DefaultTimeout
// if omitted) and answers 503 if the handler has not started responding by then.
// The handler writes headers into its own map, which is copied to the real
// response only when it responds first.
func Timeout(timeout ...time.Duration) func(http.Handler) http.Handler {
	duration := DefaultTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		duration = timeout[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()

			done := make(chan struct{})
			panicked := make(chan any, 1)

			tw := &timeoutWriter{w: w, h: w.Header().Clone()}

			go func() {
				defer close(done)
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				// Re-raise on the serving goroutine so Recovery can handle it.
				select {
				case p := <-panicked:
					panic(p)
				default:
				}
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()

				tw.timedOut = true
				if !tw.wroteHeader {
					respondWithError(w, r, domain.Errorf(domain.ETIMEOUT, "http.timeout", "Request timeout"))
				}
			}
		})
	}
}

// timeoutWriter drops writes after the deadline fired.
type timeoutWriter struct {
	w           http.ResponseWriter
	h           http.Header
	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.h
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.wroteHeader || tw.timedOut {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, context.DeadlineExceeded
	}
	if !tw.wroteHeader {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.w.Write(b)
}

// writeHeaderLocked replaces the real header map with the handler's and
// sends the status. Callers hold mu.
func (tw *timeoutWriter) writeHeaderLocked(code int) {
	dst := tw.w.Header()
	clear(dst)
	for k, v := range tw.h {
		dst[k] = v
	}
	tw.wroteHeader = true
	tw.w.WriteHeader(code)
}
