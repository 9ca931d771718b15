package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/voicenotes/logger"
)

var quietPaths = map[string]bool{"/health": true, "/alive": true}

// RequestLogger logs one line per request at a level chosen by status.
// Health probes are not logged.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)

			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", elapsed.Milliseconds(),
				"bytes", sw.bytes,
			)
			if elapsed > 500*time.Millisecond {
				fields["slow"] = true
			}
			l := log.WithContext(r.Context())
			switch {
			case sw.status >= 500:
				l.Error("Request completed", fields)
			case sw.status >= 400:
				l.Warn("Request completed", fields)
			default:
				l.Debug("Request completed", fields)
			}
		})
	}
}
