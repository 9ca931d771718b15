package middleware

import (
	"net/http"

	"github.com/kbukum/voicenotes/util"
)

const defaultMaxBodySize = 10 << 20

// BodySizeLimit caps request bodies at maxSize, for example "1MB".
func BodySizeLimit(maxSize string) Middleware {
	limit, err := util.ParseSize(maxSize)
	if err != nil || limit <= 0 {
		limit = defaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
