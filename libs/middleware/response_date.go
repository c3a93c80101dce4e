package middleware

import (
	"net/http"
	"time"
)

// SetResponseDate stamps every response with an explicit UTC Date header.
// Settlement cutoffs are reconciled against this clock, not the client's.
func SetResponseDate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("date", time.Now().UTC().Format(http.TimeFormat))
			next.ServeHTTP(w, r)
		})
	}
}
