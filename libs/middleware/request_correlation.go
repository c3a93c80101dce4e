package middleware

import (
	"context"
	"net/http"

	"github.com/corridor-intl/rail-go/libs/requestutils"
)

// CorrelationTransfer echoes a caller supplied X-Correlation-ID back on the
// response and carries it on the request context. Correspondent rails quote
// their own reference on every instruction so both sides can line up logs.
func CorrelationTransfer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get(requestutils.CorrelationHeaderKey)
		if corrID == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set(requestutils.CorrelationHeaderKey, corrID)
		ctx := context.WithValue(r.Context(), requestutils.CorrelationID, corrID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
