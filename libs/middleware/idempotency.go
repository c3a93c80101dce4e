package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	chiware "github.com/go-chi/chi/middleware"

	appctx "github.com/corridor-intl/rail-go/libs/context"
	"github.com/corridor-intl/rail-go/libs/handlers"
	"github.com/corridor-intl/rail-go/libs/kv"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/libs/requestutils"
)

const (
	idempotencyPrefix = "idempotency:"
	// how long a replayed response stays available
	defaultIdempotencyTTL = time.Hour
	// how long the in flight marker held by the first writer lives
	inflightTTL = 5 * time.Second
	// how long a concurrent duplicate waits for the first writer to finish
	inflightWait = 2 * time.Second
	inflightPoll = 200 * time.Millisecond
	// budget for the detached store writes after the response went out
	recordTimeout = 2 * time.Second
)

// replayRecord is the persisted shape of a completed mutating response.
type replayRecord struct {
	Status     string            `json:"status"`
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Idempotency makes mutating requests replay safe. POST requests must carry
// an Idempotency-Key header holding a v4 UUID, a repeated key within the ttl
// gets the recorded first response back verbatim. PUT and PATCH requests may
// carry a key, without one they pass through unrecorded. Only 2xx responses
// are recorded, a failed attempt may be retried with the same key. The store
// is best effort throughout, when it is unreachable requests are processed
// as if the key were new.
func Idempotency(store kv.Store, ttl time.Duration) func(next http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			logger := logging.Logger(ctx, "middleware.Idempotency")

			key := r.Header.Get(requestutils.IdempotencyKeyHeaderKey)
			if key == "" {
				if r.Method == http.MethodPost {
					handlers.CodedError(
						nil,
						handlers.MissingIdempotencyKeyCode,
						"Idempotency-Key header is required for POST requests",
					).ServeHTTP(w, r)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !govalidator.IsUUIDv4(key) {
				handlers.CodedError(
					nil,
					handlers.InvalidIdempotencyKeyCode,
					"Idempotency-Key must be a valid v4 UUID",
				).ServeHTTP(w, r)
				return
			}

			// downstream handlers persist the key alongside what they write
			ctx = context.WithValue(ctx, appctx.IdempotencyKeyCTXKey, key)
			r = r.WithContext(ctx)

			cacheKey := idempotencyPrefix + key

			if replayed := replay(w, store, cacheKey, r); replayed {
				logger.Info().Str("idempotency_key", key).Msg("replaying recorded response")
				return
			}

			// first writer wins, concurrent duplicates wait for its record
			acquired, err := store.SetNX(ctx, cacheKey+":inflight", "1", inflightTTL)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to set in flight marker, processing anyway")
				acquired = true
			}
			if acquired {
				defer func() {
					// clear the marker even when the client already hung up
					delCtx, cancel := appctx.Detach(ctx, recordTimeout)
					defer cancel()
					if err := store.Del(delCtx, cacheKey+":inflight"); err != nil {
						logger.Warn().Err(err).Msg("failed to clear in flight marker")
					}
				}()
			} else {
				deadline := time.Now().Add(inflightWait)
				for time.Now().Before(deadline) {
					time.Sleep(inflightPoll)
					if replayed := replay(w, store, cacheKey, r); replayed {
						logger.Info().Str("idempotency_key", key).Msg("replaying response recorded by concurrent request")
						return
					}
				}
				// the first writer never recorded, fall through and process
			}

			var buf bytes.Buffer
			ww := chiware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&buf)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status < 200 || status >= 300 {
				return
			}

			record := replayRecord{
				Status:     "completed",
				StatusCode: status,
				Headers:    map[string]string{},
				Body:       buf.String(),
				CreatedAt:  time.Now().UTC(),
			}
			for name := range ww.Header() {
				record.Headers[name] = ww.Header().Get(name)
			}

			data, err := json.Marshal(record)
			if err != nil {
				logger.Error().Err(err).Msg("failed to marshal replay record")
				return
			}
			// the response is already on the wire, recording it must not be
			// lost to the request context tearing down
			storeCtx, cancel := appctx.Detach(ctx, recordTimeout)
			defer cancel()
			if err := store.Set(storeCtx, cacheKey, string(data), ttl); err != nil {
				logger.Warn().Err(err).Str("idempotency_key", key).Msg("failed to record response")
			}
		})
	}
}

// replay writes the recorded response for cacheKey if one exists, reporting
// whether it did. Store and decode failures count as a miss.
func replay(w http.ResponseWriter, store kv.Store, cacheKey string, r *http.Request) bool {
	logger := logging.Logger(r.Context(), "middleware.Idempotency")

	raw, err := store.Get(r.Context(), cacheKey)
	if err != nil {
		if err != kv.ErrMiss {
			logger.Warn().Err(err).Msg("failed to check replay record, treating as a miss")
		}
		return false
	}

	var record replayRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		logger.Error().Err(err).Msg("corrupt replay record, treating as a miss")
		return false
	}

	for name, value := range record.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(record.StatusCode)
	if _, err := w.Write([]byte(record.Body)); err != nil {
		logger.Error().Err(err).Msg("failed to write replayed response")
	}
	return true
}
