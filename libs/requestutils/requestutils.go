package requestutils

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/corridor-intl/rail-go/libs/closers"
	errorutils "github.com/corridor-intl/rail-go/libs/errors"
	"github.com/corridor-intl/rail-go/libs/logging"
)

type requestID string
type correlationID string

var (
	payloadLimit1MB = int64(1024 * 1024)
	// RequestIDHeaderKey is the request header key
	RequestIDHeaderKey = "x-request-id"
	// RequestID holds the type for request ids
	RequestID = requestID(RequestIDHeaderKey)
	// CorrelationHeaderKey carries the reference a correspondent rail chose
	// for its side of a transfer
	CorrelationHeaderKey = "X-Correlation-ID"
	// CorrelationID holds the type for correlation ids
	CorrelationID = correlationID(CorrelationHeaderKey)
	// IdempotencyKeyHeaderKey carries the client-chosen idempotency key
	IdempotencyKeyHeaderKey = "Idempotency-Key"
	// HostHeaderKey is the host header key
	HostHeaderKey = "host"
	// XForwardedHostHeaderKey is the forwarded host header key
	XForwardedHostHeaderKey = "X-Forwarded-Host"
)

// ReadWithLimit reads an io reader with a limit and closes
func ReadWithLimit(ctx context.Context, body io.Reader, limit int64) ([]byte, error) {
	defer closers.Panic(ctx, body.(io.Closer))
	return io.ReadAll(io.LimitReader(body, limit))
}

// Read an io reader
func Read(ctx context.Context, body io.Reader) ([]byte, error) {
	jsonString, err := ReadWithLimit(ctx, body, payloadLimit1MB)
	if err != nil {
		return nil, errorutils.Wrap(err, "error reading body")
	}
	return jsonString, nil
}

// ReadJSON reads a request body according to an interface and limits the size to 1MB
func ReadJSON(ctx context.Context, body io.Reader, intr interface{}) error {
	logger := logging.Logger(ctx, "requestutils.ReadJSON")
	if body == nil {
		return errorutils.New(errors.New("body is nil"), "Error in request body", nil)
	}
	jsonString, err := Read(ctx, body)
	if err != nil {
		return err
	}
	logger.Debug().Str("json", string(jsonString)).Msg("read payload")
	err = json.Unmarshal(jsonString, &intr)
	if err != nil {
		return errorutils.Wrap(err, "error unmarshalling body")
	}
	return nil
}

// GetRequestID gets the request id
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(RequestID).(string); ok {
		return reqID
	}
	return ""
}

// GetCorrelationID gets the correspondent supplied correlation id, empty when
// the caller sent none
func GetCorrelationID(ctx context.Context) string {
	if corrID, ok := ctx.Value(CorrelationID).(string); ok {
		return corrID
	}
	return ""
}
