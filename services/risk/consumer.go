package risk

import (
	"context"

	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/kv"
	"github.com/corridor-intl/rail-go/libs/logging"
	kafkago "github.com/segmentio/kafka-go"
)

// ModeChangeHandler drops the cached metrics when another instance changes
// the risk mode, so the next metrics read scores under the new thresholds
// instead of waiting out the cache TTL.
type ModeChangeHandler struct {
	cache kv.Store
}

// NewModeChangeHandler creates a handler over the shared cache
func NewModeChangeHandler(cache kv.Store) *ModeChangeHandler {
	return &ModeChangeHandler{cache: cache}
}

// Handle implements kafka.Handler for risk.mode_changed messages
func (h *ModeChangeHandler) Handle(ctx context.Context, message kafkago.Message) error {
	envelope, err := event.NewMessageFromBytes(message.Value)
	if err != nil {
		return err
	}

	logging.Logger(ctx, "risk.ModeChangeHandler").Info().
		Str("message_id", envelope.MessageID.String()).
		Msg("risk mode changed, dropping cached metrics")

	return h.cache.Del(ctx, metricsCacheKey)
}

// ModeChangeErrorHandler logs and swallows failed mode change messages. A
// message we cannot act on only delays a cache refresh by at most the
// metrics TTL, so it is never worth stalling the partition over.
type ModeChangeErrorHandler struct{}

// Handle implements kafka.ErrorHandler
func (ModeChangeErrorHandler) Handle(ctx context.Context, message kafkago.Message, errorMessage error) error {
	logging.Logger(ctx, "risk.ModeChangeErrorHandler").Error().
		Err(errorMessage).
		Int("partition", message.Partition).
		Int64("offset", message.Offset).
		Msg("failed to process mode change message")
	return nil
}
