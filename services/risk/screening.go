package risk

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// ScreeningHandler consumes payment.initiated and walks each new payment
// through the screening gate before settlement can claim it
type ScreeningHandler struct {
	service *Service
}

// NewScreeningHandler creates a handler over the risk service
func NewScreeningHandler(service *Service) *ScreeningHandler {
	return &ScreeningHandler{service: service}
}

// Handle implements kafka.Handler for payment.initiated messages
func (h *ScreeningHandler) Handle(ctx context.Context, message kafkago.Message) error {
	envelope, err := event.NewMessageFromBytes(message.Value)
	if err != nil {
		return err
	}

	var payload struct {
		TransactionID uuid.UUID `json:"transaction_id"`
	}
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return fmt.Errorf("screening: error unmarshalling payment.initiated payload: %w", err)
	}
	if payload.TransactionID == uuid.Nil {
		return fmt.Errorf("screening: payment.initiated payload has no transaction id")
	}

	return h.service.ScreenPayment(ctx, payload.TransactionID)
}

// ScreenPayment drives a freshly initiated payment through the screening
// gate. The stored assessment is the decision: a manual review verdict holds
// the payment at SCREENED for an operator, anything else clears it for the
// next settlement window. Redelivered messages resume a payment stuck at
// VALIDATED and skip payments the pipeline already moved past.
func (service *Service) ScreenPayment(ctx context.Context, transactionID uuid.UUID) error {
	logger := logging.Logger(ctx, "risk.ScreenPayment")

	status, err := service.Datastore.GetPaymentStatus(ctx, transactionID)
	if err != nil {
		return err
	}
	if status == "" {
		logger.Warn().Str("transaction_id", transactionID.String()).Msg("payment missing, skipping screening")
		return nil
	}
	if status.Terminal() {
		// cancelled or failed before the gate ran
		return nil
	}

	if status == payments.StatusInitiated {
		moved, err := service.advancePayment(ctx, transactionID, payments.StatusInitiated, payments.StatusValidated, "risk_screening")
		if err != nil {
			return err
		}
		if !moved {
			// another instance holds the payment and finishes the job
			return nil
		}
		status = payments.StatusValidated
	}
	if status != payments.StatusValidated {
		// already past the gate
		return nil
	}

	assessment, err := service.AssessTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	moved, err := service.advancePayment(ctx, transactionID, payments.StatusValidated, payments.StatusScreened, "awaiting_approval")
	if err != nil || !moved {
		return err
	}

	if assessment.RecommendedAction == ActionManualReview {
		logger.Info().
			Str("transaction_id", transactionID.String()).
			Str("risk_score", assessment.RiskScore.String()).
			Msg("payment held for manual review")
		return nil
	}

	_, err = service.advancePayment(ctx, transactionID, payments.StatusScreened, payments.StatusApproved, "awaiting_settlement")
	return err
}

// advancePayment moves a payment one step forward under the transition
// table. The datastore update is a compare-and-set on the expected current
// status, so a raced advance reports not moved instead of overwriting the
// winner.
func (service *Service) advancePayment(ctx context.Context, transactionID uuid.UUID, from, to payments.TransactionStatus, step string) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("illegal status transition %s -> %s", from, to)
	}
	return service.Datastore.AdvancePaymentStatus(ctx, transactionID, from, to, step)
}

// ScreeningErrorHandler forwards messages screening could not process to the
// dead letter topic so payments wedged mid-pipeline stay visible. A failed
// forward stops the consumer rather than silently dropping the payment.
type ScreeningErrorHandler struct {
	bus event.Publisher
}

// NewScreeningErrorHandler creates an error handler publishing dead letters on bus
func NewScreeningErrorHandler(bus event.Publisher) *ScreeningErrorHandler {
	return &ScreeningErrorHandler{bus: bus}
}

// Handle implements kafka.ErrorHandler
func (h *ScreeningErrorHandler) Handle(ctx context.Context, message kafkago.Message, errorMessage error) error {
	logging.Logger(ctx, "risk.ScreeningErrorHandler").Error().
		Err(errorMessage).
		Int("partition", message.Partition).
		Int64("offset", message.Offset).
		Msg("screening failed, forwarding to dead letter topic")

	return h.bus.Publish(ctx, event.TopicScreeningDeadLetter, &ScreeningDeadLetter{
		Key:       string(message.Key),
		Value:     message.Value,
		Error:     errorMessage.Error(),
		Partition: message.Partition,
		Offset:    message.Offset,
	})
}
