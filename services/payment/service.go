package payment

import (
	"context"

	errorutils "github.com/corridor-intl/rail-go/libs/errors"
	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/libs/payments"
	srv "github.com/corridor-intl/rail-go/libs/service"
	"github.com/google/uuid"
)

// Service contains datastore and event bus connections
type Service struct {
	Datastore Datastore
	bus       event.Publisher
	jobs      []srv.Job
}

// Jobs - Implement srv.JobService interface
func (service *Service) Jobs() []srv.Job {
	return service.jobs
}

// InitService creates a service using the passed datastore and event publisher
func InitService(ctx context.Context, datastore Datastore, bus event.Publisher) (*Service, error) {
	service := &Service{
		Datastore: datastore,
		bus:       bus,
		jobs:      []srv.Job{},
	}
	return service, nil
}

// InitiatePayment persists a new INITIATED instruction and announces it on the
// bus. A repeated idempotency key hands back the already accepted payment
// without a second insert or a second event.
func (service *Service) InitiatePayment(ctx context.Context, payment *Payment) (*Payment, bool, error) {
	transactionID, err := uuid.NewV7()
	if err != nil {
		return nil, false, err
	}
	payment.TransactionID = transactionID
	payment.UETR = uuid.New()
	payment.Status = payments.StatusInitiated

	created, isNew, err := service.Datastore.InsertPayment(ctx, payment)
	if err != nil {
		return nil, false, err
	}

	if isNew {
		service.publish(ctx, event.TopicPaymentInitiated, &InitiatedEvent{
			TransactionID:    created.TransactionID,
			UETR:             created.UETR,
			Amount:           created.Amount,
			Currency:         created.Currency,
			DebtorAccount:    created.DebtorAccount,
			CreditorAccount:  created.CreditorAccount,
			PaymentPurpose:   created.PaymentPurpose,
			SettlementMethod: created.SettlementMethod,
			Status:           created.Status,
			CreatedAt:        created.CreatedAt,
		})
	}

	return created, isNew, nil
}

// GetPaymentStatus assembles the pipeline view of a payment. Settlement
// details only exist once a batch claimed the payment, the ledger proof only
// once anchoring completed.
func (service *Service) GetPaymentStatus(ctx context.Context, transactionID uuid.UUID) (*StatusResponse, error) {
	payment, err := service.Datastore.GetPayment(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, errorutils.ErrNotFound
	}

	resp := &StatusResponse{
		TransactionID:       payment.TransactionID,
		UETR:                payment.UETR,
		Status:              payment.Status,
		CurrentStep:         payment.CurrentStep,
		EstimatedCompletion: payment.EstimatedCompletion,
	}

	if payment.Status == payments.StatusSettled || payment.Status == payments.StatusCompleted {
		detail, err := service.Datastore.GetSettlementDetail(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		resp.SettlementDetails = detail
	}

	if payment.Status == payments.StatusCompleted {
		proof, err := service.Datastore.GetLedgerProof(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		resp.LedgerProof = proof
	}

	return resp, nil
}

// CancelPayment withdraws an instruction settlement has not claimed yet
func (service *Service) CancelPayment(ctx context.Context, transactionID uuid.UUID) (*Payment, error) {
	cancelled, err := service.Datastore.CancelPayment(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if cancelled != nil {
		service.publish(ctx, event.TopicPaymentCancelled, &CancelledEvent{
			TransactionID: cancelled.TransactionID,
			CancelledAt:   cancelled.UpdatedAt,
		})
		return cancelled, nil
	}

	// no row qualified, work out which refusal applies
	payment, err := service.Datastore.GetPayment(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, errorutils.ErrNotFound
	}
	return nil, errorutils.ErrConflict
}

// publish sends an event on the bus, logging rather than surfacing failures.
// The row is already committed by the time we get here, the caller's response
// must not depend on bus health.
func (service *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if err := service.bus.Publish(ctx, topic, payload); err != nil {
		logging.Logger(ctx, "payment.publish").Error().Err(err).
			Str("topic", topic).
			Msg("failed to publish event")
	}
}
