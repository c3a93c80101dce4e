package risk_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/corridor-intl/rail-go/services/payment"
	"github.com/corridor-intl/rail-go/services/risk"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var statusColumns = []string{"status"}

func initiatedEnvelope(t *testing.T, transactionID uuid.UUID) []byte {
	envelope, err := event.NewMessage(&payment.InitiatedEvent{
		TransactionID: transactionID,
		Amount:        decimal.RequireFromString("50000.00"),
		Currency:      "EUR",
		DebtorAccount: "DE89370400440532013000",
		Status:        payments.StatusInitiated,
	})
	require.NoError(t, err)
	data, err := json.Marshal(envelope)
	require.NoError(t, err)
	return data
}

func TestScreeningHandlerApprovesPayment(t *testing.T) {
	service, mock, _, ctx := setupService(t)

	transactionID, err := uuid.NewV7()
	require.NoError(t, err)
	assessmentID, err := uuid.NewV7()
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery("select status from payments (.+)").
		WillReturnRows(sqlmock.NewRows(statusColumns).AddRow("INITIATED"))
	mock.ExpectExec("update payments set status (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select (.+) from payments where transaction_id (.+)").
		WillReturnRows(sqlmock.NewRows(
			[]string{"transaction_id", "amount", "currency", "debtor_account", "created_at"}).
			AddRow(transactionID.String(), "50000.00", "EUR", "DE89370400440532013000", now))
	mock.ExpectQuery("select count(.+) from payments (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("insert into risk_assessments (.+)").
		WillReturnRows(sqlmock.NewRows(assessmentColumns).AddRow(
			assessmentID.String(), transactionID.String(), "5.00", `[]`, "APPROVE", now,
		))
	mock.ExpectExec("update payments set status (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update payments set status (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	handler := risk.NewScreeningHandler(service)
	require.NoError(t, handler.Handle(ctx, kafkago.Message{Value: initiatedEnvelope(t, transactionID)}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScreenPaymentHoldsForManualReview(t *testing.T) {
	service, mock, _, ctx := setupService(t)

	transactionID, err := uuid.NewV7()
	require.NoError(t, err)
	assessmentID, err := uuid.NewV7()
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery("select status from payments (.+)").
		WillReturnRows(sqlmock.NewRows(statusColumns).AddRow("INITIATED"))
	mock.ExpectExec("update payments set status (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select (.+) from payments where transaction_id (.+)").
		WillReturnRows(sqlmock.NewRows(
			[]string{"transaction_id", "amount", "currency", "debtor_account", "created_at"}).
			AddRow(transactionID.String(), "250000.00", "AED", "AE070331234567890123456", now))
	mock.ExpectQuery("select count(.+) from payments (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	// the verdict holds the payment at SCREENED, no approval follows
	mock.ExpectQuery("insert into risk_assessments (.+)").
		WillReturnRows(sqlmock.NewRows(assessmentColumns).AddRow(
			assessmentID.String(), transactionID.String(), "45.00",
			`["HIGH_VALUE","HIGH_RISK_CURRENCY","HIGH_FREQUENCY"]`, "MANUAL_REVIEW", now,
		))
	mock.ExpectExec("update payments set status (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, service.ScreenPayment(ctx, transactionID))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScreenPaymentSkipsCancelled(t *testing.T) {
	service, mock, _, ctx := setupService(t)

	transactionID := uuid.New()

	mock.ExpectQuery("select status from payments (.+)").
		WillReturnRows(sqlmock.NewRows(statusColumns).AddRow("CANCELLED"))

	require.NoError(t, service.ScreenPayment(ctx, transactionID))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScreenPaymentSkipsAlreadyApproved(t *testing.T) {
	service, mock, _, ctx := setupService(t)

	transactionID := uuid.New()

	// a redelivered message for a payment already past the gate is a no-op
	mock.ExpectQuery("select status from payments (.+)").
		WillReturnRows(sqlmock.NewRows(statusColumns).AddRow("APPROVED"))

	require.NoError(t, service.ScreenPayment(ctx, transactionID))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScreenPaymentSkipsMissing(t *testing.T) {
	service, mock, _, ctx := setupService(t)

	transactionID := uuid.New()

	mock.ExpectQuery("select status from payments (.+)").
		WillReturnRows(sqlmock.NewRows(statusColumns))

	require.NoError(t, service.ScreenPayment(ctx, transactionID))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScreenPaymentYieldsWhenAnotherInstanceAdvances(t *testing.T) {
	service, mock, _, ctx := setupService(t)

	transactionID := uuid.New()

	mock.ExpectQuery("select status from payments (.+)").
		WillReturnRows(sqlmock.NewRows(statusColumns).AddRow("INITIATED"))
	// losing the compare-and-set means a peer owns the payment now
	mock.ExpectExec("update payments set status (.+)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, service.ScreenPayment(ctx, transactionID))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScreenPaymentResumesAfterRedelivery(t *testing.T) {
	service, mock, _, ctx := setupService(t)

	transactionID, err := uuid.NewV7()
	require.NoError(t, err)
	assessmentID, err := uuid.NewV7()
	require.NoError(t, err)
	now := time.Now().UTC()

	// a payment left at VALIDATED by a crashed consumer picks up at assessment
	mock.ExpectQuery("select status from payments (.+)").
		WillReturnRows(sqlmock.NewRows(statusColumns).AddRow("VALIDATED"))
	mock.ExpectQuery("select (.+) from payments where transaction_id (.+)").
		WillReturnRows(sqlmock.NewRows(
			[]string{"transaction_id", "amount", "currency", "debtor_account", "created_at"}).
			AddRow(transactionID.String(), "50000.00", "EUR", "DE89370400440532013000", now))
	mock.ExpectQuery("select count(.+) from payments (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("insert into risk_assessments (.+)").
		WillReturnRows(sqlmock.NewRows(assessmentColumns).AddRow(
			assessmentID.String(), transactionID.String(), "5.00", `[]`, "APPROVE", now,
		))
	mock.ExpectExec("update payments set status (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update payments set status (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, service.ScreenPayment(ctx, transactionID))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScreeningHandlerRejectsBadEnvelope(t *testing.T) {
	service, mock, _, ctx := setupService(t)

	handler := risk.NewScreeningHandler(service)
	err := handler.Handle(ctx, kafkago.Message{Value: []byte("not an envelope")})
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

type capturingPublisher struct {
	topic   string
	payload interface{}
}

func (p *capturingPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.topic = topic
	p.payload = payload
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func TestScreeningErrorHandlerForwardsToDeadLetter(t *testing.T) {
	ctx, _ := logging.SetupLogger(context.Background())

	bus := &capturingPublisher{}
	handler := risk.NewScreeningErrorHandler(bus)

	original := []byte(`{"message_id":"x"}`)
	err := handler.Handle(ctx, kafkago.Message{
		Topic:     event.TopicPaymentInitiated,
		Partition: 3,
		Offset:    42,
		Key:       []byte("key-1"),
		Value:     original,
	}, errors.New("screening failed"))
	require.NoError(t, err)

	assert.Equal(t, event.TopicScreeningDeadLetter, bus.topic)
	letter, ok := bus.payload.(*risk.ScreeningDeadLetter)
	require.True(t, ok)
	assert.Equal(t, "key-1", letter.Key)
	assert.Equal(t, json.RawMessage(original), letter.Value)
	assert.Equal(t, "screening failed", letter.Error)
	assert.Equal(t, 3, letter.Partition)
	assert.Equal(t, int64(42), letter.Offset)
}
