//go:build integration

package payment

import (
	"context"
	"testing"

	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PostgresTestSuite struct {
	suite.Suite
}

func TestPostgresTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresTestSuite))
}

func (suite *PostgresTestSuite) SetupSuite() {
	pg, err := NewPostgres()
	suite.Require().NoError(err, "Failed to get postgres conn")

	m, err := pg.NewMigrate()
	suite.Require().NoError(err, "Failed to create migrate instance")

	ver, dirty, _ := m.Version()
	if dirty {
		suite.Require().NoError(m.Force(int(ver)))
	}
	if ver > 0 {
		suite.Require().NoError(m.Down(), "Failed to migrate down cleanly")
	}

	suite.Require().NoError(pg.Migrate(), "Failed to fully migrate")
}

func (suite *PostgresTestSuite) SetupTest() {
	suite.CleanDB()
}

func (suite *PostgresTestSuite) TearDownTest() {
	suite.CleanDB()
}

func (suite *PostgresTestSuite) CleanDB() {
	tables := []string{"settlement_details", "ledger_proofs", "payments"}

	pg, err := NewPostgres()
	suite.Require().NoError(err, "Failed to get postgres conn")

	for _, table := range tables {
		_, err = pg.RawDB().Exec("delete from " + table)
		suite.Require().NoError(err, "Failed to get clean table")
	}
}

func testPayment() *Payment {
	transactionID, _ := uuid.NewV7()
	return &Payment{
		TransactionID:    transactionID,
		UETR:             uuid.New(),
		Amount:           decimal.NewFromFloat(1500),
		Currency:         "USD",
		DebtorAccount:    "GB29NWBK60161331926819",
		CreditorAccount:  "DE89370400440532013000",
		PaymentPurpose:   payments.CategoryTrade,
		SettlementMethod: payments.MethodPVP,
		Status:           payments.StatusInitiated,
		IdempotencyKey:   uuid.New(),
	}
}

func (suite *PostgresTestSuite) TestInsertPayment() {
	pg, err := NewPostgres()
	suite.Require().NoError(err)

	ctx := context.Background()

	payment := testPayment()
	created, isNew, err := pg.InsertPayment(ctx, payment)
	suite.Require().NoError(err, "Save payment should succeed")
	suite.Require().True(isNew)
	suite.Assert().Equal(payments.StatusInitiated, created.Status)
	suite.Assert().False(created.CreatedAt.IsZero())

	// a repeated key hands back the first row untouched
	duplicate := testPayment()
	duplicate.IdempotencyKey = payment.IdempotencyKey
	replayed, isNew, err := pg.InsertPayment(ctx, duplicate)
	suite.Require().NoError(err)
	suite.Require().False(isNew)
	suite.Assert().Equal(created.TransactionID, replayed.TransactionID)
	suite.Assert().Equal(created.UETR, replayed.UETR)
}

func (suite *PostgresTestSuite) TestGetPayment() {
	pg, err := NewPostgres()
	suite.Require().NoError(err)

	ctx := context.Background()

	created, _, err := pg.InsertPayment(ctx, testPayment())
	suite.Require().NoError(err)

	found, err := pg.GetPayment(ctx, created.TransactionID)
	suite.Require().NoError(err)
	suite.Require().NotNil(found)
	suite.Assert().Equal(created.TransactionID, found.TransactionID)
	suite.Assert().True(created.Amount.Equal(found.Amount))

	missing, err := pg.GetPayment(ctx, uuid.New())
	suite.Require().NoError(err)
	suite.Assert().Nil(missing)
}

func (suite *PostgresTestSuite) TestCancelPayment() {
	pg, err := NewPostgres()
	suite.Require().NoError(err)

	ctx := context.Background()

	created, _, err := pg.InsertPayment(ctx, testPayment())
	suite.Require().NoError(err)

	cancelled, err := pg.CancelPayment(ctx, created.TransactionID)
	suite.Require().NoError(err)
	suite.Require().NotNil(cancelled)
	suite.Assert().Equal(payments.StatusCancelled, cancelled.Status)
	suite.Assert().True(cancelled.UpdatedAt.After(created.UpdatedAt) || cancelled.UpdatedAt.Equal(created.UpdatedAt))
}

func (suite *PostgresTestSuite) TestCancelPaymentAfterSettlement() {
	pg, err := NewPostgres()
	suite.Require().NoError(err)

	ctx := context.Background()

	created, _, err := pg.InsertPayment(ctx, testPayment())
	suite.Require().NoError(err)

	_, err = pg.RawDB().Exec("update payments set status = 'SETTLED' where transaction_id = $1", created.TransactionID)
	suite.Require().NoError(err)

	cancelled, err := pg.CancelPayment(ctx, created.TransactionID)
	suite.Require().NoError(err)
	suite.Assert().Nil(cancelled, "settled payments must not be cancellable")

	found, err := pg.GetPayment(ctx, created.TransactionID)
	suite.Require().NoError(err)
	suite.Assert().Equal(payments.StatusSettled, found.Status)
}
