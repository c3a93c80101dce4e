package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/corridor-intl/rail-go/libs/datastore"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// counter for accepted instructions partitioned by corridor inputs
	countPaymentInitiated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "count_payment_initiated",
			Help: "provides a count of initiated payments partitioned by currency and settlement method",
		},
		[]string{"currency", "settlement_method"},
	)
)

func init() {
	prometheus.MustRegister(countPaymentInitiated)
}

// Datastore abstracts over the underlying datastore
type Datastore interface {
	datastore.Datastore
	// InsertPayment creates a payment in INITIATED, honoring the idempotency key
	InsertPayment(ctx context.Context, payment *Payment) (*Payment, bool, error)
	// GetPayment retrieves a payment by transaction id, nil when absent
	GetPayment(ctx context.Context, transactionID uuid.UUID) (*Payment, error)
	// GetSettlementDetail retrieves the netting record for a settled payment, nil when absent
	GetSettlementDetail(ctx context.Context, transactionID uuid.UUID) (*SettlementDetail, error)
	// GetLedgerProof retrieves the anchoring proof for a completed payment, nil when absent
	GetLedgerProof(ctx context.Context, transactionID uuid.UUID) (*LedgerProof, error)
	// CancelPayment marks a still-cancellable payment CANCELLED, nil when no row qualified
	CancelPayment(ctx context.Context, transactionID uuid.UUID) (*Payment, error)
}

// Postgres is a Datastore wrapper around a postgres database
type Postgres struct {
	datastore.Postgres
}

// NewDB creates a new Postgres Datastore
func NewDB(databaseURL string, performMigration bool, dbStatsPrefix ...string) (Datastore, error) {
	pg, err := datastore.NewPostgres(databaseURL, performMigration, dbStatsPrefix...)
	if pg != nil {
		return &DatastoreWithPrometheus{
			base: &Postgres{*pg}, instanceName: "payment_datastore",
		}, err
	}
	return nil, err
}

// NewPostgres creates a new Postgres Datastore from the environment
func NewPostgres() (Datastore, error) {
	return NewDB("", true, "payment_db")
}

// InsertPayment writes the INITIATED row. A repeated idempotency key is not an
// error, the first row wins and is handed back with created false.
func (pg *Postgres) InsertPayment(ctx context.Context, payment *Payment) (*Payment, bool, error) {
	statement := `
	insert into payments (transaction_id, uetr, amount, currency, debtor_account, creditor_account, payment_purpose, settlement_method, status, idempotency_key)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	on conflict (idempotency_key) do nothing
	returning *`

	var inserted Payment
	err := pg.RawDB().GetContext(ctx, &inserted, statement,
		payment.TransactionID,
		payment.UETR,
		payment.Amount,
		payment.Currency,
		payment.DebtorAccount,
		payment.CreditorAccount,
		payment.PaymentPurpose,
		payment.SettlementMethod,
		payment.Status,
		payment.IdempotencyKey,
	)
	if err == nil {
		countPaymentInitiated.With(prometheus.Labels{
			"currency":          inserted.Currency,
			"settlement_method": string(inserted.SettlementMethod),
		}).Inc()
		return &inserted, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	var existing Payment
	err = pg.RawDB().GetContext(ctx, &existing,
		"select * from payments where idempotency_key = $1", payment.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// GetPayment by transaction id
func (pg *Postgres) GetPayment(ctx context.Context, transactionID uuid.UUID) (*Payment, error) {
	statement := "select * from payments where transaction_id = $1"

	var payment Payment
	err := pg.RawDB().GetContext(ctx, &payment, statement, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetSettlementDetail for a payment that made it into a batch
func (pg *Postgres) GetSettlementDetail(ctx context.Context, transactionID uuid.UUID) (*SettlementDetail, error) {
	statement := `
	select transaction_id, batch_id, window_type, settlement_method, net_amount, settled_at
	from settlement_details
	where transaction_id = $1`

	var detail SettlementDetail
	err := pg.RawDB().GetContext(ctx, &detail, statement, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetLedgerProof for a payment the ledger has anchored
func (pg *Postgres) GetLedgerProof(ctx context.Context, transactionID uuid.UUID) (*LedgerProof, error) {
	statement := `
	select transaction_id, proof_id, merkle_root, block_reference, anchored_at
	from ledger_proofs
	where transaction_id = $1`

	var proof LedgerProof
	err := pg.RawDB().GetContext(ctx, &proof, statement, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

// CancelPayment flips the row to CANCELLED unless settlement already claimed it.
// The guard lives in the statement so a concurrent batch close cannot race the
// status check.
func (pg *Postgres) CancelPayment(ctx context.Context, transactionID uuid.UUID) (*Payment, error) {
	statement := `
	update payments
	set status = 'CANCELLED', updated_at = current_timestamp
	where transaction_id = $1 and status not in ('SETTLED', 'COMPLETED')
	returning *`

	var payment Payment
	err := pg.RawDB().GetContext(ctx, &payment, statement, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
