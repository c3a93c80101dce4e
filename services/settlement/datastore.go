package settlement

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/corridor-intl/rail-go/libs/datastore"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var countPaymentsSettled = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "count_payments_settled",
		Help: "Number of payments claimed into settlement batches",
	},
	[]string{"window"},
)

func init() {
	prometheus.MustRegister(countPaymentsSettled)
}

// Datastore abstracts over the settlement datastore
type Datastore interface {
	datastore.Datastore
	// CloseBatch atomically claims the window's eligible payments into a new
	// batch, nil when the window had nothing to settle
	CloseBatch(ctx context.Context, batchID uuid.UUID, window Window) (*Batch, error)
	// GetBacklog summarizes the unbatched APPROVED payments
	GetBacklog(ctx context.Context, intradayBound, eodBound time.Time) (*Backlog, error)
	// GetRecentBatches returns the newest closed batches
	GetRecentBatches(ctx context.Context, limit int) ([]Batch, error)
	// GetUnbatchedApproved returns the current backlog rows for netting
	GetUnbatchedApproved(ctx context.Context) ([]EligiblePayment, error)
	// GetBatch returns a single batch, nil when absent
	GetBatch(ctx context.Context, batchID uuid.UUID) (*Batch, error)
	// GetBatchPayments returns the payments a batch claimed
	GetBatchPayments(ctx context.Context, batchID uuid.UUID) ([]BatchPayment, error)
}

// Postgres is a Datastore wrapper around a postgres connection
type Postgres struct {
	datastore.Postgres
}

// NewDB creates a new Postgres Datastore
func NewDB(databaseURL string, performMigration bool, dbStatsPrefix ...string) (Datastore, error) {
	pg, err := datastore.NewPostgres(databaseURL, performMigration, dbStatsPrefix...)
	if pg != nil {
		return &DatastoreWithPrometheus{
			base: &Postgres{*pg}, instanceName: "settlement_datastore",
		}, err
	}
	return nil, err
}

// NewPostgres creates a postgres Datastore from the environment
func NewPostgres() (Datastore, error) {
	return NewDB("", true, "settlement_db")
}

// CloseBatch atomically claims the window's eligible payments into a new
// batch. Selection locks the candidate rows with SKIP LOCKED so two
// concurrent closes split the backlog instead of fighting over it, and the
// NULL to batch id transition on payments happens in the same transaction
// as the batch insert.
func (pg *Postgres) CloseBatch(ctx context.Context, batchID uuid.UUID, window Window) (*Batch, error) {
	tx, err := pg.RawDB().Beginx()
	if err != nil {
		return nil, err
	}
	defer pg.RollbackTx(tx)

	now := time.Now().UTC()

	statement := `
	select transaction_id, amount, currency, debtor_account, creditor_account, settlement_method
	from payments
	where status = 'APPROVED' and settlement_batch_id is null and created_at >= $1
	for update skip locked`

	eligible := []EligiblePayment{}
	if err := tx.SelectContext(ctx, &eligible, statement, window.LowerBound(now)); err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	total := decimal.Zero
	transactionIDs := make([]uuid.UUID, len(eligible))
	for i, payment := range eligible {
		total = total.Add(payment.Amount)
		transactionIDs[i] = payment.TransactionID
	}
	positions := CalculateNetPositions(eligible)

	insertBatch := `
	insert into settlement_batches (batch_id, window_type, total_transactions, total_amount, net_positions, status, closed_at)
	values ($1, $2, $3, $4, $5, 'CLOSED', $6)
	returning *`

	var batch Batch
	err = tx.GetContext(ctx, &batch, insertBatch,
		batchID, window, len(eligible), total, positions, now)
	if err != nil {
		return nil, err
	}

	insertDetail := `
	insert into settlement_details (transaction_id, batch_id, window_type, settlement_method, net_amount, settled_at)
	values ($1, $2, $3, $4, $5, $6)`

	for _, payment := range eligible {
		_, err = tx.ExecContext(ctx, insertDetail,
			payment.TransactionID, batchID, window, payment.SettlementMethod, payment.Amount, now)
		if err != nil {
			return nil, err
		}
	}

	update := `
	update payments
	set settlement_batch_id = $1, status = 'SETTLED', updated_at = $2
	where transaction_id = any($3)`

	if _, err := tx.ExecContext(ctx, update, batchID, now, pq.Array(transactionIDs)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	countPaymentsSettled.With(prometheus.Labels{"window": string(window)}).
		Add(float64(len(eligible)))
	return &batch, nil
}

// GetBacklog summarizes the unbatched APPROVED payments, including how many
// would qualify under each window's lower bound
func (pg *Postgres) GetBacklog(ctx context.Context, intradayBound, eodBound time.Time) (*Backlog, error) {
	statement := `
	select
		count(*) as transaction_count,
		count(*) filter (where created_at >= $1) as intraday_eligible,
		count(*) filter (where created_at >= $2) as eod_eligible,
		coalesce(sum(amount), 0) as total_amount,
		min(created_at) as oldest_transaction
	from payments
	where status = 'APPROVED' and settlement_batch_id is null`

	var backlog Backlog
	if err := pg.RawDB().GetContext(ctx, &backlog, statement, intradayBound, eodBound); err != nil {
		return nil, err
	}
	return &backlog, nil
}

// GetRecentBatches returns the newest closed batches
func (pg *Postgres) GetRecentBatches(ctx context.Context, limit int) ([]Batch, error) {
	statement := `
	select * from settlement_batches
	order by closed_at desc
	limit $1`

	batches := []Batch{}
	if err := pg.RawDB().SelectContext(ctx, &batches, statement, limit); err != nil {
		return nil, err
	}
	return batches, nil
}

// GetUnbatchedApproved returns the current backlog rows for netting
func (pg *Postgres) GetUnbatchedApproved(ctx context.Context) ([]EligiblePayment, error) {
	statement := `
	select transaction_id, amount, currency, debtor_account, creditor_account, settlement_method
	from payments
	where status = 'APPROVED' and settlement_batch_id is null`

	eligible := []EligiblePayment{}
	if err := pg.RawDB().SelectContext(ctx, &eligible, statement); err != nil {
		return nil, err
	}
	return eligible, nil
}

// GetBatch returns a single batch, nil when absent
func (pg *Postgres) GetBatch(ctx context.Context, batchID uuid.UUID) (*Batch, error) {
	statement := `select * from settlement_batches where batch_id = $1`

	var batch Batch
	err := pg.RawDB().GetContext(ctx, &batch, statement, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// GetBatchPayments returns the payments a batch claimed
func (pg *Postgres) GetBatchPayments(ctx context.Context, batchID uuid.UUID) ([]BatchPayment, error) {
	statement := `
	select transaction_id, uetr, amount, currency, debtor_account, creditor_account, status
	from payments
	where settlement_batch_id = $1`

	batchPayments := []BatchPayment{}
	if err := pg.RawDB().SelectContext(ctx, &batchPayments, statement, batchID); err != nil {
		return nil, err
	}
	return batchPayments, nil
}
