package report

import (
	"context"
	"fmt"
	"time"

	"github.com/corridor-intl/rail-go/libs/datastore"
	"github.com/corridor-intl/rail-go/libs/inputs"
	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
)

var countReportsGenerated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "count_reports_generated",
		Help: "Number of reports generated",
	},
	[]string{"type"},
)

func init() {
	prometheus.MustRegister(countReportsGenerated)
}

// transactionReportLimit caps a single transaction report
const transactionReportLimit = 1000

// Datastore abstracts over the report datastore
type Datastore interface {
	datastore.Datastore
	// GetCurrencyBalances aggregates settled and pending volume per currency since the cutoff
	GetCurrencyBalances(ctx context.Context, since time.Time) ([]CurrencyBalance, error)
	// InsertReport persists a generated report
	InsertReport(ctx context.Context, report *Report) error
	// GetSettledPayments returns settled payments whose batch closed inside [dayStart, dayEnd)
	GetSettledPayments(ctx context.Context, dayStart, dayEnd time.Time) ([]SettledPayment, error)
	// GetBlockReferences returns the distinct ledger blocks anchoring the given transactions
	GetBlockReferences(ctx context.Context, transactionIDs []uuid.UUID) ([]string, error)
	// GetTransactions lists payments inside [start, end) under the optional status and currency filters
	GetTransactions(ctx context.Context, start, end time.Time, status payments.TransactionStatus, currency string, pagination *inputs.Pagination) ([]TransactionRow, error)
	// GetComplianceStats aggregates compliance counters over payments created inside [start, end)
	GetComplianceStats(ctx context.Context, start, end time.Time) (*ComplianceStats, error)
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
			base: &Postgres{*pg}, instanceName: "report_datastore",
		}, err
	}
	return nil, err
}

// NewPostgres creates a postgres Datastore from the environment
func NewPostgres() (Datastore, error) {
	return NewDB("", true, "report_db")
}

// GetCurrencyBalances aggregates settled and pending volume per currency since
// the cutoff. Settled covers payments at or past settlement, pending covers
// the live states still owed to creditors.
func (pg *Postgres) GetCurrencyBalances(ctx context.Context, since time.Time) ([]CurrencyBalance, error) {
	statement := `
	select
		currency,
		coalesce(sum(amount) filter (where status in ('SETTLED', 'COMPLETED')), 0) as settled_amount,
		coalesce(sum(amount) filter (where status in ('INITIATED', 'VALIDATED', 'SCREENED', 'APPROVED')), 0) as pending_amount
	from payments
	where created_at >= $1
	group by currency
	order by currency`

	balances := []CurrencyBalance{}
	if err := pg.RawDB().SelectContext(ctx, &balances, statement, since); err != nil {
		return nil, err
	}
	return balances, nil
}

// InsertReport persists a generated report
func (pg *Postgres) InsertReport(ctx context.Context, report *Report) error {
	statement := `
	insert into reports (report_id, report_type, payload, attestation_hash, generated_at)
	values ($1, $2, $3, $4, $5)`

	_, err := pg.RawDB().ExecContext(ctx, statement,
		report.ReportID,
		report.ReportType,
		[]byte(report.Payload),
		report.AttestationHash,
		report.GeneratedAt,
	)
	if err != nil {
		return err
	}

	countReportsGenerated.With(prometheus.Labels{"type": report.ReportType}).Inc()
	return nil
}

// GetSettledPayments returns settled payments whose batch closed inside
// [dayStart, dayEnd), ordered so rows of the same batch are adjacent
func (pg *Postgres) GetSettledPayments(ctx context.Context, dayStart, dayEnd time.Time) ([]SettledPayment, error) {
	statement := `
	select p.transaction_id, p.uetr, p.amount, p.currency,
		p.settlement_batch_id, sb.window_type, sb.closed_at
	from payments p
	join settlement_batches sb on p.settlement_batch_id = sb.batch_id
	where sb.closed_at >= $1 and sb.closed_at < $2 and p.status = 'SETTLED'
	order by sb.closed_at, p.transaction_id`

	settled := []SettledPayment{}
	if err := pg.RawDB().SelectContext(ctx, &settled, statement, dayStart, dayEnd); err != nil {
		return nil, err
	}
	return settled, nil
}

// GetBlockReferences returns the distinct ledger blocks anchoring the given
// transactions. Proof rows are written by the external anchoring pipeline,
// transactions it has not reached yet simply contribute nothing.
func (pg *Postgres) GetBlockReferences(ctx context.Context, transactionIDs []uuid.UUID) ([]string, error) {
	statement := `
	select distinct block_reference
	from ledger_proofs
	where transaction_id = any($1) and block_reference is not null
	order by block_reference`

	references := []string{}
	if err := pg.RawDB().SelectContext(ctx, &references, statement, pq.Array(transactionIDs)); err != nil {
		return nil, err
	}
	return references, nil
}

// GetTransactions lists payments inside [start, end) under the optional
// status and currency filters. Newest first and capped at the report limit
// unless the caller paged explicitly.
func (pg *Postgres) GetTransactions(ctx context.Context, start, end time.Time, status payments.TransactionStatus, currency string, pagination *inputs.Pagination) ([]TransactionRow, error) {
	statement := `
	select p.transaction_id, p.uetr, p.amount, p.currency, p.status,
		p.created_at, p.updated_at, ra.risk_score
	from payments p
	left join risk_assessments ra on p.transaction_id = ra.transaction_id
	where p.created_at >= $1 and p.created_at < $2`

	args := []interface{}{start, end}
	if status != "" {
		args = append(args, status)
		statement += fmt.Sprintf(" and p.status = $%d", len(args))
	}
	if currency != "" {
		args = append(args, currency)
		statement += fmt.Sprintf(" and p.currency = $%d", len(args))
	}

	orderBy := "p.created_at desc"
	limit := transactionReportLimit
	offset := 0
	if pagination != nil {
		// order attributes were validated against the TransactionRow tags
		if expr := pagination.GetOrderBy(ctx); expr != "" {
			orderBy = expr
		}
		if pagination.Items > 0 {
			limit = pagination.Items
			offset = pagination.Page * pagination.Items
		}
	}
	statement += fmt.Sprintf(" order by %s limit %d offset %d", orderBy, limit, offset)

	transactions := []TransactionRow{}
	if err := pg.RawDB().SelectContext(ctx, &transactions, statement, args...); err != nil {
		return nil, err
	}
	return transactions, nil
}

// GetComplianceStats aggregates compliance counters over payments created
// inside [start, end). Factor hits probe the assessment factor list stored
// as jsonb.
func (pg *Postgres) GetComplianceStats(ctx context.Context, start, end time.Time) (*ComplianceStats, error) {
	statement := `
	select
		count(*) as total_transactions,
		count(*) filter (where p.amount >= 1000) as travel_rule_applicable,
		count(*) filter (where ra.risk_factors @> '["SANCTIONS_HIT"]') as sanctions_hits,
		count(*) filter (where ra.risk_factors @> '["PEP_MATCH"]') as pep_matches,
		count(*) filter (where ra.recommended_action = 'MANUAL_REVIEW') as manual_reviews
	from payments p
	left join risk_assessments ra on p.transaction_id = ra.transaction_id
	where p.created_at >= $1 and p.created_at < $2`

	var stats ComplianceStats
	if err := pg.RawDB().GetContext(ctx, &stats, statement, start, end); err != nil {
		return nil, err
	}
	return &stats, nil
}
