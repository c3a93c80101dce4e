package risk

import (
	"context"
	"database/sql"
	"errors"

	"github.com/corridor-intl/rail-go/libs/datastore"
	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var countModeChanged = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "count_risk_mode_changed",
		Help: "Number of times the risk mode was changed",
	},
	[]string{"mode"},
)

func init() {
	prometheus.MustRegister(countModeChanged)
}

// Datastore abstracts over the risk datastore
type Datastore interface {
	datastore.Datastore
	// GetActiveConfig returns the newest active risk configuration, nil when none stored
	GetActiveConfig(ctx context.Context) (*Config, error)
	// SetActiveConfig retires the current configuration and installs config in its place
	SetActiveConfig(ctx context.Context, config *Config) (*Config, error)
	// GetQuoteAggregates rolls up the last hour of liquidity quotes
	GetQuoteAggregates(ctx context.Context) (*QuoteAggregates, error)
	// GetPaymentForAssessment fetches the payment fields scoring needs, nil when absent
	GetPaymentForAssessment(ctx context.Context, transactionID uuid.UUID) (*AssessedPayment, error)
	// CountRecentDebtorPayments counts instructions from the debtor over the last 24 hours
	CountRecentDebtorPayments(ctx context.Context, debtorAccount string) (int, error)
	// UpsertAssessment stores the verdict, one row per transaction
	UpsertAssessment(ctx context.Context, assessment *Assessment) (*Assessment, error)
	// GetPaymentStatus returns a payment's lifecycle status, empty when absent
	GetPaymentStatus(ctx context.Context, transactionID uuid.UUID) (payments.TransactionStatus, error)
	// AdvancePaymentStatus compare-and-sets a payment's status, false when the payment was not in from
	AdvancePaymentStatus(ctx context.Context, transactionID uuid.UUID, from, to payments.TransactionStatus, currentStep string) (bool, error)
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
			base: &Postgres{*pg}, instanceName: "risk_datastore",
		}, err
	}
	return nil, err
}

// NewPostgres creates a postgres Datastore from the environment
func NewPostgres() (Datastore, error) {
	return NewDB("", true, "risk_db")
}

// GetActiveConfig returns the newest active risk configuration, nil when none stored
func (pg *Postgres) GetActiveConfig(ctx context.Context) (*Config, error) {
	statement := `
	select * from risk_config
	where is_active = true
	order by created_at desc
	limit 1`

	var config Config
	err := pg.RawDB().GetContext(ctx, &config, statement)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// SetActiveConfig retires the current configuration and installs config in its place.
// Both statements run in one transaction so exactly one row is active at a time.
func (pg *Postgres) SetActiveConfig(ctx context.Context, config *Config) (*Config, error) {
	tx, err := pg.RawDB().Beginx()
	if err != nil {
		return nil, err
	}
	defer pg.RollbackTx(tx)

	_, err = tx.ExecContext(ctx, `update risk_config set is_active = false where is_active = true`)
	if err != nil {
		return nil, err
	}

	statement := `
	insert into risk_config (mode, thresholds, reason, changed_by, auto_escalation, is_active)
	values ($1, $2, $3, $4, $5, true)
	returning *`

	var inserted Config
	err = tx.GetContext(ctx, &inserted, statement,
		config.Mode, config.Thresholds, config.Reason, config.ChangedBy, config.AutoEscalation)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	countModeChanged.With(prometheus.Labels{"mode": string(inserted.Mode)}).Inc()
	return &inserted, nil
}

// GetQuoteAggregates rolls up the last hour of liquidity quotes
func (pg *Postgres) GetQuoteAggregates(ctx context.Context) (*QuoteAggregates, error) {
	statement := `
	select
		count(*) as samples,
		avg(spread) as avg_spread,
		avg(latency_ms) as avg_latency_ms,
		sum(amount) as total_volume,
		stddev_pop(spread) as spread_stddev
	from liquidity_quotes
	where created_at >= now() - interval '1 hour'`

	var aggregates QuoteAggregates
	if err := pg.RawDB().GetContext(ctx, &aggregates, statement); err != nil {
		return nil, err
	}
	return &aggregates, nil
}

// GetPaymentForAssessment fetches the payment fields scoring needs, nil when absent
func (pg *Postgres) GetPaymentForAssessment(ctx context.Context, transactionID uuid.UUID) (*AssessedPayment, error) {
	statement := `
	select transaction_id, amount, currency, debtor_account, created_at
	from payments
	where transaction_id = $1`

	var payment AssessedPayment
	err := pg.RawDB().GetContext(ctx, &payment, statement, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CountRecentDebtorPayments counts instructions from the debtor over the last 24 hours
func (pg *Postgres) CountRecentDebtorPayments(ctx context.Context, debtorAccount string) (int, error) {
	statement := `
	select count(*) from payments
	where debtor_account = $1 and created_at >= now() - interval '24 hours'`

	var count int
	if err := pg.RawDB().GetContext(ctx, &count, statement, debtorAccount); err != nil {
		return 0, err
	}
	return count, nil
}

// GetPaymentStatus returns a payment's lifecycle status, empty when absent
func (pg *Postgres) GetPaymentStatus(ctx context.Context, transactionID uuid.UUID) (payments.TransactionStatus, error) {
	statement := `
	select status from payments
	where transaction_id = $1`

	var status payments.TransactionStatus
	err := pg.RawDB().GetContext(ctx, &status, statement, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// AdvancePaymentStatus moves a payment from one status to the next with a
// compare-and-set, reporting whether this caller performed the move. A
// concurrent screener or a cancellation changes the row first and the
// update matches nothing.
func (pg *Postgres) AdvancePaymentStatus(ctx context.Context, transactionID uuid.UUID, from, to payments.TransactionStatus, currentStep string) (bool, error) {
	statement := `
	update payments
	set status = $3, current_step = $4, updated_at = now()
	where transaction_id = $1 and status = $2`

	result, err := pg.RawDB().ExecContext(ctx, statement, transactionID, from, to, currentStep)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// UpsertAssessment stores the verdict, one row per transaction. A reassessment
// keeps the original assessment id and refreshes score, factors and action.
func (pg *Postgres) UpsertAssessment(ctx context.Context, assessment *Assessment) (*Assessment, error) {
	statement := `
	insert into risk_assessments (assessment_id, transaction_id, risk_score, risk_factors, recommended_action)
	values ($1, $2, $3, $4, $5)
	on conflict (transaction_id) do update
	set risk_score = excluded.risk_score,
		risk_factors = excluded.risk_factors,
		recommended_action = excluded.recommended_action,
		assessed_at = now()
	returning *`

	var stored Assessment
	err := pg.RawDB().GetContext(ctx, &stored, statement,
		assessment.AssessmentID,
		assessment.TransactionID,
		assessment.RiskScore,
		&assessment.RiskFactors,
		assessment.RecommendedAction,
	)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
