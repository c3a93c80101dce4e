package liquidity

import (
	"context"

	"github.com/corridor-intl/rail-go/libs/datastore"
	"github.com/prometheus/client_golang/prometheus"
)

var countQuotesGenerated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "count_quotes_generated",
		Help: "Number of liquidity quotes recorded, by source",
	},
	[]string{"source"},
)

func init() {
	prometheus.MustRegister(countQuotesGenerated)
}

// Datastore abstracts over the liquidity datastore
type Datastore interface {
	datastore.Datastore
	// InsertQuote records a generated quote for spread and latency analytics
	InsertQuote(ctx context.Context, quote *Quote, latencyMS int) error
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
			base: &Postgres{*pg}, instanceName: "liquidity_datastore",
		}, err
	}
	return nil, err
}

// NewPostgres creates a postgres Datastore from the environment
func NewPostgres() (Datastore, error) {
	return NewDB("", true, "liquidity_db")
}

// InsertQuote records a generated quote. The quotes table is the analytics
// feed behind the risk metrics aggregates, nothing in the quote lifecycle
// reads it back.
func (pg *Postgres) InsertQuote(ctx context.Context, quote *Quote, latencyMS int) error {
	statement := `
	insert into liquidity_quotes
		(quote_id, from_currency, to_currency, amount, mid_rate, applied_rate,
		spread, source, latency_ms, utility_score)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := pg.RawDB().ExecContext(ctx, statement,
		quote.QuoteID,
		quote.FromCurrency,
		quote.ToCurrency,
		quote.Amount,
		quote.MidRate,
		quote.AppliedRate,
		quote.Spread,
		quote.Source,
		latencyMS,
		quote.UtilityScore,
	)
	if err != nil {
		return err
	}

	countQuotesGenerated.With(prometheus.Labels{"source": quote.Source}).Inc()
	return nil
}
