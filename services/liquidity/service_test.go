package liquidity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	datastoreutils "github.com/corridor-intl/rail-go/libs/datastore"
	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/kv"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/jmoiron/sqlx"
	gocache "github.com/patrickmn/go-cache"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *miniredis.Miniredis, context.Context) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	store := kv.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	ctx, _ := logging.SetupLogger(context.Background())

	service := &Service{
		Datastore: &Postgres{Postgres: datastoreutils.Postgres{DB: sqlx.NewDb(db, "postgres")}},
		cache:     store,
		rates:     gocache.New(rateMemoTTL, rateMemoPurge),
		bus:       event.LogPublisher{},
	}
	return service, mock, mr, ctx
}

func TestMidRateStaticAndReverse(t *testing.T) {
	service := &Service{rates: gocache.New(rateMemoTTL, rateMemoPurge)}

	assert.True(t, service.midRate("USD", "EUR").Equal(decimal.NewFromFloat(0.85)))
	assert.True(t, service.midRate("USD", "JPY").Equal(decimal.NewFromFloat(110)))

	// GBP to EUR is absent, the inverse of EUR to GBP stands in
	expected := decimal.NewFromInt(1).Div(decimal.NewFromFloat(0.88)).Round(8)
	assert.True(t, service.midRate("GBP", "EUR").Equal(expected))
}

func TestMidRateSyntheticMemoized(t *testing.T) {
	service := &Service{rates: gocache.New(rateMemoTTL, rateMemoPurge)}

	first := service.midRate("CHF", "SGD")
	assert.True(t, first.GreaterThanOrEqual(decimal.NewFromFloat(0.5)))
	assert.True(t, first.LessThanOrEqual(decimal.NewFromInt(2)))

	// the synthesized rate holds steady inside the memo window
	assert.True(t, service.midRate("CHF", "SGD").Equal(first))
}

func TestPriceQuoteStoresQuote(t *testing.T) {
	service, mock, mr, ctx := newTestService(t)

	mock.ExpectExec("insert into liquidity_quotes (.+)").
		WillReturnResult(sqlmock.NewResult(1, 1))

	provider := Provider{
		Name:         "test_desk",
		Currencies:   []string{"USD", "EUR"},
		BaseSpread:   0.002,
		LatencyMS:    5,
		UtilityScore: 0.9,
	}

	quote, err := service.priceQuote(ctx, provider, "USD", "EUR", decimal.NewFromInt(1000))
	require.NoError(t, err)

	assert.True(t, quote.MidRate.Equal(decimal.NewFromFloat(0.85)))
	assert.True(t, quote.AppliedRate.LessThan(quote.MidRate))
	assert.True(t, quote.Spread.IsPositive())
	assert.Equal(t, "test_desk", quote.Source)
	assert.Equal(t, 30, quote.TTLSeconds)

	key := "quote:" + quote.QuoteID.String()
	assert.True(t, mr.Exists(key))
	assert.Equal(t, quoteTTL, mr.TTL(key))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceQuoteAbandonedAtDeadline(t *testing.T) {
	service, mock, mr, ctx := newTestService(t)

	slow := Provider{
		Name:         "slow_desk",
		Currencies:   []string{"USD", "EUR"},
		BaseSpread:   0.002,
		LatencyMS:    500,
		UtilityScore: 0.9,
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	quote, err := service.priceQuote(deadlineCtx, slow, "USD", "EUR", decimal.NewFromInt(100))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, quote)

	// nothing was written on the abandoned path
	assert.Empty(t, mr.Keys())
	assert.NoError(t, mock.ExpectationsWereMet())
}
