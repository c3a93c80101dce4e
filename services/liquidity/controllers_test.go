package liquidity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	datastoreutils "github.com/corridor-intl/rail-go/libs/datastore"
	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/kv"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/services/liquidity"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorEnvelope struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func setupService(t *testing.T) (*liquidity.Service, sqlmock.Sqlmock, *miniredis.Miniredis, context.Context) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	datastore := liquidity.Datastore(
		&liquidity.Postgres{
			Postgres: datastoreutils.Postgres{
				DB: sqlx.NewDb(db, "postgres"),
			},
		})

	mr := miniredis.RunT(t)
	store := kv.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	ctx, _ := logging.SetupLogger(context.Background())

	service, err := liquidity.InitService(ctx, datastore, store, event.LogPublisher{})
	require.NoError(t, err)

	return service, mock, mr, ctx
}

func seedQuote(t *testing.T, mr *miniredis.Miniredis, expiresAt time.Time) *liquidity.Quote {
	quoteID, err := uuid.NewV7()
	require.NoError(t, err)

	quote := &liquidity.Quote{
		QuoteID:      quoteID,
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Amount:       decimal.NewFromInt(1000),
		MidRate:      decimal.NewFromFloat(0.85),
		AppliedRate:  decimal.NewFromFloat(0.84830),
		Spread:       decimal.NewFromFloat(0.002),
		Source:       "treasury_pool",
		TTLSeconds:   30,
		ExpiresAt:    expiresAt,
		UtilityScore: decimal.NewFromFloat(0.9),
	}
	body, err := json.Marshal(quote)
	require.NoError(t, err)
	require.NoError(t, mr.Set("quote:"+quoteID.String(), string(body)))
	return quote
}

func withQuoteID(r *http.Request, ctx context.Context, quoteID uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("quoteID", quoteID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func TestGetQuotes(t *testing.T) {
	service, mock, mr, ctx := setupService(t)

	// treasury_pool and market_maker serve USD/GBP, each records an analytics row
	mock.ExpectExec("insert into liquidity_quotes (.+)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into liquidity_quotes (.+)").WillReturnResult(sqlmock.NewResult(1, 1))

	r := httptest.NewRequest("GET", "/liquidity/quotes?from_currency=USD&to_currency=GBP&amount=1000", nil)
	rw := httptest.NewRecorder()
	liquidity.GetQuotes(service).ServeHTTP(rw, r.WithContext(ctx))
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())

	var resp liquidity.QuoteResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, "USD", resp.FromCurrency)
	assert.Equal(t, "GBP", resp.ToCurrency)
	require.Len(t, resp.Quotes, 2)
	require.NotNil(t, resp.BestQuote)

	sources := map[string]bool{}
	for _, quote := range resp.Quotes {
		sources[quote.Source] = true
		assert.True(t, quote.MidRate.Equal(decimal.NewFromFloat(0.75)))
		assert.True(t, quote.AppliedRate.LessThan(quote.MidRate))
		assert.True(t, quote.Amount.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, 30, quote.TTLSeconds)
		assert.True(t, mr.Exists("quote:"+quote.QuoteID.String()))
	}
	assert.True(t, sources["treasury_pool"])
	assert.True(t, sources["market_maker"])

	// quotes come back best first
	assert.True(t, resp.BestQuote.UtilityScore.Equal(resp.Quotes[0].UtilityScore))
	assert.True(t, resp.Quotes[0].UtilityScore.GreaterThanOrEqual(resp.Quotes[1].UtilityScore))

	// the corridor response was cached for replay
	assert.True(t, mr.Exists("liquidity:USD:GBP:1000:PVP"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetQuotesReplaysCachedResponse(t *testing.T) {
	service, mock, mr, ctx := setupService(t)

	originalRequestID, err := uuid.NewV7()
	require.NoError(t, err)
	quote := seedQuote(t, mr, time.Now().UTC().Add(30*time.Second))
	cached := &liquidity.QuoteResponse{
		RequestID:    originalRequestID,
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Amount:       decimal.NewFromInt(1000),
		Quotes:       []*liquidity.Quote{quote},
		BestQuote:    quote,
		GeneratedAt:  time.Now().UTC(),
	}
	body, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, mr.Set("liquidity:USD:EUR:1000:PVP", string(body)))

	r := httptest.NewRequest("GET", "/liquidity/quotes?from_currency=USD&to_currency=EUR&amount=1000", nil)
	rw := httptest.NewRecorder()
	liquidity.GetQuotes(service).ServeHTTP(rw, r.WithContext(ctx))
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())

	var resp liquidity.QuoteResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, quote.QuoteID, resp.Quotes[0].QuoteID)

	// the replay minted a fresh request id, no providers were dispatched
	assert.NotEqual(t, originalRequestID, resp.RequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetQuotesRejectsSameCurrency(t *testing.T) {
	service, _, _, ctx := setupService(t)

	r := httptest.NewRequest("GET", "/liquidity/quotes?from_currency=USD&to_currency=USD&amount=100", nil)
	rw := httptest.NewRecorder()
	liquidity.GetQuotes(service).ServeHTTP(rw, r.WithContext(ctx))
	require.Equal(t, http.StatusBadRequest, rw.Code, rw.Body.String())

	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "to_currency", resp.Error.Details["field"])
}

func TestGetQuotesRejectsBadAmount(t *testing.T) {
	service, _, _, ctx := setupService(t)

	r := httptest.NewRequest("GET", "/liquidity/quotes?from_currency=USD&to_currency=EUR&amount=-5", nil)
	rw := httptest.NewRecorder()
	liquidity.GetQuotes(service).ServeHTTP(rw, r.WithContext(ctx))
	require.Equal(t, http.StatusBadRequest, rw.Code, rw.Body.String())

	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, "amount", resp.Error.Details["field"])
}

func TestGetQuotesRejectsMaxSourcesOutOfRange(t *testing.T) {
	service, _, _, ctx := setupService(t)

	r := httptest.NewRequest("GET", "/liquidity/quotes?from_currency=USD&to_currency=EUR&amount=100&max_sources=9", nil)
	rw := httptest.NewRecorder()
	liquidity.GetQuotes(service).ServeHTTP(rw, r.WithContext(ctx))
	require.Equal(t, http.StatusBadRequest, rw.Code, rw.Body.String())

	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, "max_sources", resp.Error.Details["field"])
}

func TestGetQuotesNoEligibleProviders(t *testing.T) {
	service, mock, _, ctx := setupService(t)

	// no provider carries both CHF and SGD
	r := httptest.NewRequest("GET", "/liquidity/quotes?from_currency=CHF&to_currency=SGD&amount=100", nil)
	rw := httptest.NewRecorder()
	liquidity.GetQuotes(service).ServeHTTP(rw, r.WithContext(ctx))
	require.Equal(t, http.StatusBadGateway, rw.Code, rw.Body.String())

	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", resp.Error.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetQuoteDetails(t *testing.T) {
	service, _, mr, ctx := setupService(t)
	quote := seedQuote(t, mr, time.Now().UTC().Add(30*time.Second))

	r := httptest.NewRequest("GET", "/liquidity/quotes/"+quote.QuoteID.String(), nil)
	rw := httptest.NewRecorder()
	liquidity.GetQuote(service).ServeHTTP(rw, withQuoteID(r, ctx, quote.QuoteID))
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())

	var resp liquidity.Quote
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, quote.QuoteID, resp.QuoteID)
	assert.Equal(t, "treasury_pool", resp.Source)
	assert.True(t, resp.AppliedRate.Equal(quote.AppliedRate))

	// reading a quote does not consume it
	assert.True(t, mr.Exists("quote:"+quote.QuoteID.String()))
}

func TestGetQuoteNotFound(t *testing.T) {
	service, _, _, ctx := setupService(t)
	quoteID, err := uuid.NewV7()
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/liquidity/quotes/"+quoteID.String(), nil)
	rw := httptest.NewRecorder()
	liquidity.GetQuote(service).ServeHTTP(rw, withQuoteID(r, ctx, quoteID))
	require.Equal(t, http.StatusNotFound, rw.Code, rw.Body.String())
}

func TestExecuteQuote(t *testing.T) {
	service, _, mr, ctx := setupService(t)
	quote := seedQuote(t, mr, time.Now().UTC().Add(30*time.Second))

	r := httptest.NewRequest("POST", "/liquidity/quotes/"+quote.QuoteID.String()+"/execute", nil)
	rw := httptest.NewRecorder()
	liquidity.ExecuteQuote(service).ServeHTTP(rw, withQuoteID(r, ctx, quote.QuoteID))
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())

	var result liquidity.ExecutionResult
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &result))
	assert.Equal(t, quote.QuoteID, result.QuoteID)
	assert.Equal(t, liquidity.StatusExecuted, result.Status)
	assert.True(t, result.ExecutedRate.Equal(quote.AppliedRate))
	assert.NotEqual(t, uuid.Nil, result.SettlementReference)

	// single use, the key was consumed
	assert.False(t, mr.Exists("quote:"+quote.QuoteID.String()))

	// a second execution finds nothing
	r = httptest.NewRequest("POST", "/liquidity/quotes/"+quote.QuoteID.String()+"/execute", nil)
	rw = httptest.NewRecorder()
	liquidity.ExecuteQuote(service).ServeHTTP(rw, withQuoteID(r, ctx, quote.QuoteID))
	require.Equal(t, http.StatusNotFound, rw.Code, rw.Body.String())
}

func TestExecuteQuoteExpired(t *testing.T) {
	service, _, mr, ctx := setupService(t)
	quote := seedQuote(t, mr, time.Now().UTC().Add(-time.Second))

	r := httptest.NewRequest("POST", "/liquidity/quotes/"+quote.QuoteID.String()+"/execute", nil)
	rw := httptest.NewRecorder()
	liquidity.ExecuteQuote(service).ServeHTTP(rw, withQuoteID(r, ctx, quote.QuoteID))
	require.Equal(t, http.StatusGone, rw.Code, rw.Body.String())

	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, "PAYMENT_EXPIRED", resp.Error.Code)
}
