package report_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	datastoreutils "github.com/corridor-intl/rail-go/libs/datastore"
	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/services/report"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var balanceColumns = []string{"currency", "settled_amount", "pending_amount"}

var settledColumns = []string{
	"transaction_id", "uetr", "amount", "currency",
	"settlement_batch_id", "window_type", "closed_at",
}

var transactionColumns = []string{
	"transaction_id", "uetr", "amount", "currency", "status",
	"created_at", "updated_at", "risk_score",
}

var complianceColumns = []string{
	"total_transactions", "travel_rule_applicable", "sanctions_hits",
	"pep_matches", "manual_reviews",
}

type errorEnvelope struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func setupService(t *testing.T) (*report.Service, sqlmock.Sqlmock, context.Context) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	datastore := report.Datastore(
		&report.Postgres{
			Postgres: datastoreutils.Postgres{
				DB: sqlx.NewDb(db, "postgres"),
			},
		})

	ctx, _ := logging.SetupLogger(context.Background())

	service, err := report.InitService(ctx, datastore, event.LogPublisher{})
	require.NoError(t, err)

	return service, mock, ctx
}

func TestProofOfReserves(t *testing.T) {
	service, mock, ctx := setupService(t)

	mock.ExpectQuery("select (.+) from payments").WillReturnRows(
		sqlmock.NewRows(balanceColumns).
			AddRow("EUR", "5000", "1000").
			AddRow("USD", "10000", "2000"))
	mock.ExpectExec("insert into reports (.+)").WillReturnResult(sqlmock.NewResult(1, 1))

	r := httptest.NewRequest("GET", "/reports/proof-of-reserves", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetProofOfReserves(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp report.ReservesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEqual(t, uuid.Nil, resp.ReportID)
	// USD 10000 * 1.1 + EUR 5000 * 1.1 * 1.18
	assert.True(t, decimal.NewFromInt(17490).Equal(resp.TotalReservesUSD), resp.TotalReservesUSD.String())
	// USD 2000 + EUR 1000 * 1.18
	assert.True(t, decimal.NewFromInt(3180).Equal(resp.TotalLiabilitiesUSD), resp.TotalLiabilitiesUSD.String())
	assert.True(t, decimal.NewFromFloat(5.5).Equal(resp.ReserveRatio), resp.ReserveRatio.String())

	require.Contains(t, resp.Currencies, "USD")
	usd := resp.Currencies["USD"]
	assert.True(t, decimal.NewFromInt(11000).Equal(usd.Reserves))
	assert.True(t, decimal.NewFromInt(2000).Equal(usd.Liabilities))
	assert.True(t, decimal.NewFromFloat(5.5).Equal(usd.ReserveRatio))

	require.Contains(t, resp.Currencies, "EUR")
	eur := resp.Currencies["EUR"]
	assert.True(t, decimal.NewFromInt(6490).Equal(eur.USDValueReserves), eur.USDValueReserves.String())
	assert.True(t, decimal.NewFromInt(1180).Equal(eur.USDValueLiabilities))

	// the attestation must be recomputable from the published fields
	payload := resp.ReportID.String() + resp.TotalReservesUSD.String() +
		resp.TotalLiabilitiesUSD.String() + resp.GeneratedAt.Format(time.RFC3339)
	sum := sha256.Sum256([]byte(payload))
	assert.Equal(t, hex.EncodeToString(sum[:]), resp.AttestationHash)

	assert.True(t, resp.ValidUntil.Equal(resp.GeneratedAt.Add(24*time.Hour)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProofOfReservesEmptyBook(t *testing.T) {
	service, mock, ctx := setupService(t)

	mock.ExpectQuery("select (.+) from payments").WillReturnRows(sqlmock.NewRows(balanceColumns))
	mock.ExpectExec("insert into reports (.+)").WillReturnResult(sqlmock.NewResult(1, 1))

	r := httptest.NewRequest("GET", "/reports/proof-of-reserves", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetProofOfReserves(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp report.ReservesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.TotalReservesUSD.IsZero())
	assert.True(t, resp.TotalLiabilitiesUSD.IsZero())
	assert.True(t, resp.ReserveRatio.IsZero())
	assert.Empty(t, resp.Currencies)
	assert.Len(t, resp.AttestationHash, 64)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProofOfSettlement(t *testing.T) {
	service, mock, ctx := setupService(t)

	batch1 := uuid.MustParse("11111111-aaaa-4aaa-8aaa-111111111111")
	batch2 := uuid.MustParse("22222222-aaaa-4aaa-8aaa-222222222222")
	txn1 := uuid.MustParse("aaaaaaaa-1111-4111-8111-aaaaaaaaaaaa")
	txn2 := uuid.MustParse("bbbbbbbb-2222-4222-8222-bbbbbbbbbbbb")
	txn3 := uuid.MustParse("cccccccc-3333-4333-8333-cccccccccccc")
	closed1 := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	closed2 := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("select (.+) from payments p join settlement_batches sb").
		WithArgs(day, day.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows(settledColumns).
			AddRow(txn1.String(), uuid.New().String(), "100", "USD", batch1.String(), "intraday", closed1).
			AddRow(txn2.String(), uuid.New().String(), "100", "USD", batch1.String(), "intraday", closed1).
			AddRow(txn3.String(), uuid.New().String(), "200", "EUR", batch2.String(), "EOD", closed2))
	mock.ExpectQuery("select distinct block_reference from ledger_proofs").
		WillReturnRows(sqlmock.NewRows([]string{"block_reference"}).AddRow("block_7841"))

	r := httptest.NewRequest("GET", "/reports/proof-of-settlement?settlement_date=2026-03-14", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetProofOfSettlement(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp report.SettlementProofResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "2026-03-14", resp.SettlementDate)
	assert.Equal(t, 3, resp.TotalSettledTransactions)
	// 100 + 100 + 200 * 1.18
	assert.True(t, decimal.NewFromInt(436).Equal(resp.TotalSettledAmountUSD), resp.TotalSettledAmountUSD.String())

	require.Len(t, resp.SettlementBatches, 2)
	first := resp.SettlementBatches[0]
	assert.Equal(t, batch1, first.BatchID)
	assert.Equal(t, "intraday", first.WindowType)
	assert.Len(t, first.Transactions, 2)
	assert.True(t, decimal.NewFromInt(200).Equal(first.TotalAmountUSD))
	second := resp.SettlementBatches[1]
	assert.Equal(t, batch2, second.BatchID)
	assert.True(t, decimal.NewFromInt(236).Equal(second.TotalAmountUSD))

	manifest := resp.Manifest
	assert.Equal(t, "camt.053.001.08", manifest.MessageType)
	assert.Equal(t, 3, manifest.NumberOfTransactions)
	assert.True(t, decimal.NewFromInt(436).Equal(manifest.ControlSum))
	assert.Equal(t, "NETTING", manifest.SettlementMethod)
	assert.True(t, decimal.NewFromInt(200).Equal(manifest.CurrencyBreakdown["USD"]))
	assert.True(t, decimal.NewFromInt(200).Equal(manifest.CurrencyBreakdown["EUR"]))
	assert.Equal(t, []uuid.UUID{batch1, batch2}, manifest.BatchReferences)

	ids := []string{txn1.String(), txn2.String(), txn3.String()}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, "")))
	assert.Equal(t, hex.EncodeToString(sum[:]), resp.MerkleRoot)

	assert.Equal(t, []string{"block_7841"}, resp.BlockReferences)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProofOfSettlementEmptyDay(t *testing.T) {
	service, mock, ctx := setupService(t)

	mock.ExpectQuery("select (.+) from payments p join settlement_batches sb").
		WillReturnRows(sqlmock.NewRows(settledColumns))

	r := httptest.NewRequest("GET", "/reports/proof-of-settlement?settlement_date=2026-03-15", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetProofOfSettlement(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp report.SettlementProofResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 0, resp.TotalSettledTransactions)
	assert.True(t, resp.TotalSettledAmountUSD.IsZero())
	assert.Empty(t, resp.SettlementBatches)
	assert.Equal(t, "", resp.MerkleRoot)
	assert.Empty(t, resp.BlockReferences)
	// no settled transactions means the ledger is never consulted
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProofOfSettlementRejectsBadDate(t *testing.T) {
	service, _, ctx := setupService(t)

	r := httptest.NewRequest("GET", "/reports/proof-of-settlement?settlement_date=03/14/2026", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetProofOfSettlement(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "settlement_date", resp.Error.Details["field"])
}

func TestTransactionReport(t *testing.T) {
	service, mock, ctx := setupService(t)

	txn1 := uuid.MustParse("aaaaaaaa-1111-4111-8111-aaaaaaaaaaaa")
	txn2 := uuid.MustParse("bbbbbbbb-2222-4222-8222-bbbbbbbbbbbb")
	created1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	created2 := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("select (.+) from payments p left join risk_assessments ra").
		WithArgs(start, end.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(txn1.String(), uuid.New().String(), "2500", "USD", "SETTLED", created1, created1.Add(time.Hour), "35.5").
			AddRow(txn2.String(), uuid.New().String(), "800", "EUR", "INITIATED", created2, created2, nil))

	r := httptest.NewRequest("GET", "/reports/transactions?start_date=2026-03-01&end_date=2026-03-14", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetTransactionReport(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp report.TransactionReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 2, resp.TotalCount)
	require.Len(t, resp.Transactions, 2)

	settled := resp.Transactions[0]
	assert.Equal(t, txn1, settled.TransactionID)
	require.NotNil(t, settled.SettledAt)
	assert.True(t, settled.SettledAt.Equal(created1.Add(time.Hour)))
	require.NotNil(t, settled.RiskScore)
	assert.True(t, decimal.NewFromFloat(35.5).Equal(*settled.RiskScore))

	pending := resp.Transactions[1]
	assert.Nil(t, pending.SettledAt)
	assert.Nil(t, pending.RiskScore)

	// 2500 + 800 * 1.18
	assert.True(t, decimal.NewFromInt(3444).Equal(resp.TotalAmountUSD), resp.TotalAmountUSD.String())
	assert.Equal(t, "2026-03-01", resp.Filters.StartDate)
	assert.Equal(t, "2026-03-14", resp.Filters.EndDate)
	assert.Empty(t, resp.Filters.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionReportFiltersStatusAndCurrency(t *testing.T) {
	service, mock, ctx := setupService(t)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select (.+) and p.status = \$3 and p.currency = \$4`).
		WithArgs(start, end.AddDate(0, 0, 1), "SETTLED", "USD").
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(uuid.New().String(), uuid.New().String(), "2500", "USD", "SETTLED", created, created, nil))

	target := "/reports/transactions?start_date=2026-03-01&end_date=2026-03-14&status=SETTLED&currency=usd"
	r := httptest.NewRequest("GET", target, nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetTransactionReport(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp report.TransactionReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, "SETTLED", resp.Filters.Status)
	assert.Equal(t, "USD", resp.Filters.Currency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionReportPaged(t *testing.T) {
	service, mock, ctx := setupService(t)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select (.+) order by amount DESC limit 2 offset 2`).
		WithArgs(start, end.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(uuid.New().String(), uuid.New().String(), "900", "USD", "INITIATED", created, created, nil))

	target := "/reports/transactions?start_date=2026-03-01&end_date=2026-03-14&page=1&items=2&order=amount.desc"
	r := httptest.NewRequest("GET", target, nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetTransactionReport(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp report.TransactionReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.Items)
	assert.Equal(t, 1, resp.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionReportRejectsBadOrder(t *testing.T) {
	service, _, ctx := setupService(t)

	r := httptest.NewRequest("GET", "/reports/transactions?order=debtor_account.asc", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetTransactionReport(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransactionReportRejectsBadStatus(t *testing.T) {
	service, _, ctx := setupService(t)

	r := httptest.NewRequest("GET", "/reports/transactions?status=PENDING", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetTransactionReport(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "status", resp.Error.Details["field"])
}

func TestTransactionReportRejectsBadDates(t *testing.T) {
	service, _, ctx := setupService(t)

	r := httptest.NewRequest("GET", "/reports/transactions?start_date=2026/03/01", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetTransactionReport(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "start_date", resp.Error.Details["field"])

	r = httptest.NewRequest("GET", "/reports/transactions?start_date=2026-03-14&end_date=2026-03-01", nil).WithContext(ctx)
	w = httptest.NewRecorder()
	report.GetTransactionReport(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp = errorEnvelope{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "end_date", resp.Error.Details["field"])
}

func TestComplianceReport(t *testing.T) {
	service, mock, ctx := setupService(t)

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("select (.+) from payments p left join risk_assessments ra").
		WithArgs(start, end.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows(complianceColumns).AddRow(10, 4, 1, 1, 2))

	r := httptest.NewRequest("GET", "/reports/compliance?start_date=2026-02-01&end_date=2026-03-01", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetComplianceReport(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp report.ComplianceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEqual(t, uuid.Nil, resp.ReportID)
	assert.True(t, resp.PeriodStart.Equal(start))
	assert.True(t, resp.PeriodEnd.Equal(end))
	assert.Equal(t, int64(10), resp.TotalTransactions)
	assert.Equal(t, int64(4), resp.TravelRuleApplicable)
	assert.Equal(t, int64(1), resp.SanctionsHits)
	assert.Equal(t, int64(1), resp.PEPMatches)
	assert.Equal(t, int64(2), resp.ManualReviews)
	// 8 of 10 transactions clean
	assert.True(t, decimal.NewFromInt(80).Equal(resp.ComplianceRate), resp.ComplianceRate.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplianceReportCleanBook(t *testing.T) {
	service, mock, ctx := setupService(t)

	mock.ExpectQuery("select (.+) from payments p left join risk_assessments ra").
		WillReturnRows(sqlmock.NewRows(complianceColumns).AddRow(0, 0, 0, 0, 0))

	r := httptest.NewRequest("GET", "/reports/compliance", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	report.GetComplianceReport(service).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp report.ComplianceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, int64(0), resp.TotalTransactions)
	assert.True(t, decimal.NewFromInt(100).Equal(resp.ComplianceRate))
	assert.NoError(t, mock.ExpectationsWereMet())
}
