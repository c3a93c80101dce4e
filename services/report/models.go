package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Report types persisted to the reports table.
const (
	ReportTypeProofOfReserves = "PROOF_OF_RESERVES"
)

// camt053MessageType is the ISO 20022 bank-to-customer statement message
// the settlement manifest is shaped after
const camt053MessageType = "camt.053.001.08"

// usdRates are the indicative conversion rates used to express reserve and
// settlement figures in USD. Unknown currencies convert at par.
var usdRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.NewFromFloat(1.18),
	"GBP": decimal.NewFromFloat(1.33),
	"JPY": decimal.NewFromFloat(0.009),
	"AED": decimal.NewFromFloat(0.27),
	"INR": decimal.NewFromFloat(0.012),
}

func usdRate(currency string) decimal.Decimal {
	if rate, ok := usdRates[currency]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

// reserveMultiplier is the overcollateralization factor applied to settled
// volume when stating reserves
var reserveMultiplier = decimal.NewFromFloat(1.1)

// CurrencyBalance is the per-currency settled and pending volume aggregated
// from the payments table
type CurrencyBalance struct {
	Currency      string          `db:"currency"`
	SettledAmount decimal.Decimal `db:"settled_amount"`
	PendingAmount decimal.Decimal `db:"pending_amount"`
}

// CurrencyReserves is one currency's position inside a proof of reserves
type CurrencyReserves struct {
	SettledAmount       decimal.Decimal `json:"settled_amount"`
	PendingAmount       decimal.Decimal `json:"pending_amount"`
	Reserves            decimal.Decimal `json:"reserves"`
	Liabilities         decimal.Decimal `json:"liabilities"`
	ReserveRatio        decimal.Decimal `json:"reserve_ratio"`
	USDValueReserves    decimal.Decimal `json:"usd_value_reserves"`
	USDValueLiabilities decimal.Decimal `json:"usd_value_liabilities"`
}

// ReservesResponse is a signed point-in-time attestation of reserves held
// against outstanding liabilities
type ReservesResponse struct {
	ReportID            uuid.UUID                   `json:"report_id"`
	GeneratedAt         time.Time                   `json:"generated_at"`
	TotalReservesUSD    decimal.Decimal             `json:"total_reserves_usd"`
	TotalLiabilitiesUSD decimal.Decimal             `json:"total_liabilities_usd"`
	ReserveRatio        decimal.Decimal             `json:"reserve_ratio"`
	Currencies          map[string]CurrencyReserves `json:"currencies"`
	AttestationHash     string                      `json:"attestation_hash"`
	ValidUntil          time.Time                   `json:"valid_until"`
}

// ReservesGeneratedEvent is published after a proof of reserves is persisted
type ReservesGeneratedEvent struct {
	ReportID         uuid.UUID       `json:"report_id"`
	TotalReservesUSD decimal.Decimal `json:"total_reserves_usd"`
	ReserveRatio     decimal.Decimal `json:"reserve_ratio"`
}

// Report is one reports row
type Report struct {
	ReportID        uuid.UUID       `db:"report_id"`
	ReportType      string          `db:"report_type"`
	Payload         json.RawMessage `db:"payload"`
	AttestationHash string          `db:"attestation_hash"`
	GeneratedAt     time.Time       `db:"generated_at"`
}

// SettledPayment is one settled payment joined with its closing batch
type SettledPayment struct {
	TransactionID uuid.UUID       `db:"transaction_id"`
	UETR          uuid.UUID       `db:"uetr"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	BatchID       uuid.UUID       `db:"settlement_batch_id"`
	WindowType    string          `db:"window_type"`
	ClosedAt      time.Time       `db:"closed_at"`
}

// BatchTransaction is the view of a settled payment inside a settlement proof
type BatchTransaction struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	UETR          uuid.UUID       `json:"uetr"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	AmountUSD     decimal.Decimal `json:"amount_usd"`
}

// SettlementBatchProof groups the settled payments of one closed batch
type SettlementBatchProof struct {
	BatchID        uuid.UUID          `json:"batch_id"`
	WindowType     string             `json:"window_type"`
	ClosedAt       time.Time          `json:"closed_at"`
	Transactions   []BatchTransaction `json:"transactions"`
	TotalAmountUSD decimal.Decimal    `json:"total_amount_usd"`
}

// ISO20022Manifest summarizes a settlement day as a camt.053 style statement
type ISO20022Manifest struct {
	MessageType          string                     `json:"message_type"`
	CreationDateTime     time.Time                  `json:"creation_date_time"`
	NumberOfTransactions int                        `json:"number_of_transactions"`
	ControlSum           decimal.Decimal            `json:"control_sum"`
	SettlementMethod     string                     `json:"settlement_method"`
	CurrencyBreakdown    map[string]decimal.Decimal `json:"currency_breakdown"`
	BatchReferences      []uuid.UUID                `json:"batch_references"`
}

// SettlementProofResponse is the proof of settlement for one UTC day
type SettlementProofResponse struct {
	ReportID                 uuid.UUID               `json:"report_id"`
	SettlementDate           string                  `json:"settlement_date"`
	GeneratedAt              time.Time               `json:"generated_at"`
	TotalSettledTransactions int                     `json:"total_settled_transactions"`
	TotalSettledAmountUSD    decimal.Decimal         `json:"total_settled_amount_usd"`
	SettlementBatches        []*SettlementBatchProof `json:"settlement_batches"`
	Manifest                 ISO20022Manifest        `json:"iso20022_manifest"`
	MerkleRoot               string                  `json:"merkle_root"`
	BlockReferences          []string                `json:"block_references"`
}

// TransactionRow is one payment joined with its risk assessment, if any.
// The json tags double as the attributes the order query parameter accepts.
type TransactionRow struct {
	TransactionID uuid.UUID                  `json:"transaction_id" db:"transaction_id"`
	UETR          uuid.UUID                  `json:"uetr" db:"uetr"`
	Amount        decimal.Decimal            `json:"amount" db:"amount"`
	Currency      string                     `json:"currency" db:"currency"`
	Status        payments.TransactionStatus `json:"status" db:"status"`
	CreatedAt     time.Time                  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at" db:"updated_at"`
	RiskScore     decimal.NullDecimal        `json:"risk_score" db:"risk_score"`
}

// ReportedTransaction is the transaction report line item. SettledAt carries
// the last update time once a payment reaches settlement and is null before
// that, RiskScore is null for payments that were never assessed.
type ReportedTransaction struct {
	TransactionID uuid.UUID                  `json:"transaction_id"`
	UETR          uuid.UUID                  `json:"uetr"`
	Amount        decimal.Decimal            `json:"amount"`
	Currency      string                     `json:"currency"`
	Status        payments.TransactionStatus `json:"status"`
	CreatedAt     time.Time                  `json:"created_at"`
	SettledAt     *time.Time                 `json:"settled_at"`
	RiskScore     *decimal.Decimal           `json:"risk_score"`
}

// ReportFilters echoes the filters a transaction report was built from
type ReportFilters struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// TransactionReportResponse is a filtered listing of payments with
// aggregates. Page and Items only appear when the caller paged explicitly,
// the default report is a single capped listing.
type TransactionReportResponse struct {
	Transactions   []ReportedTransaction `json:"transactions"`
	TotalCount     int                   `json:"total_count"`
	TotalAmountUSD decimal.Decimal       `json:"total_amount_usd"`
	Filters        ReportFilters         `json:"filters"`
	Page           int                   `json:"page,omitempty"`
	Items          int                   `json:"items,omitempty"`
}

// ComplianceStats is the single aggregate row behind a compliance report
type ComplianceStats struct {
	TotalTransactions    int64 `db:"total_transactions"`
	TravelRuleApplicable int64 `db:"travel_rule_applicable"`
	SanctionsHits        int64 `db:"sanctions_hits"`
	PEPMatches           int64 `db:"pep_matches"`
	ManualReviews        int64 `db:"manual_reviews"`
}

// ComplianceResponse is the regulatory summary for a reporting period
type ComplianceResponse struct {
	ReportID             uuid.UUID       `json:"report_id"`
	PeriodStart          time.Time       `json:"period_start"`
	PeriodEnd            time.Time       `json:"period_end"`
	TotalTransactions    int64           `json:"total_transactions"`
	TravelRuleApplicable int64           `json:"travel_rule_applicable"`
	SanctionsHits        int64           `json:"sanctions_hits"`
	PEPMatches           int64           `json:"pep_matches"`
	ManualReviews        int64           `json:"manual_reviews"`
	ComplianceRate       decimal.Decimal `json:"compliance_rate"`
}

// attestationHash binds a proof of reserves to its totals and generation
// time. Recomputing it over the published fields verifies the report was
// not altered after issuance.
func attestationHash(reportID uuid.UUID, reservesUSD, liabilitiesUSD decimal.Decimal, generatedAt time.Time) string {
	payload := reportID.String() + reservesUSD.String() + liabilitiesUSD.String() + generatedAt.Format(time.RFC3339)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// merkleRoot commits to a set of transaction ids independent of their
// order. Empty sets produce an empty root.
func merkleRoot(transactionIDs []uuid.UUID) string {
	if len(transactionIDs) == 0 {
		return ""
	}
	ids := make([]string, 0, len(transactionIDs))
	for _, id := range transactionIDs {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, "")))
	return hex.EncodeToString(sum[:])
}
