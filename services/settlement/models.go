package settlement

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Window is a settlement window
type Window string

const (
	// WindowIntraday admits payments from the last four hours
	WindowIntraday Window = "intraday"
	// WindowEOD admits payments since the start of the current UTC day
	WindowEOD Window = "EOD"
)

// ParseWindow maps caller input onto a known window
func ParseWindow(v string) (Window, error) {
	switch Window(v) {
	case WindowIntraday:
		return WindowIntraday, nil
	case WindowEOD:
		return WindowEOD, nil
	}
	return "", fmt.Errorf("invalid settlement window: %s", v)
}

// LowerBound returns the oldest created_at the window admits
func (w Window) LowerBound(now time.Time) time.Time {
	if w == WindowIntraday {
		return now.Add(-4 * time.Hour)
	}
	return now.UTC().Truncate(24 * time.Hour)
}

// Settlement instructions carried by net positions.
const (
	InstructionPay     = "PAY"
	InstructionReceive = "RECEIVE"
)

// NetPosition is one account's obligation within a closed batch
type NetPosition struct {
	Account               string          `json:"account"`
	Currency              string          `json:"currency"`
	Amount                decimal.Decimal `json:"amount"`
	SettlementInstruction string          `json:"settlement_instruction"`
}

// NetPositions is the jsonb-backed list of positions stored on a batch
type NetPositions []NetPosition

// Value implements driver.Valuer
func (np NetPositions) Value() (driver.Value, error) {
	return json.Marshal(np)
}

// Scan implements sql.Scanner
func (np *NetPositions) Scan(src interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, np)
	case string:
		return json.Unmarshal([]byte(data), np)
	}
	return errors.New("unsupported net positions source")
}

// Batch is one settlement_batches row, immutable once CLOSED
type Batch struct {
	BatchID           uuid.UUID       `json:"batch_id" db:"batch_id"`
	WindowType        Window          `json:"window_type" db:"window_type"`
	TotalTransactions int             `json:"total_transactions" db:"total_transactions"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	NetPositions      NetPositions    `json:"net_positions" db:"net_positions"`
	Status            string          `json:"status" db:"status"`
	ClosedAt          time.Time       `json:"closed_at" db:"closed_at"`
}

// EligiblePayment is the payment slice batching and netting work from
type EligiblePayment struct {
	TransactionID    uuid.UUID                 `db:"transaction_id"`
	Amount           decimal.Decimal           `db:"amount"`
	Currency         string                    `db:"currency"`
	DebtorAccount    string                    `db:"debtor_account"`
	CreditorAccount  string                    `db:"creditor_account"`
	SettlementMethod payments.SettlementMethod `db:"settlement_method"`
}

// BatchPayment is the view of a payment inside a batch detail response
type BatchPayment struct {
	TransactionID   uuid.UUID                  `json:"transaction_id" db:"transaction_id"`
	UETR            uuid.UUID                  `json:"uetr" db:"uetr"`
	Amount          decimal.Decimal            `json:"amount" db:"amount"`
	Currency        string                     `json:"currency" db:"currency"`
	DebtorAccount   string                     `json:"debtor_account" db:"debtor_account"`
	CreditorAccount string                     `json:"creditor_account" db:"creditor_account"`
	Status          payments.TransactionStatus `json:"status" db:"status"`
}

// Backlog describes the unbatched APPROVED payments awaiting a close
type Backlog struct {
	TransactionCount  int             `json:"transaction_count" db:"transaction_count"`
	IntradayEligible  int             `json:"intraday_eligible" db:"intraday_eligible"`
	EODEligible       int             `json:"eod_eligible" db:"eod_eligible"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	OldestTransaction *time.Time      `json:"oldest_transaction" db:"oldest_transaction"`
}

// BatchCloseResponse summarizes a close-batch call. BatchID is empty when
// the window had nothing to settle.
type BatchCloseResponse struct {
	BatchID             string          `json:"batch_id"`
	Window              Window          `json:"window"`
	TransactionsSettled int             `json:"transactions_settled"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	NetPositions        NetPositions    `json:"net_positions"`
	ClosedAt            time.Time       `json:"closed_at"`
}

// StatusResponse reports the backlog, recent batch history and the
// hypothetical nets of the current backlog
type StatusResponse struct {
	CurrentBacklog   *Backlog     `json:"current_backlog"`
	CompletedBatches []Batch      `json:"completed_batches"`
	NetPositions     NetPositions `json:"net_positions"`
}

// BatchDetailResponse is a batch row plus the payments it claimed
type BatchDetailResponse struct {
	Batch        Batch          `json:"batch"`
	Transactions []BatchPayment `json:"transactions"`
}

// BatchClosedEvent is the payload published on settlement.batch_closed
type BatchClosedEvent struct {
	BatchID          uuid.UUID       `json:"batch_id"`
	Window           Window          `json:"window"`
	TransactionCount int             `json:"transaction_count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	NetPositions     NetPositions    `json:"net_positions"`
	ClosedAt         time.Time       `json:"closed_at"`
}

// netTolerance is the rounding tolerance below which a position nets to zero.
var netTolerance = decimal.NewFromFloat(0.01)

// CalculateNetPositions folds the payments into one signed amount per
// (account, currency), debtors negative and creditors positive, then emits
// PAY/RECEIVE entries for every position above the tolerance. Debits and
// credits mirror each other per payment, so the emitted amounts sum to zero
// per currency.
func CalculateNetPositions(eligible []EligiblePayment) NetPositions {
	type positionKey struct {
		account  string
		currency string
	}

	acc := map[positionKey]decimal.Decimal{}
	for _, payment := range eligible {
		debtor := positionKey{payment.DebtorAccount, payment.Currency}
		creditor := positionKey{payment.CreditorAccount, payment.Currency}
		acc[debtor] = acc[debtor].Sub(payment.Amount)
		acc[creditor] = acc[creditor].Add(payment.Amount)
	}

	positions := NetPositions{}
	for key, amount := range acc {
		if amount.Abs().LessThanOrEqual(netTolerance) {
			continue
		}
		instruction := InstructionReceive
		if amount.IsNegative() {
			instruction = InstructionPay
		}
		positions = append(positions, NetPosition{
			Account:               key.account,
			Currency:              key.currency,
			Amount:                amount.Abs(),
			SettlementInstruction: instruction,
		})
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Account != positions[j].Account {
			return positions[i].Account < positions[j].Account
		}
		return positions[i].Currency < positions[j].Currency
	})

	return positions
}
