package payment

import (
	"time"

	"github.com/corridor-intl/rail-go/libs/datastore"
	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is a single cross-border instruction moving through the rail
type Payment struct {
	TransactionID       uuid.UUID                  `json:"transaction_id" db:"transaction_id"`
	UETR                uuid.UUID                  `json:"uetr" db:"uetr"`
	Amount              decimal.Decimal            `json:"amount" db:"amount"`
	Currency            string                     `json:"currency" db:"currency"`
	DebtorAccount       string                     `json:"debtor_account" db:"debtor_account"`
	CreditorAccount     string                     `json:"creditor_account" db:"creditor_account"`
	PaymentPurpose      payments.PaymentCategory   `json:"payment_purpose" db:"payment_purpose"`
	SettlementMethod    payments.SettlementMethod  `json:"settlement_method" db:"settlement_method"`
	Status              payments.TransactionStatus `json:"status" db:"status"`
	IdempotencyKey      uuid.UUID                  `json:"-" db:"idempotency_key"`
	SettlementBatchID   uuid.NullUUID              `json:"settlement_batch_id" db:"settlement_batch_id"`
	CurrentStep         datastore.NullString       `json:"current_step" db:"current_step"`
	EstimatedCompletion *time.Time                 `json:"estimated_completion" db:"estimated_completion"`
	CreatedAt           time.Time                  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at" db:"updated_at"`
}

// SettlementDetail describes how a payment was netted into its batch
type SettlementDetail struct {
	TransactionID    uuid.UUID                 `json:"transaction_id" db:"transaction_id"`
	BatchID          uuid.UUID                 `json:"batch_id" db:"batch_id"`
	WindowType       string                    `json:"window_type" db:"window_type"`
	SettlementMethod payments.SettlementMethod `json:"settlement_method" db:"settlement_method"`
	NetAmount        decimal.Decimal           `json:"net_amount" db:"net_amount"`
	SettledAt        time.Time                 `json:"settled_at" db:"settled_at"`
}

// LedgerProof is the anchoring record written by the ledger once a payment completes
type LedgerProof struct {
	TransactionID  uuid.UUID            `json:"transaction_id" db:"transaction_id"`
	ProofID        uuid.UUID            `json:"proof_id" db:"proof_id"`
	MerkleRoot     string               `json:"merkle_root" db:"merkle_root"`
	BlockReference datastore.NullString `json:"block_reference" db:"block_reference"`
	AnchoredAt     time.Time            `json:"anchored_at" db:"anchored_at"`
}

// InitiateRequest includes the details needed to start a payment
type InitiateRequest struct {
	Amount           decimal.Decimal `json:"amount" valid:"-"`
	Currency         string          `json:"currency" valid:"-"`
	DebtorAccount    string          `json:"debtor_account" valid:"required"`
	CreditorAccount  string          `json:"creditor_account" valid:"required"`
	PaymentPurpose   string          `json:"payment_purpose" valid:"-"`
	SettlementMethod string          `json:"settlement_method" valid:"-"`
}

// InitiateResponse includes a freshly initiated payment's identifiers
type InitiateResponse struct {
	TransactionID uuid.UUID                  `json:"transaction_id"`
	UETR          uuid.UUID                  `json:"uetr"`
	Status        payments.TransactionStatus `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Message       string                     `json:"message,omitempty"`
}

// StatusResponse is the full pipeline view of a payment
type StatusResponse struct {
	TransactionID       uuid.UUID                  `json:"transaction_id"`
	UETR                uuid.UUID                  `json:"uetr"`
	Status              payments.TransactionStatus `json:"status"`
	CurrentStep         datastore.NullString       `json:"current_step"`
	SettlementDetails   *SettlementDetail          `json:"settlement_details,omitempty"`
	LedgerProof         *LedgerProof               `json:"ledger_proof,omitempty"`
	EstimatedCompletion *time.Time                 `json:"estimated_completion,omitempty"`
}

// CancelResponse acknowledges a cancellation
type CancelResponse struct {
	TransactionID uuid.UUID                  `json:"transaction_id"`
	Status        payments.TransactionStatus `json:"status"`
	CancelledAt   time.Time                  `json:"cancelled_at"`
}

// InitiatedEvent is the payload published on payment.initiated
type InitiatedEvent struct {
	TransactionID    uuid.UUID                  `json:"transaction_id"`
	UETR             uuid.UUID                  `json:"uetr"`
	Amount           decimal.Decimal            `json:"amount"`
	Currency         string                     `json:"currency"`
	DebtorAccount    string                     `json:"debtor_account"`
	CreditorAccount  string                     `json:"creditor_account"`
	PaymentPurpose   payments.PaymentCategory   `json:"payment_purpose"`
	SettlementMethod payments.SettlementMethod  `json:"settlement_method"`
	Status           payments.TransactionStatus `json:"status"`
	CreatedAt        time.Time                  `json:"created_at"`
}

// CancelledEvent is the payload published on payment.cancelled
type CancelledEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	CancelledAt   time.Time `json:"cancelled_at"`
}
