package risk

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corridor-intl/rail-go/libs/datastore"
	"github.com/corridor-intl/rail-go/libs/jsonutils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mode is the posture the corridor operates under
type Mode string

const (
	// ModeLow - tight limits, calm markets
	ModeLow Mode = "Low"
	// ModeMedium - the default posture
	ModeMedium Mode = "Medium"
	// ModeHigh - loose limits for stressed markets
	ModeHigh Mode = "High"
)

// ParseMode maps caller input onto a known mode
func ParseMode(v string) (Mode, error) {
	switch Mode(v) {
	case ModeLow:
		return ModeLow, nil
	case ModeMedium:
		return ModeMedium, nil
	case ModeHigh:
		return ModeHigh, nil
	}
	return "", fmt.Errorf("invalid risk mode: %s", v)
}

// Action is the verdict scoring recommends for a payment
type Action string

const (
	// ActionApprove - score below 20, wave it through
	ActionApprove Action = "APPROVE"
	// ActionEnhancedMonitoring - score 20 to 39, watch it
	ActionEnhancedMonitoring Action = "ENHANCED_MONITORING"
	// ActionManualReview - score 40 and up, a human decides
	ActionManualReview Action = "MANUAL_REVIEW"
)

// Thresholds are the static per-mode breach limits
type Thresholds struct {
	SpreadThreshold    float64 `json:"spread_threshold"`
	DepthThreshold     float64 `json:"depth_threshold"`
	DeviationThreshold float64 `json:"deviation_threshold"`
	LatencyThresholdMS int     `json:"latency_threshold_ms"`
	VolumeThresholdUSD float64 `json:"volume_threshold_usd"`
}

// Value implements driver.Valuer so thresholds land in a jsonb column
func (t Thresholds) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner for thresholds read back from jsonb
func (t *Thresholds) Scan(src interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, t)
	case string:
		return json.Unmarshal([]byte(data), t)
	}
	return errors.New("unsupported thresholds source")
}

var modeThresholds = map[Mode]Thresholds{
	ModeLow: {
		SpreadThreshold:    0.001,
		DepthThreshold:     1000000,
		DeviationThreshold: 0.05,
		LatencyThresholdMS: 100,
		VolumeThresholdUSD: 10000000,
	},
	ModeMedium: {
		SpreadThreshold:    0.005,
		DepthThreshold:     500000,
		DeviationThreshold: 0.10,
		LatencyThresholdMS: 200,
		VolumeThresholdUSD: 5000000,
	},
	ModeHigh: {
		SpreadThreshold:    0.01,
		DepthThreshold:     100000,
		DeviationThreshold: 0.20,
		LatencyThresholdMS: 500,
		VolumeThresholdUSD: 1000000,
	},
}

// ThresholdsFor returns the limits the given mode enforces
func ThresholdsFor(mode Mode) Thresholds {
	return modeThresholds[mode]
}

// AllThresholds returns the full static table keyed by mode
func AllThresholds() map[Mode]Thresholds {
	all := make(map[Mode]Thresholds, len(modeThresholds))
	for mode, thresholds := range modeThresholds {
		all[mode] = thresholds
	}
	return all
}

// Config is one risk_config row, the newest active row wins
type Config struct {
	ID             int                  `json:"-" db:"id"`
	Mode           Mode                 `json:"mode" db:"mode"`
	Thresholds     Thresholds           `json:"thresholds" db:"thresholds"`
	Reason         datastore.NullString `json:"reason" db:"reason"`
	ChangedBy      string               `json:"changed_by" db:"changed_by"`
	AutoEscalation bool                 `json:"auto_escalation" db:"auto_escalation"`
	IsActive       bool                 `json:"is_active" db:"is_active"`
	CreatedAt      time.Time            `json:"created_at" db:"created_at"`
}

// ModeResponse is the wire shape of the active risk posture
type ModeResponse struct {
	CurrentMode    Mode       `json:"current_mode"`
	Thresholds     Thresholds `json:"thresholds"`
	LastChanged    *time.Time `json:"last_changed,omitempty"`
	ChangedBy      string     `json:"changed_by,omitempty"`
	AutoEscalation bool       `json:"auto_escalation"`
}

// SetModeRequest asks for a mode change
type SetModeRequest struct {
	Mode           string `json:"mode" valid:"required"`
	Reason         string `json:"reason" valid:"-"`
	AutoEscalation *bool  `json:"auto_escalation" valid:"-"`
}

// Metrics is the aggregated market picture backing the composite score
type Metrics struct {
	Spread       float64 `json:"spread"`
	Depth        float64 `json:"depth"`
	Deviation    float64 `json:"deviation"`
	LatencyMS    int     `json:"latency_ms"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	RiskScore    float64 `json:"risk_score"`
}

// QuoteAggregates is the hour-window rollup of liquidity_quotes
type QuoteAggregates struct {
	Samples      int64           `db:"samples"`
	AvgSpread    sql.NullFloat64 `db:"avg_spread"`
	AvgLatencyMS sql.NullFloat64 `db:"avg_latency_ms"`
	TotalVolume  sql.NullFloat64 `db:"total_volume"`
	SpreadStddev sql.NullFloat64 `db:"spread_stddev"`
}

// AssessedPayment is the slice of a payments row scoring needs
type AssessedPayment struct {
	TransactionID uuid.UUID       `db:"transaction_id"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	DebtorAccount string          `db:"debtor_account"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Assessment is one stored risk_assessments row
type Assessment struct {
	AssessmentID      uuid.UUID                 `json:"assessment_id" db:"assessment_id"`
	TransactionID     uuid.UUID                 `json:"transaction_id" db:"transaction_id"`
	RiskScore         decimal.Decimal           `json:"risk_score" db:"risk_score"`
	RiskFactors       jsonutils.JSONStringArray `json:"risk_factors" db:"risk_factors"`
	RecommendedAction Action                    `json:"recommended_action" db:"recommended_action"`
	AssessedAt        time.Time                 `json:"assessed_at" db:"assessed_at"`
}

// AssessmentResponse mirrors the stored verdict for the caller
type AssessmentResponse struct {
	TransactionID     uuid.UUID                 `json:"transaction_id"`
	RiskScore         decimal.Decimal           `json:"risk_score"`
	RiskFactors       jsonutils.JSONStringArray `json:"risk_factors"`
	RecommendedAction Action                    `json:"recommended_action"`
	AssessmentTime    time.Time                 `json:"assessment_time"`
}

// ModeChangedEvent is the payload published on risk.mode_changed
type ModeChangedEvent struct {
	PreviousMode Mode      `json:"previous_mode"`
	NewMode      Mode      `json:"new_mode"`
	Reason       string    `json:"reason,omitempty"`
	ChangedBy    string    `json:"changed_by"`
	ChangedAt    time.Time `json:"changed_at"`
}

// AssessmentCompletedEvent is the payload published on risk.assessment_completed
type AssessmentCompletedEvent struct {
	TransactionID     uuid.UUID                 `json:"transaction_id"`
	RiskScore         decimal.Decimal           `json:"risk_score"`
	RiskFactors       jsonutils.JSONStringArray `json:"risk_factors"`
	RecommendedAction Action                    `json:"recommended_action"`
	AssessedAt        time.Time                 `json:"assessed_at"`
}

// ScreeningDeadLetter is the payload published on payment.screening.dlq,
// carrying the original message verbatim alongside the failure
type ScreeningDeadLetter struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Error     string          `json:"error"`
	Partition int             `json:"partition"`
	Offset    int64           `json:"offset"`
}
