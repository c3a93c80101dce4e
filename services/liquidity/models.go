package liquidity

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusExecuted is the terminal status of a consumed quote
const StatusExecuted = "EXECUTED"

// Provider is a simulated liquidity source. Pricing happens in process, the
// advertised latency is slept rather than spent on a wire call.
type Provider struct {
	Name         string
	Currencies   []string
	BaseSpread   float64
	LatencyMS    int
	UtilityScore float64
}

// providers are the simulated liquidity sources. Table order fixes dispatch
// priority when max_sources truncates the eligible set.
var providers = []Provider{
	{
		Name:         "treasury_pool",
		Currencies:   []string{"USD", "EUR", "GBP", "JPY", "CHF"},
		BaseSpread:   0.002,
		LatencyMS:    50,
		UtilityScore: 0.9,
	},
	{
		Name:         "fund_network",
		Currencies:   []string{"USD", "AED", "INR", "SGD", "HKD"},
		BaseSpread:   0.003,
		LatencyMS:    80,
		UtilityScore: 0.8,
	},
	{
		Name:         "p2p_network",
		Currencies:   []string{"USD", "EUR", "AED", "INR"},
		BaseSpread:   0.001,
		LatencyMS:    120,
		UtilityScore: 0.7,
	},
	{
		Name:         "market_maker",
		Currencies:   []string{"USD", "EUR", "GBP", "JPY", "AED", "INR"},
		BaseSpread:   0.0015,
		LatencyMS:    30,
		UtilityScore: 0.95,
	},
}

type currencyPair struct {
	from string
	to   string
}

// midRates is the static mid-market table. A missing pair falls back to the
// inverse of the reverse pair, then to a synthesized rate.
var midRates = map[currencyPair]decimal.Decimal{
	{"USD", "EUR"}: decimal.NewFromFloat(0.85),
	{"USD", "GBP"}: decimal.NewFromFloat(0.75),
	{"USD", "JPY"}: decimal.NewFromFloat(110),
	{"USD", "AED"}: decimal.NewFromFloat(3.67),
	{"USD", "INR"}: decimal.NewFromFloat(83),
	{"AED", "INR"}: decimal.NewFromFloat(22.6),
	{"EUR", "GBP"}: decimal.NewFromFloat(0.88),
	{"EUR", "USD"}: decimal.NewFromFloat(1.18),
	{"GBP", "USD"}: decimal.NewFromFloat(1.33),
	{"JPY", "USD"}: decimal.NewFromFloat(0.009),
	{"AED", "USD"}: decimal.NewFromFloat(0.27),
	{"INR", "USD"}: decimal.NewFromFloat(0.012),
	{"INR", "AED"}: decimal.NewFromFloat(0.044),
}

func (p Provider) supports(currency string) bool {
	for _, c := range p.Currencies {
		if c == currency {
			return true
		}
	}
	return false
}

// eligibleProviders returns, in table order, every provider serving both
// legs of the corridor
func eligibleProviders(from, to string) []Provider {
	eligible := make([]Provider, 0, len(providers))
	for _, provider := range providers {
		if provider.supports(from) && provider.supports(to) {
			eligible = append(eligible, provider)
		}
	}
	return eligible
}

// jitter returns a uniform random factor in [1-width, 1+width]
func jitter(width float64) float64 {
	return 1 + (rand.Float64()*2-1)*width
}

// synthRate invents a mid rate for a pair absent from the static table
func synthRate() decimal.Decimal {
	return decimal.NewFromFloat(0.5 + rand.Float64()*1.5).Round(8)
}

// price produces the provider's spread, applied rate and utility for a mid
// rate. The spread jitters within ±20% of the advertised base and the
// utility within ±10% of the advertised score.
func (p Provider) price(mid decimal.Decimal) (spread, applied, utility decimal.Decimal) {
	spread = decimal.NewFromFloat(p.BaseSpread * jitter(0.2)).Round(8)
	applied = mid.Mul(decimal.NewFromInt(1).Sub(spread)).Round(8)
	utility = decimal.NewFromFloat(p.UtilityScore * jitter(0.1)).Round(4)
	return spread, applied, utility
}

// Quote is a single provider's priced offer for a corridor. It lives in the
// kv store until executed or expired.
type Quote struct {
	QuoteID      uuid.UUID       `json:"quote_id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Amount       decimal.Decimal `json:"amount"`
	MidRate      decimal.Decimal `json:"mid_rate"`
	AppliedRate  decimal.Decimal `json:"applied_rate"`
	Spread       decimal.Decimal `json:"spread"`
	Source       string          `json:"source"`
	TTLSeconds   int             `json:"ttl_seconds"`
	ExpiresAt    time.Time       `json:"expires_at"`
	UtilityScore decimal.Decimal `json:"utility_score"`
}

// QuoteResponse is the fan-out result, quotes sorted best first
type QuoteResponse struct {
	RequestID    uuid.UUID       `json:"request_id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Amount       decimal.Decimal `json:"amount"`
	Quotes       []*Quote        `json:"quotes"`
	BestQuote    *Quote          `json:"best_quote"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// ExecutionResult confirms the one-shot consumption of a quote
type ExecutionResult struct {
	QuoteID             uuid.UUID       `json:"quote_id"`
	Status              string          `json:"status"`
	ExecutedRate        decimal.Decimal `json:"executed_rate"`
	SettlementReference uuid.UUID       `json:"settlement_reference"`
	ExecutedAt          time.Time       `json:"executed_at"`
}

// QuoteGeneratedEvent is the payload published on liquidity.quote_generated
type QuoteGeneratedEvent struct {
	RequestID    uuid.UUID       `json:"request_id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Amount       decimal.Decimal `json:"amount"`
	QuoteCount   int             `json:"quote_count"`
	BestQuoteID  uuid.UUID       `json:"best_quote_id"`
	BestSource   string          `json:"best_source"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// QuoteExecutedEvent is the payload published on liquidity.quote_executed
type QuoteExecutedEvent struct {
	QuoteID             uuid.UUID       `json:"quote_id"`
	Source              string          `json:"source"`
	FromCurrency        string          `json:"from_currency"`
	ToCurrency          string          `json:"to_currency"`
	Amount              decimal.Decimal `json:"amount"`
	ExecutedRate        decimal.Decimal `json:"executed_rate"`
	SettlementReference uuid.UUID       `json:"settlement_reference"`
	ExecutedAt          time.Time       `json:"executed_at"`
}
