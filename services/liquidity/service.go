package liquidity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	errorutils "github.com/corridor-intl/rail-go/libs/errors"
	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/kv"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/libs/middleware"
	"github.com/corridor-intl/rail-go/libs/payments"
	srv "github.com/corridor-intl/rail-go/libs/service"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	// quoteBudget is the wall clock ceiling for the whole provider fan-out
	quoteBudget = 120 * time.Millisecond
	// quoteTTL bounds a quote's execution window
	quoteTTL = 30 * time.Second
	// responseTTL is how long an identical request replays the cached response
	responseTTL = 30 * time.Second

	rateMemoTTL   = 5 * time.Minute
	rateMemoPurge = 10 * time.Minute

	defaultMaxSources = 3
	maxSourcesLimit   = 5
)

// ErrNoQuotes signals that every dispatched provider timed out or failed
var ErrNoQuotes = errors.New("liquidity: no provider returned a quote")

// Service contains datastore, cache and event bus connections
type Service struct {
	Datastore Datastore
	cache     kv.Store
	rates     *gocache.Cache
	bus       event.Publisher
	jobs      []srv.Job
}

// Jobs - Implement srv.JobService interface
func (service *Service) Jobs() []srv.Job {
	return service.jobs
}

// InitService creates a service using the passed datastore, cache and event publisher
func InitService(ctx context.Context, datastore Datastore, cache kv.Store, bus event.Publisher) (*Service, error) {
	service := &Service{
		Datastore: datastore,
		cache:     cache,
		rates:     gocache.New(rateMemoTTL, rateMemoPurge),
		bus:       bus,
		jobs:      []srv.Job{},
	}
	return service, nil
}

// GetQuotes prices a corridor across every provider serving it, capped at
// maxSources, and selects the best quote by utility. Identical requests
// inside the cache window replay the cached response under a fresh request
// id. Providers that have not answered when the budget lapses are cancelled
// and the survivors make up the response.
func (service *Service) GetQuotes(ctx context.Context, from, to string, amount decimal.Decimal, method payments.SettlementMethod, maxSources int) (*QuoteResponse, error) {
	logger := logging.Logger(ctx, "liquidity.GetQuotes")

	requestID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("liquidity:%s:%s:%s:%s", from, to, amount.String(), method)
	if cached, err := service.cache.Get(ctx, cacheKey); err == nil {
		var resp QuoteResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			resp.RequestID = requestID
			return &resp, nil
		}
		logger.Warn().Str("key", cacheKey).Msg("discarding malformed cached response")
	} else if !errors.Is(err, kv.ErrMiss) {
		logger.Warn().Err(err).Msg("quote response cache unavailable")
	}

	eligible := eligibleProviders(from, to)
	if len(eligible) > maxSources {
		eligible = eligible[:maxSources]
	}

	fanCtx, cancel := context.WithTimeout(ctx, quoteBudget)
	defer cancel()

	var wg sync.WaitGroup
	results := make(chan *Quote, len(eligible))
	for _, provider := range eligible {
		wg.Add(1)
		go func(provider Provider) {
			defer wg.Done()
			defer middleware.ConcurrentGoRoutines.With(
				prometheus.Labels{
					"method": "GetQuotes",
				}).Dec()

			middleware.ConcurrentGoRoutines.With(
				prometheus.Labels{
					"method": "GetQuotes",
				}).Inc()

			quote, err := service.priceQuote(fanCtx, provider, from, to, amount)
			if err != nil {
				logger.Warn().Err(err).Str("source", provider.Name).Msg("provider quote abandoned")
				return
			}
			results <- quote
		}(provider)
	}
	wg.Wait()
	close(results)

	quotes := make([]*Quote, 0, len(eligible))
	for quote := range results {
		quotes = append(quotes, quote)
	}
	if len(quotes) == 0 {
		return nil, ErrNoQuotes
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].UtilityScore.GreaterThan(quotes[j].UtilityScore)
	})

	resp := &QuoteResponse{
		RequestID:    requestID,
		FromCurrency: from,
		ToCurrency:   to,
		Amount:       amount,
		Quotes:       quotes,
		BestQuote:    quotes[0],
		GeneratedAt:  time.Now().UTC(),
	}

	if body, err := json.Marshal(resp); err == nil {
		if err := service.cache.Set(ctx, cacheKey, string(body), responseTTL); err != nil {
			logger.Warn().Err(err).Msg("failed to cache quote response")
		}
	}

	service.publish(ctx, event.TopicQuoteGenerated, &QuoteGeneratedEvent{
		RequestID:    requestID,
		FromCurrency: from,
		ToCurrency:   to,
		Amount:       amount,
		QuoteCount:   len(quotes),
		BestQuoteID:  resp.BestQuote.QuoteID,
		BestSource:   resp.BestQuote.Source,
		GeneratedAt:  resp.GeneratedAt,
	})

	return resp, nil
}

// priceQuote simulates one provider pricing the corridor. The provider's
// advertised latency elapses first, so a fan-out deadline firing earlier
// abandons the quote before any state is written.
func (service *Service) priceQuote(ctx context.Context, provider Provider, from, to string, amount decimal.Decimal) (*Quote, error) {
	timer := time.NewTimer(time.Duration(provider.LatencyMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	quoteID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	mid := service.midRate(from, to)
	spread, applied, utility := provider.price(mid)
	now := time.Now().UTC()
	quote := &Quote{
		QuoteID:      quoteID,
		FromCurrency: from,
		ToCurrency:   to,
		Amount:       amount,
		MidRate:      mid,
		AppliedRate:  applied,
		Spread:       spread,
		Source:       provider.Name,
		TTLSeconds:   int(quoteTTL / time.Second),
		ExpiresAt:    now.Add(quoteTTL),
		UtilityScore: utility,
	}

	body, err := json.Marshal(quote)
	if err != nil {
		return nil, err
	}
	// a quote nobody can execute is worthless, so a failed kv write drops it
	if err := service.cache.Set(ctx, quoteKey(quote.QuoteID), string(body), quoteTTL); err != nil {
		return nil, err
	}

	if err := service.Datastore.InsertQuote(ctx, quote, provider.LatencyMS); err != nil {
		logging.Logger(ctx, "liquidity.priceQuote").Warn().Err(err).
			Str("source", provider.Name).
			Msg("failed to record quote for analytics")
	}

	return quote, nil
}

// midRate resolves the corridor mid rate from the static table, the inverse
// of the reverse pair, or a synthesized rate memoized so repeat lookups
// inside the memo window price consistently
func (service *Service) midRate(from, to string) decimal.Decimal {
	if rate, ok := midRates[currencyPair{from, to}]; ok {
		return rate
	}
	if reverse, ok := midRates[currencyPair{to, from}]; ok {
		return decimal.NewFromInt(1).Div(reverse).Round(8)
	}

	memoKey := from + ":" + to
	if rate, found := service.rates.Get(memoKey); found {
		return rate.(decimal.Decimal)
	}
	rate := synthRate()
	service.rates.Set(memoKey, rate, gocache.DefaultExpiration)
	return rate
}

// GetQuote returns a live quote by id. Expired quotes age out of the kv
// store, so absence covers unknown and lapsed ids alike.
func (service *Service) GetQuote(ctx context.Context, quoteID uuid.UUID) (*Quote, error) {
	cached, err := service.cache.Get(ctx, quoteKey(quoteID))
	if err != nil {
		if errors.Is(err, kv.ErrMiss) {
			return nil, errorutils.ErrNotFound
		}
		return nil, err
	}

	var quote Quote
	if err := json.Unmarshal([]byte(cached), &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// ExecuteQuote consumes a quote. The atomic read-and-delete makes the quote
// single use, concurrent executions race for the key and exactly one wins.
func (service *Service) ExecuteQuote(ctx context.Context, quoteID uuid.UUID) (*ExecutionResult, error) {
	cached, err := service.cache.GetDel(ctx, quoteKey(quoteID))
	if err != nil {
		if errors.Is(err, kv.ErrMiss) {
			return nil, errorutils.ErrNotFound
		}
		return nil, err
	}

	var quote Quote
	if err := json.Unmarshal([]byte(cached), &quote); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if now.After(quote.ExpiresAt) {
		return nil, errorutils.ErrExpired
	}

	result := &ExecutionResult{
		QuoteID:             quote.QuoteID,
		Status:              StatusExecuted,
		ExecutedRate:        quote.AppliedRate,
		SettlementReference: uuid.New(),
		ExecutedAt:          now,
	}

	service.publish(ctx, event.TopicQuoteExecuted, &QuoteExecutedEvent{
		QuoteID:             quote.QuoteID,
		Source:              quote.Source,
		FromCurrency:        quote.FromCurrency,
		ToCurrency:          quote.ToCurrency,
		Amount:              quote.Amount,
		ExecutedRate:        quote.AppliedRate,
		SettlementReference: result.SettlementReference,
		ExecutedAt:          now,
	})

	return result, nil
}

func quoteKey(quoteID uuid.UUID) string {
	return "quote:" + quoteID.String()
}

func (service *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if err := service.bus.Publish(ctx, topic, payload); err != nil {
		logging.Logger(ctx, "liquidity.publish").Error().Err(err).
			Str("topic", topic).
			Msg("failed to publish event")
	}
}
