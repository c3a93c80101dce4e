package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/corridor-intl/rail-go/libs/datastore"
	errorutils "github.com/corridor-intl/rail-go/libs/errors"
	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/jsonutils"
	"github.com/corridor-intl/rail-go/libs/kv"
	"github.com/corridor-intl/rail-go/libs/logging"
	srv "github.com/corridor-intl/rail-go/libs/service"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	modeCacheKey    = "risk:current_mode"
	modeCacheTTL    = 5 * time.Minute
	metricsCacheKey = "risk:metrics"
	metricsCacheTTL = time.Minute
)

var currentRiskScore = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "risk_score_current",
	Help: "Latest composite risk score computed from market metrics",
})

// Service contains datastore, cache and event bus connections
type Service struct {
	Datastore Datastore
	cache     kv.Store
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
		bus:       bus,
	}

	service.jobs = []srv.Job{
		{
			Func:    service.RunNextMetricsRefresh,
			Cadence: time.Minute,
			Workers: 1,
		},
	}

	if err := prometheus.Register(currentRiskScore); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			currentRiskScore = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return service, nil
}

// GetMode returns the active risk posture. The cached response wins, then the
// newest active row, then the Medium default, and whatever we answered is
// written back to the cache.
func (service *Service) GetMode(ctx context.Context) (*ModeResponse, error) {
	if cached, err := service.cache.Get(ctx, modeCacheKey); err == nil {
		var resp ModeResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			return &resp, nil
		}
	} else if !errors.Is(err, kv.ErrMiss) {
		logging.Logger(ctx, "risk.GetMode").Warn().Err(err).Msg("risk mode cache unavailable")
	}

	config, err := service.Datastore.GetActiveConfig(ctx)
	if err != nil {
		return nil, err
	}

	resp := &ModeResponse{
		CurrentMode:    ModeMedium,
		Thresholds:     ThresholdsFor(ModeMedium),
		AutoEscalation: true,
	}
	if config != nil {
		resp.CurrentMode = config.Mode
		resp.Thresholds = ThresholdsFor(config.Mode)
		lastChanged := config.CreatedAt
		resp.LastChanged = &lastChanged
		resp.ChangedBy = config.ChangedBy
		resp.AutoEscalation = config.AutoEscalation
	}

	service.cacheMode(ctx, resp)
	return resp, nil
}

// SetMode installs a new active risk configuration, refreshes the cache and
// announces the change on the bus
func (service *Service) SetMode(ctx context.Context, mode Mode, reason string, autoEscalation bool) (*ModeResponse, error) {
	previous, err := service.GetMode(ctx)
	if err != nil {
		return nil, err
	}

	storedReason := reason
	if storedReason == "" {
		storedReason = "Manual update"
	}

	stored, err := service.Datastore.SetActiveConfig(ctx, &Config{
		Mode:           mode,
		Thresholds:     ThresholdsFor(mode),
		Reason:         datastore.NullString{NullString: sql.NullString{String: storedReason, Valid: true}},
		ChangedBy:      "system",
		AutoEscalation: autoEscalation,
	})
	if err != nil {
		return nil, err
	}

	resp := &ModeResponse{
		CurrentMode:    stored.Mode,
		Thresholds:     ThresholdsFor(stored.Mode),
		LastChanged:    &stored.CreatedAt,
		ChangedBy:      stored.ChangedBy,
		AutoEscalation: stored.AutoEscalation,
	}
	service.cacheMode(ctx, resp)

	service.publish(ctx, event.TopicModeChanged, &ModeChangedEvent{
		PreviousMode: previous.CurrentMode,
		NewMode:      stored.Mode,
		Reason:       storedReason,
		ChangedBy:    stored.ChangedBy,
		ChangedAt:    stored.CreatedAt,
	})

	return resp, nil
}

func (service *Service) cacheMode(ctx context.Context, resp *ModeResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := service.cache.Set(ctx, modeCacheKey, string(data), modeCacheTTL); err != nil {
		logging.Logger(ctx, "risk.cacheMode").Warn().Err(err).Msg("failed to cache risk mode")
	}
}

// GetMetrics returns the market metrics and composite score for the last
// hour of quote traffic, cached for a minute between recomputes
func (service *Service) GetMetrics(ctx context.Context) (*Metrics, error) {
	if cached, err := service.cache.Get(ctx, metricsCacheKey); err == nil {
		var metrics Metrics
		if err := json.Unmarshal([]byte(cached), &metrics); err == nil {
			return &metrics, nil
		}
	} else if !errors.Is(err, kv.ErrMiss) {
		logging.Logger(ctx, "risk.GetMetrics").Warn().Err(err).Msg("risk metrics cache unavailable")
	}

	aggregates, err := service.Datastore.GetQuoteAggregates(ctx)
	if err != nil {
		return nil, err
	}

	metrics := service.computeMetrics(ctx, aggregates)
	currentRiskScore.Set(metrics.RiskScore)

	if data, err := json.Marshal(metrics); err == nil {
		if err := service.cache.Set(ctx, metricsCacheKey, string(data), metricsCacheTTL); err != nil {
			logging.Logger(ctx, "risk.GetMetrics").Warn().Err(err).Msg("failed to cache risk metrics")
		}
	}

	return metrics, nil
}

// computeMetrics turns the quote rollup into the reported metrics. Each
// breached threshold under the current mode adds 25 to the composite score.
func (service *Service) computeMetrics(ctx context.Context, aggregates *QuoteAggregates) *Metrics {
	if aggregates == nil || aggregates.Samples == 0 {
		// no quote traffic in the window, report the baseline picture
		return &Metrics{
			Spread:       0.002,
			Depth:        1000000,
			Deviation:    0.05,
			LatencyMS:    80,
			Volume24hUSD: 5000000,
			RiskScore:    25,
		}
	}

	avgSpread := aggregates.AvgSpread.Float64
	avgLatency := aggregates.AvgLatencyMS.Float64
	totalVolume := aggregates.TotalVolume.Float64

	deviation := 0.05
	if aggregates.Samples > 1 {
		deviation = 0
		if avgSpread > 0 {
			deviation = aggregates.SpreadStddev.Float64 / avgSpread
		}
	}

	thresholds := ThresholdsFor(ModeMedium)
	if mode, err := service.GetMode(ctx); err == nil {
		thresholds = mode.Thresholds
	}

	score := 0.0
	if avgSpread > thresholds.SpreadThreshold {
		score += 25
	}
	if deviation > thresholds.DeviationThreshold {
		score += 25
	}
	if avgLatency > float64(thresholds.LatencyThresholdMS) {
		score += 25
	}
	if totalVolume > thresholds.VolumeThresholdUSD {
		score += 25
	}

	return &Metrics{
		Spread:       avgSpread,
		Depth:        totalVolume,
		Deviation:    deviation,
		LatencyMS:    int(avgLatency),
		Volume24hUSD: totalVolume,
		RiskScore:    score,
	}
}

// RunNextMetricsRefresh keeps the exported risk score current between
// requests. Serving from the cache when it is still warm is fine, the gauge
// then updates on the first recompute after expiry.
func (service *Service) RunNextMetricsRefresh(ctx context.Context) (bool, error) {
	_, err := service.GetMetrics(ctx)
	return err == nil, err
}

// AssessTransaction scores a payment against the static factor rules, stores
// the verdict and announces it on the bus
func (service *Service) AssessTransaction(ctx context.Context, transactionID uuid.UUID) (*AssessmentResponse, error) {
	payment, err := service.Datastore.GetPaymentForAssessment(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, errorutils.ErrNotFound
	}

	factors := jsonutils.JSONStringArray{}
	score := int64(0)

	if payment.Amount.GreaterThan(decimal.NewFromInt(100000)) {
		factors = append(factors, "HIGH_VALUE")
		score += 20
	}

	switch payment.Currency {
	case "AED", "INR", "CNY":
		factors = append(factors, "HIGH_RISK_CURRENCY")
		score += 15
	}

	recent, err := service.Datastore.CountRecentDebtorPayments(ctx, payment.DebtorAccount)
	if err != nil {
		return nil, err
	}
	if recent > 10 {
		factors = append(factors, "HIGH_FREQUENCY")
		score += 10
	}

	if isWeekend(time.Now().UTC()) {
		factors = append(factors, "WEEKEND_TRANSACTION")
		score += 5
	}

	action := ActionApprove
	switch {
	case score >= 40:
		action = ActionManualReview
	case score >= 20:
		action = ActionEnhancedMonitoring
	}

	assessmentID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	stored, err := service.Datastore.UpsertAssessment(ctx, &Assessment{
		AssessmentID:      assessmentID,
		TransactionID:     transactionID,
		RiskScore:         decimal.NewFromInt(score),
		RiskFactors:       factors,
		RecommendedAction: action,
	})
	if err != nil {
		return nil, err
	}

	service.publish(ctx, event.TopicAssessmentDone, &AssessmentCompletedEvent{
		TransactionID:     stored.TransactionID,
		RiskScore:         stored.RiskScore,
		RiskFactors:       stored.RiskFactors,
		RecommendedAction: stored.RecommendedAction,
		AssessedAt:        stored.AssessedAt,
	})

	return &AssessmentResponse{
		TransactionID:     stored.TransactionID,
		RiskScore:         stored.RiskScore,
		RiskFactors:       stored.RiskFactors,
		RecommendedAction: stored.RecommendedAction,
		AssessmentTime:    stored.AssessedAt,
	}, nil
}

func isWeekend(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// publish sends an event on the bus, logging rather than surfacing failures
func (service *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if err := service.bus.Publish(ctx, topic, payload); err != nil {
		logging.Logger(ctx, "risk.publish").Error().Err(err).
			Str("topic", topic).
			Msg("failed to publish event")
	}
}
