package settlement

import (
	"context"
	"errors"
	"time"

	errorutils "github.com/corridor-intl/rail-go/libs/errors"
	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/logging"
	srv "github.com/corridor-intl/rail-go/libs/service"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var backlogTransactions = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "settlement_backlog_transactions",
	Help: "Unbatched APPROVED payments awaiting a batch close",
})

// Service contains datastore and event bus connections
type Service struct {
	Datastore Datastore
	bus       event.Publisher
	jobs      []srv.Job
}

// Jobs - Implement srv.JobService interface
func (service *Service) Jobs() []srv.Job {
	return service.jobs
}

// InitService creates a service using the passed datastore and event publisher
func InitService(ctx context.Context, datastore Datastore, bus event.Publisher) (*Service, error) {
	service := &Service{
		Datastore: datastore,
		bus:       bus,
	}

	service.jobs = []srv.Job{
		{
			Func:    service.RunNextBacklogRefresh,
			Cadence: 30 * time.Second,
			Workers: 1,
		},
	}

	if err := prometheus.Register(backlogTransactions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			backlogTransactions = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return service, nil
}

// CloseBatch claims the window's eligible payments into a new batch and
// announces the close. An empty window commits nothing and answers with the
// empty-batch sentinel.
func (service *Service) CloseBatch(ctx context.Context, window Window) (*BatchCloseResponse, error) {
	batchID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	batch, err := service.Datastore.CloseBatch(ctx, batchID, window)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return &BatchCloseResponse{
			BatchID:             "",
			Window:              window,
			TransactionsSettled: 0,
			TotalAmount:         decimal.Zero,
			NetPositions:        NetPositions{},
			ClosedAt:            time.Now().UTC(),
		}, nil
	}

	service.publish(ctx, event.TopicBatchClosed, &BatchClosedEvent{
		BatchID:          batch.BatchID,
		Window:           batch.WindowType,
		TransactionCount: batch.TotalTransactions,
		TotalAmount:      batch.TotalAmount,
		NetPositions:     batch.NetPositions,
		ClosedAt:         batch.ClosedAt,
	})

	return &BatchCloseResponse{
		BatchID:             batch.BatchID.String(),
		Window:              batch.WindowType,
		TransactionsSettled: batch.TotalTransactions,
		TotalAmount:         batch.TotalAmount,
		NetPositions:        batch.NetPositions,
		ClosedAt:            batch.ClosedAt,
	}, nil
}

// GetStatus reports the backlog, the last ten closed batches and the
// hypothetical nets of the backlog. Read-only and non-transactional, the
// answer may trail a concurrent close by a moment.
func (service *Service) GetStatus(ctx context.Context) (*StatusResponse, error) {
	now := time.Now().UTC()

	backlog, err := service.Datastore.GetBacklog(ctx,
		WindowIntraday.LowerBound(now), WindowEOD.LowerBound(now))
	if err != nil {
		return nil, err
	}

	batches, err := service.Datastore.GetRecentBatches(ctx, 10)
	if err != nil {
		return nil, err
	}

	eligible, err := service.Datastore.GetUnbatchedApproved(ctx)
	if err != nil {
		return nil, err
	}

	resp := &StatusResponse{
		CompletedBatches: batches,
		NetPositions:     CalculateNetPositions(eligible),
	}
	if backlog.TransactionCount > 0 {
		resp.CurrentBacklog = backlog
	}
	return resp, nil
}

// GetBatch returns a closed batch and the payments it claimed
func (service *Service) GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchDetailResponse, error) {
	batch, err := service.Datastore.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, errorutils.ErrNotFound
	}

	transactions, err := service.Datastore.GetBatchPayments(ctx, batchID)
	if err != nil {
		return nil, err
	}

	return &BatchDetailResponse{
		Batch:        *batch,
		Transactions: transactions,
	}, nil
}

// RunNextBacklogRefresh exports the backlog size between closes
func (service *Service) RunNextBacklogRefresh(ctx context.Context) (bool, error) {
	now := time.Now().UTC()
	backlog, err := service.Datastore.GetBacklog(ctx,
		WindowIntraday.LowerBound(now), WindowEOD.LowerBound(now))
	if err != nil {
		return false, err
	}
	backlogTransactions.Set(float64(backlog.TransactionCount))
	return true, nil
}

// publish sends an event on the bus, logging rather than surfacing failures.
// The batch is already committed, settlement correctness never rides on the
// bus being up.
func (service *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if err := service.bus.Publish(ctx, topic, payload); err != nil {
		logging.Logger(ctx, "settlement.publish").Error().Err(err).
			Str("topic", topic).
			Msg("failed to publish event")
	}
}
