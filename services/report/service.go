package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/inputs"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/libs/payments"
	srv "github.com/corridor-intl/rail-go/libs/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// reservesWindow is the lookback over which reserves are stated
	reservesWindow = 30 * 24 * time.Hour
	// reservesValidity is how long a proof of reserves attests for
	reservesValidity = 24 * time.Hour

	// transactionLookbackDays is the default transaction report period
	transactionLookbackDays = 7
	// complianceLookbackDays is the default compliance report period
	complianceLookbackDays = 30
)

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
		jobs:      []srv.Job{},
	}
	return service, nil
}

// GenerateProofOfReserves states reserves held against outstanding
// liabilities per currency over the reserve window, attests the totals and
// persists the report before returning it
func (service *Service) GenerateProofOfReserves(ctx context.Context) (*ReservesResponse, error) {
	reportID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	generatedAt := time.Now().UTC()

	balances, err := service.Datastore.GetCurrencyBalances(ctx, generatedAt.Add(-reservesWindow))
	if err != nil {
		return nil, err
	}

	currencies := make(map[string]CurrencyReserves, len(balances))
	totalReserves := decimal.Zero
	totalLiabilities := decimal.Zero
	for _, balance := range balances {
		reserves := balance.SettledAmount.Mul(reserveMultiplier)
		liabilities := balance.PendingAmount
		ratio := decimal.Zero
		if liabilities.IsPositive() {
			ratio = reserves.Div(liabilities).Round(6)
		}

		rate := usdRate(balance.Currency)
		usdReserves := reserves.Mul(rate)
		usdLiabilities := liabilities.Mul(rate)
		currencies[balance.Currency] = CurrencyReserves{
			SettledAmount:       balance.SettledAmount,
			PendingAmount:       balance.PendingAmount,
			Reserves:            reserves,
			Liabilities:         liabilities,
			ReserveRatio:        ratio,
			USDValueReserves:    usdReserves,
			USDValueLiabilities: usdLiabilities,
		}
		totalReserves = totalReserves.Add(usdReserves)
		totalLiabilities = totalLiabilities.Add(usdLiabilities)
	}

	overall := decimal.Zero
	if totalLiabilities.IsPositive() {
		overall = totalReserves.Div(totalLiabilities).Round(6)
	}

	resp := &ReservesResponse{
		ReportID:            reportID,
		GeneratedAt:         generatedAt,
		TotalReservesUSD:    totalReserves,
		TotalLiabilitiesUSD: totalLiabilities,
		ReserveRatio:        overall,
		Currencies:          currencies,
		AttestationHash:     attestationHash(reportID, totalReserves, totalLiabilities, generatedAt),
		ValidUntil:          generatedAt.Add(reservesValidity),
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	report := &Report{
		ReportID:        reportID,
		ReportType:      ReportTypeProofOfReserves,
		Payload:         payload,
		AttestationHash: resp.AttestationHash,
		GeneratedAt:     generatedAt,
	}
	// an attestation nobody can audit later is worthless, so a failed
	// insert fails the report
	if err := service.Datastore.InsertReport(ctx, report); err != nil {
		return nil, err
	}

	service.publish(ctx, event.TopicReservesGenerated, &ReservesGeneratedEvent{
		ReportID:         reportID,
		TotalReservesUSD: totalReserves,
		ReserveRatio:     overall,
	})

	return resp, nil
}

// GenerateProofOfSettlement reconstructs the settlement activity of one UTC
// day from the batches closed that day, commits to the settled transaction
// set with a merkle root and cites the ledger blocks anchoring it. The proof
// is derived from ledger state on every call and is not persisted.
func (service *Service) GenerateProofOfSettlement(ctx context.Context, day time.Time) (*SettlementProofResponse, error) {
	reportID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	generatedAt := time.Now().UTC()

	settled, err := service.Datastore.GetSettledPayments(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	batchIndex := map[uuid.UUID]int{}
	batches := []*SettlementBatchProof{}
	transactionIDs := make([]uuid.UUID, 0, len(settled))
	currencyBreakdown := map[string]decimal.Decimal{}
	totalUSD := decimal.Zero
	for _, payment := range settled {
		idx, ok := batchIndex[payment.BatchID]
		if !ok {
			idx = len(batches)
			batchIndex[payment.BatchID] = idx
			batches = append(batches, &SettlementBatchProof{
				BatchID:        payment.BatchID,
				WindowType:     payment.WindowType,
				ClosedAt:       payment.ClosedAt,
				Transactions:   []BatchTransaction{},
				TotalAmountUSD: decimal.Zero,
			})
		}

		amountUSD := payment.Amount.Mul(usdRate(payment.Currency))
		batch := batches[idx]
		batch.Transactions = append(batch.Transactions, BatchTransaction{
			TransactionID: payment.TransactionID,
			UETR:          payment.UETR,
			Amount:        payment.Amount,
			Currency:      payment.Currency,
			AmountUSD:     amountUSD,
		})
		batch.TotalAmountUSD = batch.TotalAmountUSD.Add(amountUSD)
		totalUSD = totalUSD.Add(amountUSD)
		transactionIDs = append(transactionIDs, payment.TransactionID)
		currencyBreakdown[payment.Currency] = currencyBreakdown[payment.Currency].Add(payment.Amount)
	}

	blockReferences := []string{}
	if len(transactionIDs) > 0 {
		references, err := service.Datastore.GetBlockReferences(ctx, transactionIDs)
		if err != nil {
			return nil, err
		}
		blockReferences = references
	}

	batchReferences := make([]uuid.UUID, 0, len(batches))
	for _, batch := range batches {
		batchReferences = append(batchReferences, batch.BatchID)
	}

	return &SettlementProofResponse{
		ReportID:                 reportID,
		SettlementDate:           day.Format("2006-01-02"),
		GeneratedAt:              generatedAt,
		TotalSettledTransactions: len(settled),
		TotalSettledAmountUSD:    totalUSD,
		SettlementBatches:        batches,
		Manifest: ISO20022Manifest{
			MessageType:          camt053MessageType,
			CreationDateTime:     generatedAt,
			NumberOfTransactions: len(settled),
			ControlSum:           totalUSD,
			SettlementMethod:     string(payments.MethodNetting),
			CurrencyBreakdown:    currencyBreakdown,
			BatchReferences:      batchReferences,
		},
		MerkleRoot:      merkleRoot(transactionIDs),
		BlockReferences: blockReferences,
	}, nil
}

// GetTransactionReport lists payments created between start and end
// inclusive under the optional status and currency filters, newest first,
// with USD volume aggregated over the listed rows. A non nil pagination with
// explicit items narrows the listing to that page.
func (service *Service) GetTransactionReport(ctx context.Context, start, end time.Time, status payments.TransactionStatus, currency string, pagination *inputs.Pagination) (*TransactionReportResponse, error) {
	rows, err := service.Datastore.GetTransactions(ctx, start, end.AddDate(0, 0, 1), status, currency, pagination)
	if err != nil {
		return nil, err
	}

	transactions := make([]ReportedTransaction, 0, len(rows))
	totalUSD := decimal.Zero
	for _, row := range rows {
		item := ReportedTransaction{
			TransactionID: row.TransactionID,
			UETR:          row.UETR,
			Amount:        row.Amount,
			Currency:      row.Currency,
			Status:        row.Status,
			CreatedAt:     row.CreatedAt,
		}
		switch row.Status {
		case payments.StatusSettled, payments.StatusCompleted:
			settledAt := row.UpdatedAt
			item.SettledAt = &settledAt
		}
		if row.RiskScore.Valid {
			score := row.RiskScore.Decimal
			item.RiskScore = &score
		}

		totalUSD = totalUSD.Add(row.Amount.Mul(usdRate(row.Currency)))
		transactions = append(transactions, item)
	}

	resp := &TransactionReportResponse{
		Transactions:   transactions,
		TotalCount:     len(transactions),
		TotalAmountUSD: totalUSD,
		Filters: ReportFilters{
			StartDate: start.Format("2006-01-02"),
			EndDate:   end.Format("2006-01-02"),
			Status:    string(status),
			Currency:  currency,
		},
	}
	if pagination != nil && pagination.Items > 0 {
		resp.Page = pagination.Page
		resp.Items = pagination.Items
	}
	return resp, nil
}

// GenerateComplianceReport summarizes regulatory counters for payments
// created between periodStart and periodEnd inclusive
func (service *Service) GenerateComplianceReport(ctx context.Context, periodStart, periodEnd time.Time) (*ComplianceResponse, error) {
	reportID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	stats, err := service.Datastore.GetComplianceStats(ctx, periodStart, periodEnd.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	rate := decimal.NewFromInt(100)
	if stats.TotalTransactions > 0 {
		clean := stats.TotalTransactions - stats.SanctionsHits - stats.PEPMatches
		rate = decimal.NewFromInt(clean).
			Div(decimal.NewFromInt(stats.TotalTransactions)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	return &ComplianceResponse{
		ReportID:             reportID,
		PeriodStart:          periodStart,
		PeriodEnd:            periodEnd,
		TotalTransactions:    stats.TotalTransactions,
		TravelRuleApplicable: stats.TravelRuleApplicable,
		SanctionsHits:        stats.SanctionsHits,
		PEPMatches:           stats.PEPMatches,
		ManualReviews:        stats.ManualReviews,
		ComplianceRate:       rate,
	}, nil
}

func (service *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if err := service.bus.Publish(ctx, topic, payload); err != nil {
		logging.Logger(ctx, "report.publish").Error().Err(err).
			Str("topic", topic).
			Msg("failed to publish event")
	}
}
