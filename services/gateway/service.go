// Package gateway assembles the rail's services behind a single router and
// answers the operational endpoints a deployment needs: health and readiness
// probes, the service banner and the prometheus scrape target.
package gateway

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/corridor-intl/rail-go/libs/kv"
	"github.com/corridor-intl/rail-go/services/liquidity"
	"github.com/corridor-intl/rail-go/services/payment"
	"github.com/corridor-intl/rail-go/services/report"
	"github.com/corridor-intl/rail-go/services/risk"
	"github.com/corridor-intl/rail-go/services/settlement"
)

// ServiceName identifies the rail in the banner and health payloads.
const ServiceName = "corridor-rail"

// Check reports whether a single backing dependency is reachable.
type Check func(ctx context.Context) error

// Checks holds the probes the health endpoint runs, keyed by how they
// surface in the response body. A nil probe reports as not configured and
// does not count against health.
type Checks struct {
	Postgres Check
	Redis    Check
	Kafka    Check
}

// Service owns the mounted sub-services and the dependency probes.
type Service struct {
	payment    *payment.Service
	settlement *settlement.Service
	liquidity  *liquidity.Service
	risk       *risk.Service
	report     *report.Service

	cache  kv.Store
	checks Checks
}

// InitService collects the wired sub-services behind one gateway. The cache
// backs the idempotency middleware guarding payment initiation.
func InitService(
	paymentService *payment.Service,
	settlementService *settlement.Service,
	liquidityService *liquidity.Service,
	riskService *risk.Service,
	reportService *report.Service,
	cache kv.Store,
	checks Checks,
) *Service {
	return &Service{
		payment:    paymentService,
		settlement: settlementService,
		liquidity:  liquidityService,
		risk:       riskService,
		report:     reportService,
		cache:      cache,
		checks:     checks,
	}
}

// PostgresCheck probes connectivity over the given database handle.
func PostgresCheck(db *sqlx.DB) Check {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

// RedisCheck probes the shared kv store.
func RedisCheck(store kv.Store) Check {
	return store.Ping
}

// KafkaCheck dials the first broker in the comma separated list. An empty
// list returns a nil check, events are being logged and dropped instead.
func KafkaCheck(brokers string) Check {
	broker := strings.TrimSpace(strings.Split(brokers, ",")[0])
	if broker == "" {
		return nil
	}
	return func(ctx context.Context) error {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
