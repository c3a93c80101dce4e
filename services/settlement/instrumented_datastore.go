package settlement

// DO NOT EDIT!
// This code is generated with http://github.com/hexdigest/gowrap tool
// using ../.prom-gowrap.tmpl template

//go:generate gowrap gen -p github.com/corridor-intl/rail-go/services/settlement -i Datastore -t ../.prom-gowrap.tmpl -o instrumented_datastore.go

import (
	"context"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	uuid "github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DatastoreWithPrometheus implements Datastore interface with all methods wrapped
// with Prometheus metrics
type DatastoreWithPrometheus struct {
	base         Datastore
	instanceName string
}

var datastoreDurationSummaryVec = promauto.NewSummaryVec(
	prometheus.SummaryOpts{
		Name:       "settlement_datastore_duration_seconds",
		Help:       "datastore runtime duration and result",
		MaxAge:     time.Minute,
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	},
	[]string{"instance_name", "method", "result"})

// NewDatastoreWithPrometheus returns an instance of the Datastore decorated with prometheus summary metric
func NewDatastoreWithPrometheus(base Datastore, instanceName string) DatastoreWithPrometheus {
	return DatastoreWithPrometheus{
		base:         base,
		instanceName: instanceName,
	}
}

// BeginTx implements Datastore
func (_d DatastoreWithPrometheus) BeginTx() (tp1 *sqlx.Tx, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "BeginTx", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.BeginTx()
}

// CloseBatch implements Datastore
func (_d DatastoreWithPrometheus) CloseBatch(ctx context.Context, batchID uuid.UUID, window Window) (bp1 *Batch, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "CloseBatch", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.CloseBatch(ctx, batchID, window)
}

// GetBacklog implements Datastore
func (_d DatastoreWithPrometheus) GetBacklog(ctx context.Context, intradayBound time.Time, eodBound time.Time) (bp1 *Backlog, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetBacklog", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetBacklog(ctx, intradayBound, eodBound)
}

// GetBatch implements Datastore
func (_d DatastoreWithPrometheus) GetBatch(ctx context.Context, batchID uuid.UUID) (bp1 *Batch, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetBatch", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetBatch(ctx, batchID)
}

// GetBatchPayments implements Datastore
func (_d DatastoreWithPrometheus) GetBatchPayments(ctx context.Context, batchID uuid.UUID) (ba1 []BatchPayment, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetBatchPayments", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetBatchPayments(ctx, batchID)
}

// GetRecentBatches implements Datastore
func (_d DatastoreWithPrometheus) GetRecentBatches(ctx context.Context, limit int) (ba1 []Batch, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetRecentBatches", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetRecentBatches(ctx, limit)
}

// GetUnbatchedApproved implements Datastore
func (_d DatastoreWithPrometheus) GetUnbatchedApproved(ctx context.Context) (ea1 []EligiblePayment, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetUnbatchedApproved", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetUnbatchedApproved(ctx)
}

// Migrate implements Datastore
func (_d DatastoreWithPrometheus) Migrate(p1 ...uint) (err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "Migrate", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.Migrate(p1...)
}

// NewMigrate implements Datastore
func (_d DatastoreWithPrometheus) NewMigrate() (mp1 *migrate.Migrate, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "NewMigrate", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.NewMigrate()
}

// RawDB implements Datastore
func (_d DatastoreWithPrometheus) RawDB() (dp1 *sqlx.DB) {
	_since := time.Now()
	defer func() {
		result := "ok"
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "RawDB", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.RawDB()
}

// RollbackTx implements Datastore
func (_d DatastoreWithPrometheus) RollbackTx(p1 *sqlx.Tx) {
	_since := time.Now()
	defer func() {
		result := "ok"
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "RollbackTx", result).Observe(time.Since(_since).Seconds())
	}()
	_d.base.RollbackTx(p1)
	return
}

// RollbackTxAndHandle implements Datastore
func (_d DatastoreWithPrometheus) RollbackTxAndHandle(p1 *sqlx.Tx) (err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "RollbackTxAndHandle", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.RollbackTxAndHandle(p1)
}
