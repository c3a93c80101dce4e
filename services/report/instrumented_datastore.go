package report

// DO NOT EDIT!
// This code is generated with http://github.com/hexdigest/gowrap tool
// using ../.prom-gowrap.tmpl template

//go:generate gowrap gen -p github.com/corridor-intl/rail-go/services/report -i Datastore -t ../.prom-gowrap.tmpl -o instrumented_datastore.go

import (
	"context"
	"time"

	inputs "github.com/corridor-intl/rail-go/libs/inputs"
	payments "github.com/corridor-intl/rail-go/libs/payments"
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
		Name:       "report_datastore_duration_seconds",
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

// GetBlockReferences implements Datastore
func (_d DatastoreWithPrometheus) GetBlockReferences(ctx context.Context, transactionIDs []uuid.UUID) (sa1 []string, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetBlockReferences", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetBlockReferences(ctx, transactionIDs)
}

// GetComplianceStats implements Datastore
func (_d DatastoreWithPrometheus) GetComplianceStats(ctx context.Context, start time.Time, end time.Time) (cp1 *ComplianceStats, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetComplianceStats", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetComplianceStats(ctx, start, end)
}

// GetCurrencyBalances implements Datastore
func (_d DatastoreWithPrometheus) GetCurrencyBalances(ctx context.Context, since time.Time) (ca1 []CurrencyBalance, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetCurrencyBalances", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetCurrencyBalances(ctx, since)
}

// GetSettledPayments implements Datastore
func (_d DatastoreWithPrometheus) GetSettledPayments(ctx context.Context, dayStart time.Time, dayEnd time.Time) (sa1 []SettledPayment, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetSettledPayments", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetSettledPayments(ctx, dayStart, dayEnd)
}

// GetTransactions implements Datastore
func (_d DatastoreWithPrometheus) GetTransactions(ctx context.Context, start time.Time, end time.Time, status payments.TransactionStatus, currency string, pagination *inputs.Pagination) (ta1 []TransactionRow, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetTransactions", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetTransactions(ctx, start, end, status, currency, pagination)
}

// InsertReport implements Datastore
func (_d DatastoreWithPrometheus) InsertReport(ctx context.Context, report *Report) (err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "InsertReport", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.InsertReport(ctx, report)
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
