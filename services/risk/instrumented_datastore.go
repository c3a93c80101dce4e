package risk

// DO NOT EDIT!
// This code is generated with http://github.com/hexdigest/gowrap tool
// using ../.prom-gowrap.tmpl template

//go:generate gowrap gen -p github.com/corridor-intl/rail-go/services/risk -i Datastore -t ../.prom-gowrap.tmpl -o instrumented_datastore.go

import (
	"context"
	"time"

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
		Name:       "risk_datastore_duration_seconds",
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

// AdvancePaymentStatus implements Datastore
func (_d DatastoreWithPrometheus) AdvancePaymentStatus(ctx context.Context, transactionID uuid.UUID, from payments.TransactionStatus, to payments.TransactionStatus, currentStep string) (b1 bool, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "AdvancePaymentStatus", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.AdvancePaymentStatus(ctx, transactionID, from, to, currentStep)
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

// CountRecentDebtorPayments implements Datastore
func (_d DatastoreWithPrometheus) CountRecentDebtorPayments(ctx context.Context, debtorAccount string) (i1 int, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "CountRecentDebtorPayments", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.CountRecentDebtorPayments(ctx, debtorAccount)
}

// GetActiveConfig implements Datastore
func (_d DatastoreWithPrometheus) GetActiveConfig(ctx context.Context) (cp1 *Config, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetActiveConfig", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetActiveConfig(ctx)
}

// GetPaymentForAssessment implements Datastore
func (_d DatastoreWithPrometheus) GetPaymentForAssessment(ctx context.Context, transactionID uuid.UUID) (ap1 *AssessedPayment, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetPaymentForAssessment", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetPaymentForAssessment(ctx, transactionID)
}

// GetPaymentStatus implements Datastore
func (_d DatastoreWithPrometheus) GetPaymentStatus(ctx context.Context, transactionID uuid.UUID) (t1 payments.TransactionStatus, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetPaymentStatus", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetPaymentStatus(ctx, transactionID)
}

// GetQuoteAggregates implements Datastore
func (_d DatastoreWithPrometheus) GetQuoteAggregates(ctx context.Context) (qp1 *QuoteAggregates, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "GetQuoteAggregates", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetQuoteAggregates(ctx)
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

// SetActiveConfig implements Datastore
func (_d DatastoreWithPrometheus) SetActiveConfig(ctx context.Context, config *Config) (cp1 *Config, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "SetActiveConfig", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.SetActiveConfig(ctx, config)
}

// UpsertAssessment implements Datastore
func (_d DatastoreWithPrometheus) UpsertAssessment(ctx context.Context, assessment *Assessment) (ap1 *Assessment, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		datastoreDurationSummaryVec.WithLabelValues(_d.instanceName, "UpsertAssessment", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.UpsertAssessment(ctx, assessment)
}
