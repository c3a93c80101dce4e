package gateway_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	appctx "github.com/corridor-intl/rail-go/libs/context"
	"github.com/corridor-intl/rail-go/libs/kv"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/services/gateway"
	"github.com/corridor-intl/rail-go/services/liquidity"
	"github.com/corridor-intl/rail-go/services/payment"
	"github.com/corridor-intl/rail-go/services/report"
	"github.com/corridor-intl/rail-go/services/risk"
	"github.com/corridor-intl/rail-go/services/settlement"
	"github.com/jmoiron/sqlx"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthBody struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupGateway(t *testing.T, checks gateway.Checks) (*gateway.Service, context.Context) {
	mr := miniredis.RunT(t)
	store := kv.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	service := gateway.InitService(
		&payment.Service{},
		&settlement.Service{},
		&liquidity.Service{},
		&risk.Service{},
		&report.Service{},
		store,
		checks,
	)

	ctx, _ := logging.SetupLogger(context.Background())
	ctx = context.WithValue(ctx, appctx.VersionCTXKey, "1.2.3")

	return service, ctx
}

func TestHealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectPing()

	mr := miniredis.RunT(t)
	store := kv.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	service, _ := setupGateway(t, gateway.Checks{
		Postgres: gateway.PostgresCheck(sqlx.NewDb(db, "postgres")),
		Redis:    gateway.RedisCheck(store),
		Kafka:    gateway.KafkaCheck(""),
	})

	r := httptest.NewRequest("GET", "/health", nil)
	rw := httptest.NewRecorder()
	gateway.HealthCheck(service).ServeHTTP(rw, r)

	require.Equal(t, http.StatusOK, rw.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "ok", body.Checks["redis"])
	assert.Equal(t, "not configured", body.Checks["kafka"])
	assert.False(t, body.Timestamp.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheckDegraded(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectPing()

	mr := miniredis.RunT(t)
	store := kv.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	mr.Close()

	service, _ := setupGateway(t, gateway.Checks{
		Postgres: gateway.PostgresCheck(sqlx.NewDb(db, "postgres")),
		Redis:    gateway.RedisCheck(store),
	})

	r := httptest.NewRequest("GET", "/health", nil)
	rw := httptest.NewRecorder()
	gateway.HealthCheck(service).ServeHTTP(rw, r)

	require.Equal(t, http.StatusServiceUnavailable, rw.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.NotEqual(t, "ok", body.Checks["redis"])
}

func TestKafkaCheck(t *testing.T) {
	assert.Nil(t, gateway.KafkaCheck(""))
	assert.Nil(t, gateway.KafkaCheck(" "))

	// a freed port, nothing should be listening when the probe dials
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	check := gateway.KafkaCheck(addr)
	require.NotNil(t, check)
	assert.Error(t, check(context.Background()))
}

func TestBannerAndReady(t *testing.T) {
	service, ctx := setupGateway(t, gateway.Checks{})
	router := gateway.SetupRouter(ctx, service)

	r := httptest.NewRequest("GET", "/", nil)
	rw := httptest.NewRecorder()
	router.ServeHTTP(rw, r)

	require.Equal(t, http.StatusOK, rw.Code)
	var banner map[string]string
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &banner))
	assert.Equal(t, gateway.ServiceName, banner["service"])
	assert.Equal(t, "1.2.3", banner["version"])
	assert.Equal(t, "running", banner["status"])

	r = httptest.NewRequest("GET", "/ready", nil)
	rw = httptest.NewRecorder()
	router.ServeHTTP(rw, r)

	require.Equal(t, http.StatusOK, rw.Code)
	var ready map[string]string
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready["status"])
}

func TestRouterRequiresIdempotencyKey(t *testing.T) {
	service, ctx := setupGateway(t, gateway.Checks{})
	router := gateway.SetupRouter(ctx, service)

	// rejected by the middleware before any handler or datastore is touched
	r := httptest.NewRequest("POST", "/payments/initiate", nil)
	rw := httptest.NewRecorder()
	router.ServeHTTP(rw, r)

	require.Equal(t, http.StatusBadRequest, rw.Code)
	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, "MISSING_IDEMPOTENCY_KEY", resp.Error.Code)
}

func TestMetricsHandler(t *testing.T) {
	handler := gateway.MetricsHandler("")

	r := httptest.NewRequest("GET", "/metrics", nil)
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, r)

	require.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), "go_goroutines")
}

func TestMetricsHandlerBasicAuth(t *testing.T) {
	handler := gateway.MetricsHandler("prom:scrape-secret")

	r := httptest.NewRequest("GET", "/metrics", nil)
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, r)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	assert.NotEmpty(t, rw.Header().Get("WWW-Authenticate"))

	r = httptest.NewRequest("GET", "/metrics", nil)
	r.SetBasicAuth("prom", "wrong")
	rw = httptest.NewRecorder()
	handler.ServeHTTP(rw, r)
	require.Equal(t, http.StatusUnauthorized, rw.Code)

	r = httptest.NewRequest("GET", "/metrics", nil)
	r.SetBasicAuth("prom", "scrape-secret")
	rw = httptest.NewRecorder()
	handler.ServeHTTP(rw, r)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), "go_goroutines")
}
