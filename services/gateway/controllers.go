package gateway

import (
	"context"
	"crypto/subtle"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	chiware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/hlog"

	appctx "github.com/corridor-intl/rail-go/libs/context"
	"github.com/corridor-intl/rail-go/libs/handlers"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/libs/middleware"
	"github.com/corridor-intl/rail-go/services/liquidity"
	"github.com/corridor-intl/rail-go/services/payment"
	"github.com/corridor-intl/rail-go/services/report"
	"github.com/corridor-intl/rail-go/services/risk"
	"github.com/corridor-intl/rail-go/services/settlement"
)

const (
	serverTimeout = 15 * time.Second
	// budget for probing every backing store on one health request
	healthTimeout = 3 * time.Second
)

// SetupRouter assembles the full rail surface, operational endpoints at the
// root and one mount per service.
func SetupRouter(ctx context.Context, service *Service) *chi.Mux {
	logger, err := appctx.GetLogger(ctx)
	if err != nil {
		ctx, logger = logging.SetupLogger(ctx)
	}

	version, _ := ctx.Value(appctx.VersionCTXKey).(string)
	env, _ := ctx.Value(appctx.EnvironmentCTXKey).(string)

	r := chi.NewRouter()
	r.Use(
		chiware.RequestID,
		middleware.RequestIDTransfer,
		middleware.CorrelationTransfer,
		middleware.HostTransfer,
		chiware.RealIP,
	)
	if logger != nil {
		// also handles panic recovery
		r.Use(
			hlog.NewHandler(*logger),
			hlog.UserAgentHandler("user_agent"),
			hlog.RequestIDHandler("req_id", "Request-Id"),
			middleware.RequestLogger(logger),
		)
	}
	r.Use(
		chiware.Timeout(serverTimeout),
		middleware.BearerToken,
		middleware.SetResponseDate(),
	)

	if env == "production" {
		rl, ok := ctx.Value(appctx.RateLimitPerMinuteCTXKey).(int)
		if !ok {
			rl = 180
		}
		r.Use(middleware.RateLimiter(ctx, rl))
	}

	r.Method("GET", "/", middleware.InstrumentHandler("Banner", Banner(version)))
	r.Method("GET", "/health", middleware.InstrumentHandler("HealthCheck", HealthCheck(service)))
	r.Method("GET", "/ready", middleware.InstrumentHandler("Ready", Ready()))

	metricsAuth, _ := ctx.Value(appctx.MetricsAuthCTXKey).(string)
	r.Method("GET", "/metrics", MetricsHandler(metricsAuth))

	ttl, _ := appctx.GetDurationFromContext(ctx, appctx.IdempotencyTTLCTXKey)
	r.Mount("/payments", payment.Router(service.payment, middleware.Idempotency(service.cache, ttl)))
	r.Mount("/settlement", settlement.Router(service.settlement))
	r.Mount("/liquidity", liquidity.Router(service.liquidity))
	r.Mount("/risk", risk.Router(service.risk))

	// proof endpoints get fetched by third party dashboards
	var reportRouter http.Handler = report.Router(service.report)
	if os.Getenv("ALLOWED_ORIGINS") != "" {
		reportRouter = corsMiddleware([]string{"GET"})(reportRouter)
	}
	r.Mount("/reports", reportRouter)

	return r
}

func corsMiddleware(allowedMethods []string) func(next http.Handler) http.Handler {
	debug, err := strconv.ParseBool(os.Getenv("DEBUG"))
	if err != nil {
		debug = false
	}
	return cors.Handler(cors.Options{
		Debug:            debug,
		AllowedOrigins:   strings.Split(os.Getenv("ALLOWED_ORIGINS"), ","),
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{""},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthCheck reports whether the backing stores are reachable. A degraded
// dependency flips the status and the response code, the body always carries
// the per-dependency detail.
func HealthCheck(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Checks:    map[string]string{},
		}
		probes := map[string]Check{
			"postgres": service.checks.Postgres,
			"redis":    service.checks.Redis,
			"kafka":    service.checks.Kafka,
		}
		for name, probe := range probes {
			if probe == nil {
				resp.Checks[name] = "not configured"
				continue
			}
			if err := probe(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unhealthy"
				continue
			}
			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		return handlers.RenderContent(ctx, resp, w, status)
	})
}

// Ready answers once wiring has finished and the router is serving.
func Ready() handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		return handlers.RenderContent(r.Context(), map[string]string{"status": "ready"}, w, http.StatusOK)
	})
}

// Banner identifies the service and the running version.
func Banner(version string) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		return handlers.RenderContent(r.Context(), map[string]string{
			"service": ServiceName,
			"version": version,
			"status":  "running",
		}, w, http.StatusOK)
	})
}

// MetricsHandler serves the prometheus scrape target, guarded by basic auth
// when credentials are configured as user:pass.
func MetricsHandler(auth string) http.Handler {
	scrape := middleware.Metrics()
	if auth == "" {
		return scrape
	}

	parts := strings.SplitN(auth, ":", 2)
	wantUser := parts[0]
	wantPass := ""
	if len(parts) == 2 {
		wantPass = parts[1]
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		scrape.ServeHTTP(w, r)
	})
}
