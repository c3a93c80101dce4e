package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corridor-intl/rail-go/libs/closers"
	appctx "github.com/corridor-intl/rail-go/libs/context"
	"github.com/corridor-intl/rail-go/libs/event"
	kafkautils "github.com/corridor-intl/rail-go/libs/kafka"
	"github.com/corridor-intl/rail-go/libs/kv"
	"github.com/corridor-intl/rail-go/libs/logging"
	srv "github.com/corridor-intl/rail-go/libs/service"
	"github.com/corridor-intl/rail-go/services/gateway"
	"github.com/corridor-intl/rail-go/services/liquidity"
	"github.com/corridor-intl/rail-go/services/payment"
	"github.com/corridor-intl/rail-go/services/report"
	"github.com/corridor-intl/rail-go/services/risk"
	"github.com/corridor-intl/rail-go/services/settlement"
)

func init() {
	RootCmd.AddCommand(ServeCmd)

	flagBuilder := NewFlagBuilder(ServeCmd)

	flagBuilder.String("address", ":8000",
		"the address to bind the rail server to").
		Bind("address").Env("ADDR")

	flagBuilder.String("redis-url", "",
		"the connection string for the shared cache").
		Bind("redis-url").Env("REDIS_URL")

	flagBuilder.String("kafka-brokers", "",
		"comma separated kafka broker list, events are logged and dropped when empty").
		Bind("kafka-brokers").Env("KAFKA_BROKERS")

	flagBuilder.String("sentry-dsn", "",
		"the sentry dsn for error reporting").
		Bind("sentry-dsn").Env("SENTRY_DSN")

	flagBuilder.String("metrics-auth", "",
		"user:pass credentials protecting the metrics endpoint").
		Bind("metrics-auth").Env("METRICS_AUTH")

	flagBuilder.Int("idempotency-ttl", 3600,
		"seconds a recorded payment response stays replayable").
		Bind("idempotency-ttl").Env("IDEMPOTENCY_TTL")

	flagBuilder.Bool("enable-job-workers", true,
		"enable job workers (defaults true)").
		Bind("enable-job-workers").Env("ENABLE_JOB_WORKERS")
}

// ServeCmd starts the rail server
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the rail api server",
	Run:   Perform("serve", RunServer),
}

// RunServer moves the bound flags onto the context and starts the server
func RunServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ctx = context.WithValue(ctx, appctx.AddrCTXKey, viper.GetString("address"))
	ctx = context.WithValue(ctx, appctx.RedisURLCTXKey, viper.GetString("redis-url"))
	ctx = context.WithValue(ctx, appctx.KafkaBrokersCTXKey, viper.GetString("kafka-brokers"))
	ctx = context.WithValue(ctx, appctx.SentryDSNCTXKey, viper.GetString("sentry-dsn"))
	ctx = context.WithValue(ctx, appctx.MetricsAuthCTXKey, viper.GetString("metrics-auth"))
	ctx = context.WithValue(ctx, appctx.IdempotencyTTLCTXKey,
		time.Duration(viper.GetInt("idempotency-ttl"))*time.Second)
	return RailServer(ctx, viper.GetBool("enable-job-workers"))
}

// RailServer wires the datastores, cache and bus into the services and
// serves the rail until the process exits.
func RailServer(ctx context.Context, enableJobWorkers bool) error {
	logger, err := appctx.GetLogger(ctx)
	if err != nil {
		ctx, logger = logging.SetupLogger(ctx)
	}

	sentryDsn, _ := ctx.Value(appctx.SentryDSNCTXKey).(string)
	if sentryDsn != "" {
		buildTime, _ := ctx.Value(appctx.BuildTimeCTXKey).(string)
		commit, _ := ctx.Value(appctx.CommitCTXKey).(string)
		err := sentry.Init(sentry.ClientOptions{
			Dsn:     sentryDsn,
			Release: fmt.Sprintf("rail-go@%s-%s", commit, buildTime),
		})
		defer sentry.Flush(2 * time.Second)
		if err != nil {
			logger.Panic().Err(err).Msg("unable to setup error reporting")
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// one datastore per service over the shared payments database
	paymentDB, err := payment.NewPostgres()
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("unable to connect to payment datastore")
	}
	settlementDB, err := settlement.NewPostgres()
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("unable to connect to settlement datastore")
	}
	liquidityDB, err := liquidity.NewPostgres()
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("unable to connect to liquidity datastore")
	}
	riskDB, err := risk.NewPostgres()
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("unable to connect to risk datastore")
	}
	reportDB, err := report.NewPostgres()
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("unable to connect to report datastore")
	}

	redisClient, err := kv.NewClient(ctx)
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("unable to connect to the shared cache")
	}
	cache := kv.NewStore(redisClient)

	// events are logged and dropped until a broker list is configured
	brokers, _ := ctx.Value(appctx.KafkaBrokersCTXKey).(string)
	var bus event.Publisher = event.LogPublisher{}
	if brokers != "" {
		bus = event.NewKafkaPublisher(ctx)
	}
	defer closers.Log(ctx, bus)

	paymentService, err := payment.InitService(ctx, paymentDB, bus)
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("payment service initialization failed")
	}
	settlementService, err := settlement.InitService(ctx, settlementDB, bus)
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("settlement service initialization failed")
	}
	liquidityService, err := liquidity.InitService(ctx, liquidityDB, cache, bus)
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("liquidity service initialization failed")
	}
	riskService, err := risk.InitService(ctx, riskDB, cache, bus)
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("risk service initialization failed")
	}
	reportService, err := report.InitService(ctx, reportDB, bus)
	if err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("report service initialization failed")
	}

	jobs := []srv.Job{}
	jobs = append(jobs, paymentService.Jobs()...)
	jobs = append(jobs, settlementService.Jobs()...)
	jobs = append(jobs, liquidityService.Jobs()...)
	jobs = append(jobs, riskService.Jobs()...)
	jobs = append(jobs, reportService.Jobs()...)

	if enableJobWorkers {
		for _, job := range jobs {
			// spin up a job worker for each worker
			for i := 0; i < job.Workers; i++ {
				logger.Debug().Msg("starting job worker")
				go srv.JobWorker(ctx, job.Func, job.Cadence)
			}
		}
	}

	if brokers != "" {
		// another instance changing the risk posture invalidates our cache
		modeReader, err := kafkautils.NewKafkaReader(ctx, "rail-risk-mode", event.TopicModeChanged)
		if err != nil {
			sentry.CaptureException(err)
			logger.Panic().Err(err).Msg("unable to create the risk mode consumer")
		}
		go func() {
			err := kafkautils.Consume(ctx, modeReader, risk.NewModeChangeHandler(cache), risk.ModeChangeErrorHandler{})
			if err != nil && !errors.Is(err, context.Canceled) {
				sentry.CaptureException(err)
				logger.Error().Err(err).Msg("risk mode consumer stopped")
			}
		}()

		// initiated payments pass the screening gate before settlement can claim them
		screeningReader, err := kafkautils.NewKafkaReader(ctx, "rail-payment-screening", event.TopicPaymentInitiated)
		if err != nil {
			sentry.CaptureException(err)
			logger.Panic().Err(err).Msg("unable to create the payment screening consumer")
		}
		go func() {
			err := kafkautils.Consume(ctx, screeningReader, risk.NewScreeningHandler(riskService), risk.NewScreeningErrorHandler(bus))
			if err != nil && !errors.Is(err, context.Canceled) {
				sentry.CaptureException(err)
				logger.Error().Err(err).Msg("payment screening consumer stopped")
			}
		}()
	}

	service := gateway.InitService(
		paymentService,
		settlementService,
		liquidityService,
		riskService,
		reportService,
		cache,
		gateway.Checks{
			Postgres: gateway.PostgresCheck(paymentDB.RawDB()),
			Redis:    gateway.RedisCheck(cache),
			Kafka:    gateway.KafkaCheck(brokers),
		},
	)
	r := gateway.SetupRouter(ctx, service)

	addr, _ := ctx.Value(appctx.AddrCTXKey).(string)
	if addr == "" {
		addr = ":8000"
	}

	version, _ := ctx.Value(appctx.VersionCTXKey).(string)
	logger.Info().
		Str("version", version).
		Str("address", addr).
		Str("environment", viper.GetString("environment")).
		Msg("server starting")

	server := http.Server{
		Addr:         addr,
		Handler:      chi.ServerBaseContext(ctx, r),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 20 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		sentry.CaptureException(err)
		logger.Panic().Err(err).Msg("HTTP server start failed")
	}
	return nil
}
