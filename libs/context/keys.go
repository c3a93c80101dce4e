package context

import "errors"

// CTXKey - a type for context keys
type CTXKey string

const (
	// EnvironmentCTXKey - the key used for the environment name
	EnvironmentCTXKey CTXKey = "environment"
	// DebugLoggingCTXKey - context key for debug logging
	DebugLoggingCTXKey CTXKey = "debug_logging"
	// LogLevelCTXKey - context key for application logging level
	LogLevelCTXKey CTXKey = "log_level"
	// LogWriterCTXKey - context key overriding the log writer
	LogWriterCTXKey CTXKey = "log_writer"

	// VersionCTXKey - context key for version of code
	VersionCTXKey CTXKey = "version"
	// CommitCTXKey - context key for the commit of the code
	CommitCTXKey CTXKey = "commit"
	// BuildTimeCTXKey - context key for the build time of code
	BuildTimeCTXKey CTXKey = "build_time"

	// RedisURLCTXKey - the context key for the redis connection string
	RedisURLCTXKey CTXKey = "redis_url"
	// KafkaBrokersCTXKey - the context key for the kafka broker list
	KafkaBrokersCTXKey CTXKey = "kafka_brokers"
	// Kafka509CertCTXKey - the context key for the kafka broker tls certificate
	Kafka509CertCTXKey CTXKey = "kafka_x509_cert"

	// AddrCTXKey - the context key for the server listen address
	AddrCTXKey CTXKey = "addr"
	// SentryDSNCTXKey - the context key for the sentry dsn
	SentryDSNCTXKey CTXKey = "sentry_dsn"
	// MetricsAuthCTXKey - the context key for the /metrics basic auth credentials
	MetricsAuthCTXKey CTXKey = "metrics_auth"

	// IdempotencyTTLCTXKey - the context key for the idempotency record ttl
	IdempotencyTTLCTXKey CTXKey = "idempotency_ttl"
	// IdempotencyKeyCTXKey - the context key for the validated idempotency key
	IdempotencyKeyCTXKey CTXKey = "idempotency_key"

	// RateLimitPerMinuteCTXKey - the context key for getting the rate limit
	RateLimitPerMinuteCTXKey CTXKey = "rate_limit_per_min"
	// RateLimiterBurstCTXKey - the context key for the rate limiter burst allowance
	RateLimiterBurstCTXKey CTXKey = "rate_limiter_burst"

	// PaginationOrderOptionsCTXKey - the context key for the attribute to column
	// mapping a paged listing accepts in its order parameter
	PaginationOrderOptionsCTXKey CTXKey = "pagination_order_options"
)

var (
	// ErrNotInContext - error you get when you ask for something not in the context.
	ErrNotInContext = errors.New("failed to get value from context")
	// ErrValueWrongType - error you get when you ask for something, and it is not the type you expected
	ErrValueWrongType = errors.New("context value of wrong type")
)
