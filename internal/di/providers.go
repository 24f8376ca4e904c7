package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"GoldPredict/internal/domain/repository"
	domsvc "GoldPredict/internal/domain/service"
	"GoldPredict/internal/handler/api"
	"GoldPredict/internal/handler/web"
	internalrepo "GoldPredict/internal/repository"
	"GoldPredict/internal/service/ratelimit"
	"GoldPredict/internal/services/prediction"
	"GoldPredict/internal/usecase"
	"GoldPredict/pkg/cache"
	pkgch "GoldPredict/pkg/clickhouse"
	"GoldPredict/pkg/config"
	xhttp "GoldPredict/pkg/http"
	pkgkafka "GoldPredict/pkg/kafka"
	applogger "GoldPredict/pkg/logger"
	"GoldPredict/pkg/metrics"
	"GoldPredict/pkg/server"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

const connectRetries = 3

// ServeSet builds the web application.
var ServeSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideSubmissionStorage,
	ProvideSubmissionPublisher,
	ProvideSubmissionRecorder,
	ProvidePredictor,
	ProvideSubmissionLimiter,
	ProvideSessionRegistry,
	ProvideSubmitGuard,
	ProvideFormEchoHandler,
	ProvidePageHandler,
	ProvideHTTPServer,
	ProvideApp,
)

// SinkSet builds the Kafka to ClickHouse submissions sink.
var SinkSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideSinkClickHouseClient,
	ProvideSubmissionStorage,
	ProvideKafkaConsumer,
	ProvideKafkaSubmissionsHandler,
	ProvideSinkApp,
)

// ProvideKafkaProducer creates the shared Kafka producer when the audit
// backend or the log collector needs one.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if cfg.Audit.Backend != config.AuditKafka && !cfg.Log.Collect.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger creates the application logger and, when enabled, attaches
// the error collector that ships aggregated entries through producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collect.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collect.Interval,
			CountThreshold: cfg.Log.Collect.Threshold,
			Topic:          cfg.Log.Collect.Topic,
			Publisher:      producer,
		})
	}
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

func newClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithConnectRetries(connectRetries),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideClickHouseClient connects to ClickHouse when it is the audit backend.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.Audit.Backend != config.AuditClickHouse {
		return nil, func() {}, nil
	}
	return newClickHouseClient(cfg)
}

// ProvideSinkClickHouseClient always connects; the sink cannot run without storage.
func ProvideSinkClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	return newClickHouseClient(cfg)
}

// ProvideSubmissionStorage creates the submissions table and its storage.
// Without a client it returns nil.
func ProvideSubmissionStorage(cfg *config.Config, client *pkgch.Client, logger *applogger.Logger) (repository.Storage, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseStorage(client.DB(), cfg.ClickHouse.Database)
	store.SetLogger(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideSubmissionPublisher creates the Kafka publisher when Kafka is the audit backend.
func ProvideSubmissionPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.Publisher {
	if cfg.Audit.Backend != config.AuditKafka || producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideSubmissionRecorder creates the audit recorder.
func ProvideSubmissionRecorder(
	cfg *config.Config,
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	logger *applogger.Logger,
) *usecase.SubmissionRecorder {
	return usecase.NewSubmissionRecorder(pub, store, metrics, logger, cfg.Audit.Backend, cfg.Audit.Timeout)
}

// ProvidePredictor creates the HTTP client for the prediction service.
func ProvidePredictor(cfg *config.Config) domsvc.Predictor {
	return prediction.NewHTTPPredictor(cfg.Predictor.URL, cfg.Predictor.Timeout)
}

// ProvideSubmissionLimiter creates the per-client submit limiter. It returns
// nil when rate limiting is disabled.
func ProvideSubmissionLimiter(cfg *config.Config) (repository.SubmissionLimiter, func(), error) {
	if !cfg.RateLimit.Enabled {
		return nil, func() {}, nil
	}
	if cfg.RateLimit.Backend != config.LimiterRedis {
		return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst), func() {}, nil
	}

	host, port, err := splitAddr(cfg.Redis.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("redis addr: %w", err)
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
		cache.WithRedisConnectRetries(connectRetries),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis limiter: %w", err)
	}
	return ratelimit.NewWindowLimiter(rc, cfg.RateLimit.Limit, cfg.RateLimit.Window), func() { _ = rc.Close() }, nil
}

func splitAddr(addr string) (string, int, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("port %q: %w", p, err)
	}
	return host, port, nil
}

// ProvideSessionRegistry creates the session registry; every controller
// shares the predictor, the recorder and the metrics.
func ProvideSessionRegistry(
	cfg *config.Config,
	predictor domsvc.Predictor,
	recorder *usecase.SubmissionRecorder,
	metrics repository.Metrics,
) *usecase.SessionRegistry {
	factory := func(id string) *usecase.FormController {
		return usecase.NewFormController(id, predictor,
			usecase.WithRecorder(recorder),
			usecase.WithControllerMetrics(metrics),
		)
	}
	return usecase.NewSessionRegistry(factory,
		usecase.WithSessionTTL(cfg.Session.TTL),
		usecase.WithMaxSessions(cfg.Session.MaxSessions),
	)
}

// ProvideSubmitGuard wraps the limiter.
func ProvideSubmitGuard(limiter repository.SubmissionLimiter, metrics repository.Metrics, logger *applogger.Logger) *usecase.SubmitGuard {
	return usecase.NewSubmitGuard(limiter, metrics, logger)
}

// ProvideFormEchoHandler creates the JSON API; history is served when storage is configured.
func ProvideFormEchoHandler(
	logger *applogger.Logger,
	sessions *usecase.SessionRegistry,
	guard *usecase.SubmitGuard,
	store repository.Storage,
) *api.FormEchoHandler {
	h := api.NewFormEchoHandler(logger, sessions, guard)
	if store != nil {
		h.SetHistory(store)
	}
	return h
}

// ProvidePageHandler creates the server-rendered form page.
func ProvidePageHandler(
	cfg *config.Config,
	sessions *usecase.SessionRegistry,
	guard *usecase.SubmitGuard,
	logger *applogger.Logger,
) *web.PageHandler {
	return web.NewPageHandler(sessions, guard,
		web.WithCookie(cfg.Session.CookieName, cfg.Session.Secure),
		web.WithLogger(logger),
	)
}

// ProvideHTTPServer assembles the Echo server with both handlers.
func ProvideHTTPServer(
	cfg *config.Config,
	logger *applogger.Logger,
	formAPI *api.FormEchoHandler,
	page *web.PageHandler,
	store repository.Storage,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(len(cfg.Server.CORSOrigins) > 0, cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path, prometheus.DefaultRegisterer, prometheus.DefaultGatherer),
		xhttp.WithLogger(logger),
	}
	if store != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", store.Health))
	}
	return xhttp.NewServer([]xhttp.Handler{page, formAPI}, opts...)
}

// ProvideApp creates the web application. Sessions close before the
// recorder so no submission completes against a closed backend.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	srv *xhttp.Server,
	sessions *usecase.SessionRegistry,
	recorder *usecase.SubmissionRecorder,
) *server.App {
	return server.New(
		server.WithLogger(logger),
		server.WithHTTPServer(srv),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithCloser("sessions", func() error {
			sessions.Close()
			return nil
		}),
		server.WithCloser("recorder", func() error {
			recorder.Close()
			return nil
		}),
	)
}

// ProvideKafkaConsumer creates the submissions consumer.
func ProvideKafkaConsumer(cfg *config.Config, logger *applogger.Logger) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSubmissionsHandler writes consumed submissions to storage.
func ProvideKafkaSubmissionsHandler(cfg *config.Config, store repository.Storage, metrics repository.Metrics) *usecase.KafkaSubmissionsHandler {
	return usecase.NewKafkaSubmissionsHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideSinkApp creates the sink application.
func ProvideSinkApp(
	cfg *config.Config,
	logger *applogger.Logger,
	consumer *pkgkafka.Consumer,
	handler *usecase.KafkaSubmissionsHandler,
) *server.App {
	return server.New(
		server.WithLogger(logger),
		server.WithConsumer(consumer, handler),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)
}
