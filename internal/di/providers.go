package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	domrepo "KOLStats/internal/domain/repository"
	domsvc "KOLStats/internal/domain/service"
	"KOLStats/internal/handler/api"
	"KOLStats/internal/handler/ws"
	internalrepo "KOLStats/internal/repository"
	"KOLStats/internal/services/resolver"
	"KOLStats/internal/services/upstream"
	"KOLStats/internal/usecase"
	"KOLStats/pkg/cache"
	pkgch "KOLStats/pkg/clickhouse"
	"KOLStats/pkg/config"
	xhttp "KOLStats/pkg/http"
	"KOLStats/pkg/http/middleware"
	pkgkafka "KOLStats/pkg/kafka"
	applogger "KOLStats/pkg/logger"
	"KOLStats/pkg/metrics"
	"KOLStats/pkg/queue"
	"KOLStats/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: "kolstats",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegisterer returns the registerer served on the metrics path.
func ProvideRegisterer() prometheus.Registerer { return prometheus.DefaultRegisterer }

// ProvideRecorder creates the Prometheus domain metrics recorder.
func ProvideRecorder(reg prometheus.Registerer) *metrics.Recorder { return metrics.New(reg) }

func ProvideKafkaMetrics(reg prometheus.Registerer) *pkgkafka.Metrics { return pkgkafka.NewMetrics(reg) }

// ProvideRedisClient dials Redis when the cache or the queue needs it, nil otherwise.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}
	client, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return client, nil
}

// ProvideCache builds the snapshot cache for cache.type, nil for "none".
func ProvideCache(cfg *config.Config, client *redis.Client) cache.Service {
	switch cfg.Cache.Type {
	case config.CacheMemory:
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemorySize),
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		)
	case config.CacheRedis:
		return cache.NewRedisCache(client, cfg.Cache.Prefix)
	case config.CacheLayered:
		return cache.NewLayeredCache(cache.NewRedisCache(client, cfg.Cache.Prefix),
			cache.WithLayeredMemorySize(cfg.Cache.MemorySize),
			cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
		)
	default:
		return nil
	}
}

// ProvideClickHouseClient connects to ClickHouse when it is the source or the archive, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
	if !cfg.UsesClickHouse() {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if cfg.ClickHouse.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, pkgch.ChannelPeriodMetricsSchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		l.Info("clickhouse schema ready", applogger.String("database", cfg.ClickHouse.Database),
			applogger.String("table", cfg.ClickHouse.Table))
	}
	return client, nil
}

// ProvideKafkaProducer creates the producer when Kafka is enabled and attaches the
// error log collector to it when log.collect is set.
func ProvideKafkaProducer(cfg *config.Config, km *pkgkafka.Metrics, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(km,
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(p.Compression),
		pkgkafka.WithRequiredAcks(p.RequiredAcks),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithBatching(p.BatchSize, p.Linger),
		pkgkafka.WithWriteTimeout(p.WriteTimeout),
		pkgkafka.WithAsync(p.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if cfg.Log.Collect {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.CollectInterval,
			CountThreshold: cfg.Log.CollectMax,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideStatsSource builds the backend StatsSource for source.type.
func ProvideStatsSource(cfg *config.Config, l *applogger.Logger, ch *pkgch.Client) (domrepo.StatsSource, error) {
	switch cfg.Source.Type {
	case config.SourceClickHouse:
		store := internalrepo.NewCHStatsStore(ch, cfg.ClickHouse.Database, cfg.ClickHouse.Table)
		store.SetLogger(l)
		return store, nil
	default:
		b := cfg.Upstream.Breaker
		client, err := upstream.New(cfg.Upstream.BaseURL,
			upstream.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Upstream.Timeout))),
			upstream.WithLogger(l),
			upstream.WithBreaker(upstream.BreakerConfig{
				Enabled:     b.Enabled,
				MaxFailures: b.MaxFailures,
				OpenTimeout: b.OpenTimeout,
				HalfOpenMax: b.HalfOpenMax,
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("upstream client: %w", err)
		}
		return client, nil
	}
}

// ProvideSnapshotStore puts the snapshot cache in front of the source unless caching is off.
func ProvideSnapshotStore(cfg *config.Config, src domrepo.StatsSource, c cache.Service, m domrepo.Metrics, l *applogger.Logger) domrepo.SnapshotStore {
	if c == nil {
		return internalrepo.DirectStatsSource{StatsSource: src}
	}
	return internalrepo.NewCachedStatsSource(src, c, cfg.Cache.TTL, m, l)
}

func ProvideResolver(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) domsvc.MetricsResolver {
	return resolver.New(
		resolver.WithLogger(l),
		resolver.WithMetrics(m),
		resolver.WithUnknownTimeframeWarnings(cfg.WarnUnknownTimeframe()),
	)
}

func ProvideChannelMetricsUseCase(store domrepo.SnapshotStore, r domsvc.MetricsResolver) *usecase.ChannelMetricsUseCase {
	return usecase.NewChannelMetricsUseCase(store, r)
}

func ProvideHub(uc *usecase.ChannelMetricsUseCase, rec *metrics.Recorder, l *applogger.Logger) *ws.Hub {
	return ws.NewHub(uc, rec, l)
}

// ProvideQueue creates the Redis job queue with the snapshot refresh job, nil when disabled.
func ProvideQueue(cfg *config.Config, l *applogger.Logger, client *redis.Client, store domrepo.SnapshotStore, ch *pkgch.Client, c cache.Service) *queue.RedisQueue {
	if !cfg.Queue.Enabled {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, queue.WithKeyPrefix(cfg.Queue.KeyPrefix))

	var opts []usecase.RefreshOption
	if cfg.ClickHouse.Archive && ch != nil {
		archive := internalrepo.NewCHStatsStore(ch, cfg.ClickHouse.Database, cfg.ClickHouse.Table)
		archive.SetLogger(l)
		opts = append(opts, usecase.WithArchive(archive))
	}
	if c != nil && cfg.Queue.LockTTL > 0 {
		opts = append(opts, usecase.WithRefreshLock(c, cfg.Queue.LockTTL))
	}
	q.RegisterJobs(usecase.NewSnapshotRefreshJob(store, l, opts...))
	return q
}

// ProvideKafkaConsumer subscribes the stats-updated handler, nil when Kafka is disabled.
func ProvideKafkaConsumer(
	cfg *config.Config,
	l *applogger.Logger,
	km *pkgkafka.Metrics,
	store domrepo.SnapshotStore,
	hub *ws.Hub,
	q *queue.RedisQueue,
	m domrepo.Metrics,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(l, km,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerFetch(cc.MinBytes, cc.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.NewHookChain(pkgkafka.TraceHook(), pkgkafka.LoggingHook(l)))

	var notifier usecase.ChannelNotifier
	if cfg.Live.Enabled {
		notifier = hub
	}
	var jobs queue.Publisher
	if q != nil {
		jobs = q
	}
	consumer.RegisterHandler(usecase.NewStatsUpdatedHandler(cfg.Kafka.UpdatesTopic, store, notifier, jobs, m, l))
	return consumer, nil
}

// ProvideHTTPServer registers the REST and live-view handlers behind the metrics and
// rate-limit middleware.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	reg prometheus.Registerer,
	uc *usecase.ChannelMetricsUseCase,
	hub *ws.Hub,
	rec *metrics.Recorder,
) *xhttp.Server {
	handlers := []xhttp.Handler{api.NewChannelMetricsHandler(l, uc, rec)}
	if cfg.Live.Enabled {
		handlers = append(handlers, ws.NewHandler(hub, l, ws.Options{
			PingInterval: cfg.Live.PingInterval,
			WriteTimeout: cfg.Live.WriteTimeout,
			SendBuffer:   cfg.Live.SendBuffer,
			MaxMessage:   cfg.Live.MaxMessage,
			AllowOrigins: cfg.Server.AllowOrigins,
		}))
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if len(cfg.Server.AllowOrigins) > 0 {
		opts = append(opts, xhttp.WithAllowOrigins(cfg.Server.AllowOrigins))
	}
	skip := []string{"/health", "/ws/channels/:channel_id"}
	if cfg.Metrics.Enabled {
		opts = append(opts,
			xhttp.WithMetricsPath(cfg.Metrics.Path),
			xhttp.WithMiddleware(middleware.Metrics(reg, l, cfg.Metrics.SlowRequest)),
		)
		skip = append(skip, cfg.Metrics.Path)
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewKeyedLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		opts = append(opts, xhttp.WithMiddleware(middleware.RateLimit(limiter, skip...)))
	}
	return xhttp.NewServer(l, handlers, opts...)
}

// ProvideApp assembles the application. Nil optional components are left out.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	producer *pkgkafka.Producer,
	client *redis.Client,
	ch *pkgch.Client,
	c cache.Service,
) *server.App {
	var opts []server.Option
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer))
	}
	if q != nil {
		opts = append(opts, server.WithQueue(q))
	}
	if producer != nil {
		var pub domrepo.EventPublisher = producer
		opts = append(opts, server.WithPublisher(pub))
	}
	if c != nil {
		opts = append(opts, server.WithCloser("cache", c))
	}
	if client != nil {
		opts = append(opts, server.WithCloser("redis", client))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	return server.New(cfg, l, srv, opts...)
}
