package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ArbBoard/internal/domain/repository"
	"ArbBoard/internal/handler/api"
	"ArbBoard/internal/registry"
	internalrepo "ArbBoard/internal/repository"
	"ArbBoard/internal/service/quotes"
	"ArbBoard/internal/service/ratelimit"
	"ArbBoard/internal/usecase"
	"ArbBoard/pkg/cache"
	pkgch "ArbBoard/pkg/clickhouse"
	"ArbBoard/pkg/config"
	xhttp "ArbBoard/pkg/http"
	pkgkafka "ArbBoard/pkg/kafka"
	applogger "ArbBoard/pkg/logger"
	"ArbBoard/pkg/metrics"
	"ArbBoard/pkg/server"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const sinaReferer = "https://finance.sina.com.cn"

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvidePrometheusRegistry returns a private registry with the runtime collectors.
func ProvidePrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(reg)
}

func ProvidePairRegistry(cfg *config.Config) (*registry.Registry, error) {
	r, err := registry.New(cfg.Pairs)
	if err != nil {
		return nil, fmt.Errorf("pairs: %w", err)
	}
	return r, nil
}

// ProvideCache selects the quote cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	var svc cache.Service
	switch cfg.Cache.Backend {
	case "none":
		svc = cache.Nop{}
	case "memory":
		svc = cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxEntries))
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = rc
		if cfg.Cache.Backend == "layered" {
			svc = cache.NewLayeredCache(rc,
				cache.WithLayeredMemorySize(cfg.Cache.MaxEntries),
				cache.WithLayeredMemoryTTL(cfg.Cache.L1TTL),
			)
		}
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return svc, func() { _ = svc.Close() }, nil
}

// ProvideClickHouseClient connects to ClickHouse when enabled; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideBarStore returns the ClickHouse bar store with its schema ensured,
// or nil when ClickHouse is disabled.
func ProvideBarStore(client *pkgch.Client, l *applogger.Logger) (*internalrepo.CHBarStore, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewCHBarStore(client, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideQuoteSource assembles the configured source, the optional fallback
// and the cache in front of both.
func ProvideQuoteSource(
	cfg *config.Config,
	l *applogger.Logger,
	m repository.Metrics,
	store cache.Service,
	bars *internalrepo.CHBarStore,
) (repository.QuoteSource, error) {
	sinaCfg := cfg.Quotes.Sina
	sina := quotes.NamedSource{Name: "sina", Source: quotes.NewSinaSource(
		sinaCfg.BaseURL,
		xhttp.NewClient(xhttp.WithTimeout(sinaCfg.Timeout), xhttp.WithHeader("Referer", sinaReferer)),
		l,
		quotes.WithSinaLimiter(sinaCfg.RPS, sinaCfg.Burst),
		quotes.WithSinaBreaker(sinaCfg.BreakerFailures, sinaCfg.BreakerTimeout),
		quotes.WithSinaMetrics(m),
	)}

	var chain []quotes.NamedSource
	switch cfg.Quotes.Source {
	case "sina":
		chain = append(chain, sina)
		if cfg.Quotes.Fallback && bars != nil {
			chain = append(chain, quotes.NamedSource{Name: "clickhouse", Source: bars})
		}
	case "clickhouse":
		if bars == nil {
			return nil, fmt.Errorf("quotes.source clickhouse needs clickhouse.enabled")
		}
		chain = append(chain, quotes.NamedSource{Name: "clickhouse", Source: bars})
		if cfg.Quotes.Fallback {
			chain = append(chain, sina)
		}
	default:
		return nil, fmt.Errorf("unknown quote source %q", cfg.Quotes.Source)
	}

	var src repository.QuoteSource = chain[0].Source
	if len(chain) > 1 {
		src = quotes.NewFallbackSource(l, chain...)
	}
	if cfg.Cache.Backend == "none" {
		return src, nil
	}
	return quotes.NewCachedSource(src, store, cfg.Cache.TTL, m, l), nil
}

// ProvideKafkaProducer connects a producer when Kafka is enabled; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

func ProvideSignalService(
	cfg *config.Config,
	pairs *registry.Registry,
	src repository.QuoteSource,
	producer *pkgkafka.Producer,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SignalService {
	opts := []usecase.SignalOption{usecase.WithFetchTimeout(cfg.Signal.FetchTimeout)}
	if producer != nil {
		opts = append(opts, usecase.WithPublisher(internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)))
	}
	return usecase.NewSignalService(pairs, src, m, l, opts...)
}

func ProvideSignalsHandler(cfg *config.Config, l *applogger.Logger, svc *usecase.SignalService) *api.SignalsEchoHandler {
	return api.NewSignalsEchoHandler(l, svc,
		api.WithRateLimiter(ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)),
		api.WithStreamIntervals(cfg.Signal.StreamInterval, cfg.Signal.MinInterval),
		api.WithOriginCheck(originChecker(cfg.Server.AllowOrigins)),
	)
}

func ProvideHealthHandler(bars *internalrepo.CHBarStore) *api.HealthHandler {
	checks := map[string]api.HealthCheck{}
	if bars != nil {
		checks["clickhouse"] = bars.Health
	}
	return api.NewHealthHandler(checks)
}

func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	signals *api.SignalsEchoHandler,
	health *api.HealthHandler,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, []xhttp.Handler{signals, health},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithAllowOrigins(cfg.Server.AllowOrigins),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithRegistry(reg),
	)
}

// ProvideKafkaConsumer creates the bar ingest consumer when ingest is enabled; nil otherwise.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Ingest.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(2),
		pkgkafka.WithConsumerRetry(3, 100*time.Millisecond, 5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideQuoteWarmer returns nil unless a warm interval is set and the quote
// source is cached.
func ProvideQuoteWarmer(
	cfg *config.Config,
	src repository.QuoteSource,
	pairs *registry.Registry,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.QuoteWarmer {
	if cfg.Cache.WarmInterval <= 0 {
		return nil
	}
	refreshable, ok := src.(usecase.RefreshableSource)
	if !ok {
		l.Warn("quote warmer disabled: source is not cached")
		return nil
	}
	return usecase.NewQuoteWarmer(refreshable, pairs.All(), cfg.Cache.WarmInterval, m, l)
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	bars *internalrepo.CHBarStore,
	warmer *usecase.QuoteWarmer,
	m repository.Metrics,
) *server.App {
	opts := []server.Option{server.WithShutdownTimeout(cfg.Server.ShutdownTimeout)}
	if consumer != nil && bars != nil {
		opts = append(opts, server.WithConsumer(consumer, usecase.NewKafkaBarsHandler(cfg.Kafka.BarsTopic, bars, m)))
	}
	if warmer != nil {
		opts = append(opts, server.WithWorker(warmer))
	}
	l.Info("app assembled",
		applogger.Bool("ingest", consumer != nil && bars != nil),
		applogger.Bool("warmer", warmer != nil),
		applogger.String("quotes", cfg.Quotes.Source),
		applogger.String("cache", cfg.Cache.Backend),
	)
	return server.New(l, srv, opts...)
}

// originChecker allows same-origin websocket handshakes plus the configured origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvidePrometheusRegistry,
	ProvideMetrics,
	ProvidePairRegistry,
	ProvideCache,
	ProvideClickHouseClient,
	ProvideBarStore,
	ProvideQuoteSource,
	ProvideKafkaProducer,
	ProvideSignalService,
)

// AppSet builds the long-running service.
var AppSet = wire.NewSet(
	infraSet,
	ProvideSignalsHandler,
	ProvideHealthHandler,
	ProvideHTTPServer,
	ProvideKafkaConsumer,
	ProvideQuoteWarmer,
	ProvideApp,
)
