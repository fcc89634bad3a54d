package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotscheduler/libs/httpx"
	"github.com/md-rashed-zaman/slotscheduler/libs/kafkax"
	"github.com/md-rashed-zaman/slotscheduler/libs/runtime"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/auth"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/config"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/events"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type BuildOptions struct {
	Logger     *slog.Logger
	Navigator  auth.Navigator
	Registerer prometheus.Registerer
	// Transport replaces the instrumented default transport, mainly for tests.
	Transport http.RoundTripper
}

// Runtime is a Client plus everything built from config that needs closing
// or exposing: the metrics, readiness checks and publisher.
type Runtime struct {
	*Client
	Config  config.Config
	Metrics *httpx.ClientMetrics
	Events  events.Publisher
	Ready   []runtime.ReadyCheck

	closers []func() error
}

func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build assembles a Runtime from cfg.
func Build(ctx context.Context, cfg config.Config, opts BuildOptions) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Config: cfg}

	var rdb *redis.Client
	if cfg.Session.Backend == config.BackendRedis || cfg.API.SharedQuota > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, rdb.Close)
		rt.Ready = append(rt.Ready, runtime.ReadyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	store, err := newStore(cfg, rdb)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if p, ok := store.(session.Pinger); ok {
		rt.Ready = append(rt.Ready, runtime.ReadyCheck{Name: "session", Check: p.Ping})
	}

	rt.Events = events.Nop{}
	if brokers := kafkax.SplitBrokers(cfg.Events.Brokers); len(brokers) > 0 {
		pub, err := events.NewKafkaPublisher(brokers, cfg.Events.Topic)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.Events = pub
		rt.closers = append(rt.closers, pub.Close)
		rt.Ready = append(rt.Ready, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	rt.Metrics = httpx.NewClientMetrics("scheduler_client")
	if opts.Registerer != nil {
		if err := rt.Metrics.Register(opts.Registerer); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("register client metrics: %w", err)
		}
	}

	middleware := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		rt.Metrics.Middleware(),
	}
	if cfg.API.RateLimit > 0 {
		middleware = append(middleware, httpx.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateLimitBurst).Middleware())
	}
	if cfg.API.SharedQuota > 0 {
		quota := httpx.NewRedisRateLimiter(rdb, cfg.API.SharedQuota, cfg.API.QuotaWindow, redisPrefix(cfg)+"quota")
		middleware = append(middleware, quota.Middleware(logger, cfg.API.QuotaFailOpen))
	}

	transport := opts.Transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	client, err := New(ctx, Options{
		BaseURL:    cfg.API.BaseURL,
		Store:      store,
		Transport:  transport,
		Middleware: middleware,
		Timeout:    cfg.API.Timeout,
		Navigator:  opts.Navigator,
		Events:     rt.Events,
		Logger:     logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Client = client
	return rt, nil
}

func newStore(cfg config.Config, rdb *redis.Client) (session.Store, error) {
	switch cfg.Session.Backend {
	case config.BackendMemory:
		return session.NewMemoryStore(), nil
	case config.BackendRedis:
		return session.NewRedisStore(rdb, redisPrefix(cfg), cfg.Redis.TTL), nil
	default:
		path := cfg.Session.Path
		if path == "" {
			var err error
			if path, err = session.DefaultPath(); err != nil {
				return nil, err
			}
		}
		var opts []session.FileOption
		if cfg.Session.Passphrase != "" {
			opts = append(opts, session.WithPassphrase(cfg.Session.Passphrase))
		}
		return session.NewFileStore(path, opts...), nil
	}
}

func redisPrefix(cfg config.Config) string {
	prefix := strings.TrimSuffix(strings.TrimSpace(cfg.Redis.Prefix), ":")
	if prefix == "" {
		return ""
	}
	return prefix + ":"
}
