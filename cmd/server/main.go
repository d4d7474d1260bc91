// Command server runs the paid-ranking billing service: the checkout and
// webhook endpoints, health probes and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/rankpay/db/migrations"
	"github.com/dmitrymomot/rankpay/modules/billing"
	"github.com/dmitrymomot/rankpay/pkg/config"
	"github.com/dmitrymomot/rankpay/pkg/email"
	"github.com/dmitrymomot/rankpay/pkg/errtrack"
	"github.com/dmitrymomot/rankpay/pkg/httpserver"
	"github.com/dmitrymomot/rankpay/pkg/logger"
	"github.com/dmitrymomot/rankpay/pkg/pg"
	"github.com/dmitrymomot/rankpay/pkg/redis"
	"github.com/dmitrymomot/rankpay/pkg/requestid"
	svc "github.com/dmitrymomot/rankpay/svc/billing"
	"github.com/dmitrymomot/rankpay/svc/billing/paddle"
	"github.com/dmitrymomot/rankpay/svc/billing/pgstore"
	"github.com/dmitrymomot/rankpay/svc/billing/stripe"
	"github.com/dmitrymomot/rankpay/svc/notify"
	"github.com/dmitrymomot/rankpay/svc/provider"
)

const serviceName = "rankpay"

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		trackCfg   errtrack.Config
		logCfg     logger.Config
		pgCfg      pg.Config
		redisCfg   redis.Config
		httpCfg    httpserver.Config
		billingCfg svc.Config
		notifyCfg  notify.Config
		emailCfg   email.Config
	)
	if err := errors.Join(
		config.Load(&trackCfg),
		config.Load(&logCfg),
		config.Load(&pgCfg),
		config.Load(&redisCfg),
		config.Load(&httpCfg),
		config.Load(&billingCfg),
		config.Load(&notifyCfg),
		config.Load(&emailCfg),
	); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(trackCfg.Environment, serviceName),
		logger.FromConfig(logCfg),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	flush, err := errtrack.Init(trackCfg)
	if err != nil {
		return err
	}
	defer flush()

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, pgCfg, log); err != nil {
		return err
	}

	healthChecks := []httpserver.Option{httpserver.WithHealthCheck("postgres", pg.Healthcheck(pool))}

	var events svc.EventLog = svc.NewMemoryEventLog(billingCfg.EventLogTTL)
	if redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		events = svc.NewRedisEventLog(client, billingCfg.EventLogTTL)
		healthChecks = append(healthChecks, httpserver.WithHealthCheck("redis", redis.Healthcheck(client)))
	}

	processor, err := newProcessor(billingCfg.Processor)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(notifyCfg, emailCfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []svc.Option{
		svc.WithConfig(billingCfg),
		svc.WithLogger(log),
		svc.WithMetrics(svc.NewMetrics(reg)),
	}
	store := pgstore.New(pool)
	providers := provider.NewPostgresRepository(pool)
	dispatcher := svc.NewDispatcher(providers, notifier, processor, opts...)
	orchestrator := svc.NewOrchestrator(store, providers, processor, dispatcher, opts...)
	reconciler := svc.NewReconciler(store, processor, dispatcher, events, opts...)
	webhooks := svc.NewRouter(processor, reconciler, opts...)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(errtrack.Middleware)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Mount("/billing", billing.Router(billing.RouterOptions{
		Checkout: orchestrator,
		Webhooks: webhooks,
		Logger:   log,
		Report:   errtrack.Report,

		RequestIDHeaders: billingCfg.RequestIDHeaders,
	}))

	server := httpserver.NewFromConfig(httpCfg, append(healthChecks, httpserver.WithLogger(log))...)
	log.InfoContext(ctx, "starting billing service",
		slog.String("addr", httpCfg.Addr),
		logger.Processor(processor.Name()),
		slog.Bool("redis_event_log", redisCfg.Enabled()),
	)
	return server.Run(ctx, r)
}

// newProcessor builds the processor named by BILLING_PROCESSOR. Its
// credentials are loaded only for the selected one.
func newProcessor(name string) (svc.Processor, error) {
	switch name {
	case stripe.Name:
		var cfg stripe.Config
		if err := config.Load(&cfg); err != nil {
			return nil, fmt.Errorf("load stripe config: %w", err)
		}
		p, err := stripe.New(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case paddle.Name:
		var cfg paddle.Config
		if err := config.Load(&cfg); err != nil {
			return nil, fmt.Errorf("load paddle config: %w", err)
		}
		p, err := paddle.New(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", svc.ErrUnknownProcessor, name)
	}
}

// newNotifier combines the configured channels. Mail goes through Postmark
// when a server token is set and is only logged otherwise.
func newNotifier(cfg notify.Config, mailCfg email.Config, log *slog.Logger) (notify.Notifier, error) {
	var channels notify.Multi

	if cfg.WebhookURL != "" {
		wh, err := notify.NewWebhookNotifier(cfg, notify.WithWebhookLogger(log))
		if err != nil {
			return nil, err
		}
		channels = append(channels, wh)
	}

	if cfg.EmailEnabled {
		var sender email.EmailSender = email.NewDevSender(log)
		if mailCfg.PostmarkServerToken != "" {
			pm, err := email.NewPostmarkClient(mailCfg)
			if err != nil {
				return nil, err
			}
			sender = pm
		}
		en, err := notify.NewEmailNotifier(sender, cfg)
		if err != nil {
			return nil, err
		}
		channels = append(channels, en)
	}

	if len(channels) == 0 {
		log.Warn("no notification channel configured")
		return notify.Nop{}, nil
	}
	return channels, nil
}
