package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agendahub/billing/modules/billing"
	"github.com/agendahub/billing/pkg/config"
	"github.com/agendahub/billing/pkg/httpserver"
	"github.com/agendahub/billing/pkg/logger"
	"github.com/agendahub/billing/pkg/mercadopago"
	"github.com/agendahub/billing/pkg/pg"
	"github.com/agendahub/billing/pkg/redis"
	"github.com/agendahub/billing/pkg/subscription"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	PlanLimits  string `env:"PLAN_LIMITS_PATH" envDefault:"plan_limits.yml"`
	CacheOff    bool   `env:"PLAN_CACHE_DISABLED" envDefault:"false"`

	Currency string `env:"BILLING_CURRENCY" envDefault:"BRL"`

	HTTP        httpserver.Config
	Postgres    pg.Config
	Redis       redis.Config
	MercadoPago mercadopago.Config
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("billingd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = config.LoadEnv()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.WithEnvironment(cfg.Environment, "billingd"))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	mp, err := mercadopago.New(cfg.MercadoPago)
	if err != nil {
		return fmt.Errorf("failed to init mercado pago client: %w", err)
	}

	catalog, err := subscription.LoadCatalog(cfg.PlanLimits)
	if err != nil {
		return fmt.Errorf("failed to load plan catalog: %w", err)
	}

	opts := []subscription.Option{
		subscription.WithCatalog(catalog),
		subscription.WithLogger(log),
	}
	if !cfg.CacheOff {
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close() //nolint:errcheck
		opts = append(opts, subscription.WithPlanCache(subscription.NewRedisPlanCache(rdb)))
	}

	subs := subscription.NewService(
		subscription.NewPGStore(pool),
		subscription.NewPGPlanStore(pool),
		mp,
		subscription.NewPGUsageCounter(pool),
		subscription.CheckoutConfig{
			Sandbox:    cfg.MercadoPago.Sandbox(),
			BackURL:    cfg.MercadoPago.BackURL,
			WebhookURL: cfg.MercadoPago.WebhookURL,
			Currency:   cfg.Currency,
		},
		opts...,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", healthz(pg.Healthcheck(pool)))
	r.Mount("/v1/billing", billing.NewService(subs, billing.WithLogger(log)).Handle())

	return httpserver.New(cfg.HTTP, log).Run(ctx, r)
}

func healthz(checks ...func(context.Context) error) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
