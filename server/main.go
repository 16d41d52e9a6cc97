package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go-currency-keeper/app"
	"go-currency-keeper/cbr"
	"go-currency-keeper/config"
	"go-currency-keeper/domain"
	"go-currency-keeper/holding"
	"go-currency-keeper/http"
	"go-currency-keeper/reconcile"
	"go-currency-keeper/refresh"
	"go-currency-keeper/wallet"
	"os"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, config.Usage)
		os.Exit(2)
	}

	w := log.NewSyncWriter(os.Stderr)
	logger := log.NewLogfmtLogger(w)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	if cfg.Debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := holding.NewRegistry(domain.ParseCurrency(cfg.Reference))
	for _, h := range cfg.Holdings {
		amount := h.Amount
		if err := registry.Add(h.Code, &amount); err != nil {
			level.Error(logger).Log("msg", "bad initial holding", "err", err)
			os.Exit(2)
		}
	}

	ratesService := cbr.NewService(cfg.ProviderURL, cfg.FetchTimeout)
	ratesService = cbr.NewLoggingService(log.With(logger, "component", "cbr"), ratesService)
	ratesService = cbr.NewInstrumentingService(metrics, ratesService)

	ctx := context.Background()
	if err := ratesService.Ping(ctx); err != nil {
		level.Error(logger).Log("msg", "rate provider unreachable, giving up", "url", cfg.ProviderURL, "err", err)
		os.Exit(1)
	}

	refresher := refresh.New(registry, ratesService, cfg.Period, cfg.FetchTimeout, log.With(logger, "component", "refresh")).
		WithMetrics(metrics)
	reconciler := reconcile.New(registry, cfg.ReconcileEvery, log.With(logger, "component", "reconcile"),
		reconcile.LogNotifier(log.With(logger, "component", "changes")),
	).WithMetrics(metrics)

	walletService := wallet.NewService(registry)
	walletService = wallet.NewLoggingService(log.With(logger, "component", "wallet"), walletService)

	server := http.NewServer(walletService, log.With(logger, "component", "http"), metrics, cfg.Debug)

	level.Info(logger).Log("msg", "starting", "reference", registry.Reference(), "tracked", len(registry.Tracked()))
	err = app.New().
		WithService(refresher).
		WithService(reconciler).
		WithService(app.ServiceFunc(func(ctx context.Context) error {
			return server.Run(ctx, cfg.Addr)
		})).
		WithService(app.Interrupter{}).
		Run(ctx)

	level.Info(logger).Log("msg", "stopped", "reason", err)
	if !errors.Is(err, app.ErrInterrupted) {
		os.Exit(1)
	}
}
