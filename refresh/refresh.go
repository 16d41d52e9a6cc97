package refresh

import (
	"context"
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go-currency-keeper/domain"
	"go-currency-keeper/holding"
	"time"
)

// Fetcher loads the current rate of every currency the provider knows about.
// Implementations must be concurrency-safe.
type Fetcher interface {
	Rates(ctx context.Context) (domain.Rates, error)
}

// Result what a single tick did to the registry
type Result struct {
	// Skipped no currency besides the reference is tracked, nothing was fetched
	Skipped bool
	// First currencies whose cost became known
	First []domain.Currency
	// Changed currencies whose cost changed and were marked dirty
	Changed []domain.Currency
	// Removed currencies the provider no longer quotes
	Removed []domain.Currency
}

// Refresher periodically fetches rates and applies them to a registry
type Refresher struct {
	registry *holding.Registry
	fetcher  Fetcher

	// interval minimum time between the start of two ticks
	interval time.Duration
	// timeout bounds a single fetch, zero means no bound besides the fetcher's own
	timeout time.Duration

	logger log.Logger

	ticks   *prometheus.CounterVec
	updates *prometheus.CounterVec
}

// New constructs a Refresher. Metrics are collected but not registered until WithMetrics.
func New(registry *holding.Registry, fetcher Fetcher, interval, timeout time.Duration, logger log.Logger) *Refresher {
	r := &Refresher{
		registry: registry,
		fetcher:  fetcher,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
	r.metrics(promauto.With(nil))
	return r
}

// WithMetrics registers the refresh metrics with reg
func (r *Refresher) WithMetrics(reg prometheus.Registerer) *Refresher {
	r.metrics(promauto.With(reg))
	return r
}

func (r *Refresher) metrics(factory promauto.Factory) {
	r.ticks = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "refresh_ticks_total",
		Help: "Refresh ticks by outcome",
	}, []string{"outcome"})
	r.updates = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "refresh_holding_updates_total",
		Help: "Holding cost updates by kind",
	}, []string{"kind"})
}

// Run ticks immediately and then every interval until ctx is done.
// The wait for the next tick starts together with the current one, so a slow tick
// delays the next one but the period is never shorter than the interval.
func (r *Refresher) Run(ctx context.Context) error {
	level.Info(r.logger).Log("msg", "starting refresh loop", "interval", r.interval)
	for {
		next := time.After(r.interval)
		r.tick(ctx)

		select {
		case <-next:
		case <-ctx.Done():
			level.Info(r.logger).Log("msg", "shutting down refresh loop")
			return ctx.Err()
		}
	}
}

// tick runs Tick and logs its outcome. A failing or panicking tick never stops the loop.
func (r *Refresher) tick(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.ticks.WithLabelValues("panic").Inc()
			level.Error(r.logger).Log("msg", "refresh tick panicked", "panic", p)
		}
	}()

	result, err := r.Tick(ctx)
	switch {
	case err != nil:
		r.ticks.WithLabelValues("failed").Inc()
		level.Error(r.logger).Log("msg", "refresh failed, skipping tick", "err", err)
	case result.Skipped:
		r.ticks.WithLabelValues("skipped").Inc()
		level.Debug(r.logger).Log("msg", "no tracked currencies, skipping tick")
	default:
		r.ticks.WithLabelValues("ok").Inc()
		level.Debug(r.logger).Log("msg", "refreshed",
			"first", len(result.First),
			"changed", len(result.Changed),
			"removed", len(result.Removed),
		)
	}
}

// Tick fetches rates once and applies them to every tracked holding.
// A fetch failure leaves the registry untouched.
func (r *Refresher) Tick(ctx context.Context) (Result, error) {
	var result Result

	tracked := r.registry.Tracked()
	if len(tracked) == 0 {
		result.Skipped = true
		return result, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	rates, err := r.fetcher.Rates(ctx)
	if err != nil {
		return result, fmt.Errorf("refresh: %w", err)
	}

	// removals are collected first and applied after every observation
	var missing []domain.Currency
	for _, code := range tracked {
		rate, ok := rates[code]
		if !ok {
			missing = append(missing, code)
			continue
		}

		observation, err := r.registry.Observe(code, rate)
		if err != nil {
			level.Warn(r.logger).Log("msg", "holding vanished during refresh", "currency", code, "err", err)
			continue
		}
		switch observation {
		case holding.First:
			result.First = append(result.First, code)
			r.updates.WithLabelValues("first").Inc()
			level.Info(r.logger).Log("msg", "cost known", "currency", code, "cost", rate)
		case holding.Changed:
			result.Changed = append(result.Changed, code)
			r.updates.WithLabelValues("changed").Inc()
			level.Info(r.logger).Log("msg", "cost changed", "currency", code, "cost", rate)
		}
	}

	result.Removed = r.registry.Remove(missing...)
	for _, code := range result.Removed {
		r.updates.WithLabelValues("removed").Inc()
		level.Warn(r.logger).Log("msg", "currency no longer quoted, removing holding", "currency", code)
	}

	return result, nil
}
