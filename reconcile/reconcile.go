package reconcile

import (
	"context"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go-currency-keeper/holding"
	"time"
)

// DefaultInterval how often dirty holdings are reconciled
const DefaultInterval = 60 * time.Second

// Reconciler periodically reports changed holdings and clears their dirty flag.
// It is the only component that ever clears a dirty flag.
type Reconciler struct {
	registry *holding.Registry
	interval time.Duration

	// notifiers receive every changed holding, in order
	notifiers []Notifier

	logger log.Logger

	changes *prometheus.CounterVec
}

// New constructs a Reconciler. Metrics are collected but not registered until WithMetrics.
func New(registry *holding.Registry, interval time.Duration, logger log.Logger, notifiers ...Notifier) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	r := &Reconciler{
		registry:  registry,
		interval:  interval,
		notifiers: notifiers,
		logger:    logger,
	}
	r.metrics(promauto.With(nil))
	return r
}

// WithMetrics registers the reconciliation metrics with reg
func (r *Reconciler) WithMetrics(reg prometheus.Registerer) *Reconciler {
	r.metrics(promauto.With(reg))
	return r
}

func (r *Reconciler) metrics(factory promauto.Factory) {
	r.changes = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciled_changes_total",
		Help: "Changed holdings reported by the reconciliation loop",
	}, []string{"currency"})
}

// Run reconciles every interval until ctx is done
func (r *Reconciler) Run(ctx context.Context) error {
	level.Info(r.logger).Log("msg", "starting reconciliation loop", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			level.Info(r.logger).Log("msg", "shutting down reconciliation loop")
			return ctx.Err()
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			level.Error(r.logger).Log("msg", "reconciliation tick panicked", "panic", p)
		}
	}()
	r.Tick(ctx)
}

// Tick clears every dirty flag and notifies about each holding that had one.
// Returns the holdings reported, as they were when their flag was cleared.
func (r *Reconciler) Tick(ctx context.Context) []holding.Holding {
	changed := r.registry.TakeDirty()
	for _, h := range changed {
		r.changes.WithLabelValues(string(h.Code)).Inc()
		for _, n := range r.notifiers {
			if err := n.Notify(ctx, h); err != nil {
				level.Warn(r.logger).Log("msg", "change notification failed", "currency", h.Code, "err", err)
			}
		}
	}
	return changed
}
