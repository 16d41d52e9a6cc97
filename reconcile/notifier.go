package reconcile

import (
	"context"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go-currency-keeper/holding"
)

// Notifier receives a holding whose amount or cost changed
type Notifier interface {
	Notify(ctx context.Context, changed holding.Holding) error
}

// NotifierFunc adapts a function to a Notifier
type NotifierFunc func(ctx context.Context, changed holding.Holding) error

func (f NotifierFunc) Notify(ctx context.Context, changed holding.Holding) error {
	return f(ctx, changed)
}

// LogNotifier reports every change as an info line
func LogNotifier(logger log.Logger) Notifier {
	return NotifierFunc(func(_ context.Context, h holding.Holding) error {
		return level.Info(logger).Log(
			"msg", "holding changed",
			"currency", h.Code,
			"amount", h.Amount,
			"cost", h.Cost,
		)
	})
}
