package wallet

import (
	"context"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go-currency-keeper/domain"
	"go-currency-keeper/holding"
	"time"
)

// loggingService decorates a wallet.Service with logging
type loggingService struct {
	logger log.Logger
	next   Service
}

// NewLoggingService returns a new instance of a logging Service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) Summary(ctx context.Context) (summary Summary, err error) {
	defer func(begin time.Time) {
		level.Debug(s.logger).Log(
			"method", "summary",
			"total", summary.Total,
			"unpriced", len(summary.Unpriced),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Summary(ctx)
}

func (s *loggingService) Holding(ctx context.Context, code domain.Currency) (h holding.Holding, err error) {
	defer func(begin time.Time) {
		level.Debug(s.logger).Log(
			"method", "holding",
			"currency", code,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Holding(ctx, code)
}

func (s *loggingService) SetAmounts(ctx context.Context, amounts domain.Amounts) (result domain.Amounts, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "set_amounts",
			"amounts", len(amounts),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.SetAmounts(ctx, amounts)
}

func (s *loggingService) ModifyAmounts(ctx context.Context, deltas domain.Amounts) (result domain.Amounts, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "modify_amounts",
			"deltas", len(deltas),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ModifyAmounts(ctx, deltas)
}
