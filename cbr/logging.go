package cbr

import (
	"context"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go-currency-keeper/domain"
	"time"
)

// loggingService decorates a cbr.Service with logging
type loggingService struct {
	next   Service
	logger log.Logger
}

// NewLoggingService return a new logging service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) Rates(ctx context.Context) (rates domain.Rates, err error) {
	defer func(begin time.Time) {
		level.Debug(s.logger).Log(
			"method", "rates",
			"count", len(rates),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Rates(ctx)
}

func (s *loggingService) Ping(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "ping",
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Ping(ctx)
}
