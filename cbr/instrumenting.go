package cbr

import (
	"context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go-currency-keeper/domain"
	"time"
)

// instrumentingService decorates a cbr.Service with request metrics
type instrumentingService struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	next     Service
}

// NewInstrumentingService registers the provider metrics with reg and returns the decorated service
func NewInstrumentingService(reg prometheus.Registerer, s Service) Service {
	factory := promauto.With(reg)
	return &instrumentingService{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_provider_requests_total",
				Help: "Requests made to the rate provider",
			},
			[]string{"method", "status"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rate_provider_request_duration_seconds",
				Help:    "Duration of requests to the rate provider",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
			},
			[]string{"method"},
		),
		next: s,
	}
}

func (s *instrumentingService) Rates(ctx context.Context) (rates domain.Rates, err error) {
	defer s.observe("rates", time.Now(), &err)
	return s.next.Rates(ctx)
}

func (s *instrumentingService) Ping(ctx context.Context) (err error) {
	defer s.observe("ping", time.Now(), &err)
	return s.next.Ping(ctx)
}

func (s *instrumentingService) observe(method string, begin time.Time, err *error) {
	status := "ok"
	if *err != nil {
		status = "error"
	}
	s.requests.WithLabelValues(method, status).Inc()
	s.latency.WithLabelValues(method).Observe(time.Since(begin).Seconds())
}
