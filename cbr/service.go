package cbr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go-currency-keeper/domain"
	"io"
	"net/http"
	"time"
)

// DailyURL the Central Bank of Russia daily rates document
const DailyURL = "https://www.cbr-xml-daily.ru/daily_json.js"

var (
	// ErrFetch the rates could not be fetched or understood
	ErrFetch = errors.New("fetch rates")

	// ErrUnavailable the rate provider did not answer the liveness check
	ErrUnavailable = errors.New("rate provider unavailable")
)

// Service wraps the CBR daily rates document. Rates are expressed in RUB.
type Service interface {
	// Rates loads the current rate of every currency quoted by the provider.
	// It never retries, every failure wraps ErrFetch.
	Rates(ctx context.Context) (domain.Rates, error)

	// Ping checks the provider answers at all. Failures wrap ErrUnavailable.
	Ping(ctx context.Context) error
}

// service CBR rates document
type service struct {
	// url of the daily rates document
	url string

	// client for HTTP requests
	client http.Client
}

// NewService constructs a valid CBR Service.
// timeout bounds every request so a hung provider only delays its caller.
func NewService(url string, timeout time.Duration) Service {
	if url == "" {
		url = DailyURL
	}
	return &service{
		url: url,
		client: http.Client{
			Timeout: timeout,
		},
	}
}

// Rates loads the daily document and divides each quote by its nominal,
// so that every rate is the value of exactly one unit.
func (s *service) Rates(ctx context.Context) (domain.Rates, error) {
	type Response struct {
		Date   string
		Valute map[string]struct {
			CharCode string
			Nominal  float64
			Value    float64
		}
	}

	httpResponse, err := s.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %v", ErrFetch, httpResponse.Status)
	}

	bytes, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading json: %w", ErrFetch, err)
	}
	if len(bytes) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrFetch)
	}

	var response Response
	err = json.Unmarshal(bytes, &response)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding json: %w", ErrFetch, err)
	}

	// an empty quote list is a broken document, not a provider that dropped every currency
	if len(response.Valute) == 0 {
		return nil, fmt.Errorf("%w: no quotes in response", ErrFetch)
	}

	rates := domain.Rates{}
	for code, quote := range response.Valute {
		if quote.Value <= 0 {
			return nil, fmt.Errorf("%w: bad rate value for %v: %v", ErrFetch, code, quote.Value)
		}
		nominal := quote.Nominal
		if nominal <= 0 {
			nominal = 1
		}
		rate := domain.Rate(quote.Value / nominal)
		if !rate.Finite() {
			return nil, fmt.Errorf("%w: rate for %v overflows: %v / %v", ErrFetch, code, quote.Value, quote.Nominal)
		}
		rates[domain.ParseCurrency(code)] = rate
	}

	return rates, nil
}

func (s *service) Ping(ctx context.Context) error {
	httpResponse, err := s.get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer httpResponse.Body.Close()
	_, _ = io.Copy(io.Discard, httpResponse.Body)

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %v", ErrUnavailable, httpResponse.Status)
	}
	return nil
}

func (s *service) get(ctx context.Context) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building http request: %w", err)
	}
	httpResponse, err := s.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	return httpResponse, nil
}
