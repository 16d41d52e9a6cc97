package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-currency-keeper/domain"
	"go-currency-keeper/holding"
	"go-currency-keeper/wallet"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newServer(t *testing.T) (*Server, *holding.Registry) {
	reg := holding.NewRegistry("RUB")
	rub, usd := domain.Amount(1000), domain.Amount(10)
	require.NoError(t, reg.Add("RUB", &rub))
	require.NoError(t, reg.Add("USD", &usd))
	require.NoError(t, reg.Add("EUR", nil))
	_, err := reg.Observe("USD", 95.0)
	require.NoError(t, err)

	return NewServer(wallet.NewService(reg), log.NewNopLogger(), prometheus.NewRegistry(), true), reg
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	s.ServeHTTP(w, r)
	return w
}

func TestServer_Index(t *testing.T) {
	server, _ := newServer(t)

	w := serve(server, "GET", "/", "")

	assert.Equal(t, 200, w.Code)
	var body struct {
		Status string
		Routes []string
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Status)
	assert.Contains(t, body.Routes, "GET /{code}/get")
	assert.Contains(t, body.Routes, "POST /modify")
	assert.Contains(t, body.Routes, "GET /metrics")
}

func TestServer_AmountGet(t *testing.T) {
	server, _ := newServer(t)

	w := serve(server, "GET", "/amount/get", "")

	assert.Equal(t, 200, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, "rub: 1000\nusd: 10\neur: -\n\nrub-usd: 95.00\n\nsum: 1950.00 rub / 20.53 usd\n\nunpriced: eur\n", w.Body.String())
}

func TestServer_CurrencyGet(t *testing.T) {
	server, _ := newServer(t)

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"known", "/USD/get", 200, `{"Currency":"USD","Amount":10,"Cost":95}`},
		{"lower case", "/usd/get", 200, `{"Currency":"USD","Amount":10,"Cost":95}`},
		{"reference", "/rub/get", 200, `{"Currency":"RUB","Amount":1000,"Cost":1}`},
		{"not priced yet", "/EUR/get", 200, `{"Currency":"EUR","Amount":null,"Cost":null}`},
		{"unknown", "/GBP/get", 403, `{"error":"Unknown currency: GBP"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, "GET", tt.path, "")

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, strings.TrimSpace(w.Body.String()))
		})
	}
}

func TestServer_CurrencyGetAfterRemoval(t *testing.T) {
	server, reg := newServer(t)
	reg.Remove("USD")

	w := serve(server, "GET", "/USD/get", "")

	assert.Equal(t, 403, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown currency: USD")
}

func TestServer_AmountSet(t *testing.T) {
	server, reg := newServer(t)

	for i := 0; i < 2; i++ {
		w := serve(server, "POST", "/amount/set", `{"usd": 3, "gbp": 1}`)

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, `{"RUB":1000,"USD":3,"EUR":0}`, w.Body.String())
	}

	usd, err := reg.Find("USD")
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(3), usd.Amount)
	assert.True(t, usd.Dirty)
}

func TestServer_Modify(t *testing.T) {
	server, reg := newServer(t)

	w := serve(server, "POST", "/modify", `{"usd": 5}`)

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"RUB":1000,"USD":15,"EUR":0}`, w.Body.String())
	usd, _ := reg.Find("USD")
	assert.True(t, usd.Dirty)

	w = serve(server, "POST", "/modify", `{"usd": 5}`)
	assert.JSONEq(t, `{"RUB":1000,"USD":20,"EUR":0}`, w.Body.String())
}

func TestServer_UnknownRequest(t *testing.T) {
	server, reg := newServer(t)
	before := reg.All()

	for _, path := range []string{"/amount/set", "/modify"} {
		for _, body := range []string{"", "{}", "null", "[1, 2]", `{"usd": "five"}`} {
			w := serve(server, "POST", path, body)

			assert.Equal(t, 403, w.Code, "%v %q", path, body)
			assert.JSONEq(t, `{"error":"Unknown request"}`, w.Body.String())
		}
	}
	assert.Equal(t, before, reg.All())
}

func TestServer_NonFiniteAmountIsUnknownRequest(t *testing.T) {
	server, reg := newServer(t)

	w := serve(server, "POST", "/modify", `{"usd": 1e308}`)
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"RUB":1000,"USD":1e308,"EUR":0}`, w.Body.String())
	before := reg.All()

	w = serve(server, "POST", "/modify", `{"usd": 1e308}`)
	assert.Equal(t, 403, w.Code)
	assert.JSONEq(t, `{"error":"Unknown request"}`, w.Body.String())
	assert.Equal(t, before, reg.All())

	w = serve(server, "GET", "/amount/get", "")
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "usd: 1")

	w = serve(server, "GET", "/usd/get", "")
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"Currency":"USD","Amount":1e308,"Cost":95}`, w.Body.String())
}

func TestServer_OversizeBodyIsUnknownRequest(t *testing.T) {
	// valid JSON that only goes over the limit through whitespace
	body := `{"rub": 7` + strings.Repeat(" ", maxBody) + `}`

	for _, debug := range []bool{false, true} {
		reg := holding.NewRegistry("RUB")
		server := NewServer(wallet.NewService(reg), log.NewNopLogger(), nil, debug)

		for _, path := range []string{"/amount/set", "/modify"} {
			w := serve(server, "POST", path, body)

			assert.Equal(t, 403, w.Code, "%v debug %v", path, debug)
			assert.JSONEq(t, `{"error":"Unknown request"}`, w.Body.String())
		}

		rub, err := reg.Find("RUB")
		require.NoError(t, err)
		assert.False(t, rub.HasAmount)

		w := serve(server, "POST", "/amount/set", `{"rub": 7}`)
		assert.Equal(t, 200, w.Code)
	}
}

func TestServer_WrongMethod(t *testing.T) {
	server, _ := newServer(t)

	w := serve(server, "GET", "/modify", "")

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type failing struct {
	wallet.Service
}

func (failing) Summary(context.Context) (wallet.Summary, error) {
	return wallet.Summary{}, errors.New("boom")
}

func (failing) Holding(context.Context, domain.Currency) (holding.Holding, error) {
	panic("lookup exploded")
}

func TestServer_ServiceFailures(t *testing.T) {
	server := NewServer(failing{}, log.NewNopLogger(), nil, false)

	w := serve(server, "GET", "/amount/get", "")
	assert.Equal(t, 500, w.Code)

	w = serve(server, "GET", "/USD/get", "")
	assert.Equal(t, 500, w.Code)

	w = serve(server, "GET", "/metrics", "")
	assert.NotEqual(t, 200, w.Code)
}

func TestServer_TraceKeepsBody(t *testing.T) {
	reg := holding.NewRegistry("RUB")
	var logs bytes.Buffer
	server := NewServer(wallet.NewService(reg), log.NewLogfmtLogger(&logs), nil, true)

	w := serve(server, "POST", "/amount/set", `{"rub": 7}`)

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"RUB":7}`, w.Body.String())
	assert.Contains(t, logs.String(), "status=200")
	assert.Contains(t, logs.String(), "path=/amount/set")
}
