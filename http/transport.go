package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go-currency-keeper/domain"
	"go-currency-keeper/holding"
	"go-currency-keeper/wallet"
	"io"
	"net/http"
	"time"
)

// maxBody the largest request body read, anything longer is an unknown request
const maxBody = 64 << 10

// Server dependencies for HTTP Server functions
type Server struct {
	Service wallet.Service
	router  chi.Router
	logger  log.Logger
	routes  []string
}

// NewServer builds the router. gatherer may be nil to leave out /metrics.
// With debug set every request is logged along with its body.
func NewServer(s wallet.Service, logger log.Logger, gatherer prometheus.Gatherer, debug bool) *Server {
	server := &Server{
		Service: s,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	server.router.Use(middleware.Recoverer)
	if debug {
		server.router.Use(server.trace)
	}
	server.handle(http.MethodGet, "/", server.index())
	server.handle(http.MethodGet, "/amount/get", server.summary())
	server.handle(http.MethodGet, "/{code}/get", server.currency())
	server.handle(http.MethodPost, "/amount/set", server.mutate(s.SetAmounts))
	server.handle(http.MethodPost, "/modify", server.mutate(s.ModifyAmounts))
	if gatherer != nil {
		server.handle(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return server
}

func (s *Server) handle(method, pattern string, h http.Handler) {
	s.router.Method(method, pattern, h)
	s.routes = append(s.routes, method+" "+pattern)
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

// Run serves on addr until ctx is done, then shuts the listener down
func (s *Server) Run(ctx context.Context, addr string) error {
	web := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	closed := make(chan error, 1)

	go func() {
		level.Info(s.logger).Log("msg", "listening", "addr", addr)
		closed <- web.ListenAndServe()
	}()

	select {
	case err := <-closed:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = web.Shutdown(shutdown)
		return ctx.Err()
	}
}

// index reports liveness and the available routes
func (s *Server) index() http.HandlerFunc {
	type response struct {
		Status string   `json:"status"`
		Routes []string `json:"routes"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		s.writeJSON(rw, http.StatusOK, response{Status: "OK", Routes: s.routes})
	}
}

// summary produces the plain text valuation report
func (s *Server) summary() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		summary, err := s.Service.Summary(r.Context())
		if err != nil {
			s.writeError(rw, http.StatusInternalServerError, "failed valuation")
			return
		}

		var body bytes.Buffer
		if err := summary.Render(&body); err != nil {
			s.writeError(rw, http.StatusInternalServerError, "failed rendering")
			return
		}
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = rw.Write(body.Bytes())
	}
}

// currency produces HTTP handler for a single currency
func (s *Server) currency() http.HandlerFunc {
	// response for marshalling JSON responses to return to clients, unknown values are null
	type response struct {
		Currency domain.Currency
		Amount   *domain.Amount
		Cost     *domain.Rate
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		code := domain.ParseCurrency(chi.URLParam(r, "code"))

		h, err := s.Service.Holding(r.Context(), code)
		if errors.Is(err, holding.ErrUnknownCurrency) {
			s.writeError(rw, http.StatusForbidden, fmt.Sprintf("Unknown currency: %v", code))
			return
		}
		if err != nil {
			s.writeError(rw, http.StatusInternalServerError, "failed lookup")
			return
		}

		res := response{Currency: h.Code}
		if h.HasAmount {
			res.Amount = &h.Amount
		}
		if h.HasCost {
			res.Cost = &h.Cost
		}
		s.writeJSON(rw, http.StatusOK, res)
	}
}

// mutate produces HTTP handler for the amount set and modify operations,
// which share their request and response shapes
func (s *Server) mutate(apply func(ctx context.Context, amounts domain.Amounts) (domain.Amounts, error)) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		var request domain.Amounts
		body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxBody))
		if err == nil && len(body) > 0 {
			err = json.Unmarshal(body, &request)
		}
		if err != nil {
			s.writeError(rw, http.StatusForbidden, "Unknown request")
			return
		}

		result, err := apply(r.Context(), request)
		if errors.Is(err, wallet.ErrEmptyRequest) || errors.Is(err, holding.ErrInvalidAmount) {
			s.writeError(rw, http.StatusForbidden, "Unknown request")
			return
		}
		if err != nil {
			s.writeError(rw, http.StatusInternalServerError, "failed update")
			return
		}

		s.writeJSON(rw, http.StatusOK, result)
	}
}

func (s *Server) writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		level.Error(s.logger).Log("msg", "failed json encoding", "err", err)
	}
}

func (s *Server) writeError(rw http.ResponseWriter, status int, msg string) {
	s.writeJSON(rw, status, map[string]string{"error": msg})
}

// trace logs every request with its body and the response status
func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxBody))
		_ = r.Body.Close()
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), failedBody{err}))

		ww := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
		defer func(begin time.Time) {
			level.Debug(s.logger).Log(
				"method", r.Method,
				"path", r.URL.Path,
				"body", string(body),
				"status", ww.Status(),
				"took", time.Since(begin),
			)
		}(time.Now())
		next.ServeHTTP(ww, r)
	})
}

// failedBody replays a read error after the bytes trace already consumed
type failedBody struct {
	err error
}

func (b failedBody) Read([]byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	return 0, io.EOF
}
