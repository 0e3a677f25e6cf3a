// Package server exposes spread previews and executions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
	"github.com/eddiefleurent/bull_call_spread/internal/strategy"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	maxRequestBytes = 1 << 16
)

// Server serves the spread HTTP API.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	logger   *logrus.Logger
	deps     strategy.Deps
	defaults strategy.Params
	cfg      Config
}

// Config holds the server settings.
type Config struct {
	AuthToken    string
	Port         int
	AllowExecute bool
}

// PlanResponse is the JSON body returned for previews and executions.
type PlanResponse struct {
	Expiration string               `json:"expiration,omitempty"`
	Order      *models.OrderRequest `json:"order,omitempty"`
	Legs       *models.SelectedLegs `json:"legs,omitempty"`
	State      models.RunState      `json:"state"`
	Output     string               `json:"output"`
	Error      string               `json:"error,omitempty"`
	Params     strategy.Params      `json:"params"`
	History    []models.RunState    `json:"history"`
	Strikes    models.StrikeTargets `json:"strikes"`
	Price      float64              `json:"price,omitempty"`
	Succeeded  bool                 `json:"succeeded"`
}

// NewServer creates a server whose runs use deps and fall back to defaults
// for parameters a request leaves out.
func NewServer(cfg Config, defaults strategy.Params, deps strategy.Deps, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		deps:     deps,
		defaults: defaults,
		cfg:      cfg,
	}

	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(requestTimeout))

	if s.cfg.AuthToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/plan", s.handlePlan)
	s.router.Post("/api/spreads", s.handleExecute)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.cfg.AuthToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Infof("Starting spread API server on port %d", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down spread API server")
		return s.server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	params, err := s.paramsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := strategy.Preview(r.Context(), params, s.deps)
	s.writeResult(w, res)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.AllowExecute {
		http.Error(w, "order execution is disabled", http.StatusForbidden)
		return
	}

	params := s.defaults
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	res := strategy.Execute(r.Context(), params, s.deps)
	s.writeResult(w, res)
}

func (s *Server) paramsFromQuery(r *http.Request) (strategy.Params, error) {
	p := s.defaults
	q := r.URL.Query()

	if v := q.Get("symbol"); v != "" {
		p.Symbol = v
	}
	if v := q.Get("time_in_force"); v != "" {
		p.TimeInForce = models.TimeInForce(strings.ToUpper(v))
	}
	floats := map[string]*float64{"buy_pct": &p.BuyPct, "sell_pct": &p.SellPct}
	for name, dst := range floats {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return p, fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = f
		}
	}
	ints := map[string]*int{"weeks": &p.WeeksAhead, "quantity": &p.Quantity}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return p, fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = n
		}
	}
	return p, nil
}

func (s *Server) writeResult(w http.ResponseWriter, res strategy.Result) {
	resp := PlanResponse{
		State:     res.State,
		Output:    res.Output,
		Params:    res.Plan.Params,
		History:   res.History,
		Strikes:   res.Plan.Strikes,
		Price:     res.Plan.Price,
		Order:     res.Plan.Order,
		Succeeded: res.Succeeded(),
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	if !res.Plan.Expiration.IsZero() {
		resp.Expiration = res.Plan.Expiration.Format("2006-01-02")
	}
	if res.Plan.Legs.BuySymbol != "" {
		legs := res.Plan.Legs
		resp.Legs = &legs
	}

	status := http.StatusOK
	if !res.Succeeded() {
		status = statusFor(res)
	}
	s.writeJSON(w, status, resp)
}

func statusFor(res strategy.Result) int {
	switch {
	case errors.Is(res.Err, models.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(res.Err, models.ErrNoMatchingContracts), errors.Is(res.Err, models.ErrPriceUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
