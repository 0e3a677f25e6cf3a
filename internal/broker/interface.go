package broker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

// Broker defines the market data, contract catalog and order services a
// spread run talks to.
type Broker interface {
	// Market data
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetOptionContracts(ctx context.Context, query models.ContractQuery) ([]models.ContractRecord, error)

	// Order placement
	PlaceMultiLegOrder(ctx context.Context, order *models.OrderRequest) (*models.OrderResponse, error)
}

// CircuitBreakerBroker wraps a Broker with circuit breaker functionality.
// It never retries: an open breaker fails the call immediately.
type CircuitBreakerBroker struct {
	broker  Broker
	breaker *gobreaker.CircuitBreaker
}

// Ensure CircuitBreakerBroker implements Broker at compile time.
var _ Broker = (*CircuitBreakerBroker)(nil)

// exec is a generic helper for circuit breaker wrapper methods
func execCircuitBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	broker Broker,
	fn func(Broker) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(broker) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// DefaultCircuitBreakerSettings trips after 60% of at least 5 calls fail.
var DefaultCircuitBreakerSettings = CircuitBreakerSettings{
	MaxRequests:  3,
	Interval:     60 * time.Second,
	Timeout:      30 * time.Second,
	MinRequests:  5,
	FailureRatio: 0.6,
}

// NewCircuitBreakerBroker creates a new CircuitBreakerBroker with sensible defaults
func NewCircuitBreakerBroker(broker Broker, logger *logrus.Logger) *CircuitBreakerBroker {
	return NewCircuitBreakerBrokerWithSettings(broker, DefaultCircuitBreakerSettings, logger)
}

// NewCircuitBreakerBrokerWithSettings creates a CircuitBreakerBroker with custom settings
func NewCircuitBreakerBrokerWithSettings(broker Broker, settings CircuitBreakerSettings, logger *logrus.Logger) *CircuitBreakerBroker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	gbSettings := gobreaker.Settings{
		Name:        "BrokerCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &CircuitBreakerBroker{
		broker:  broker,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// State reports the breaker state.
func (c *CircuitBreakerBroker) State() gobreaker.State {
	return c.breaker.State()
}

// GetQuote wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (*models.Quote, error) {
		return b.GetQuote(ctx, symbol)
	})
}

// GetOptionContracts wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetOptionContracts(ctx context.Context, query models.ContractQuery) ([]models.ContractRecord, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]models.ContractRecord, error) {
		return b.GetOptionContracts(ctx, query)
	})
}

// PlaceMultiLegOrder wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) PlaceMultiLegOrder(ctx context.Context, order *models.OrderRequest) (*models.OrderResponse, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (*models.OrderResponse, error) {
		return b.PlaceMultiLegOrder(ctx, order)
	})
}
