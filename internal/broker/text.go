package broker

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
	"github.com/eddiefleurent/bull_call_spread/internal/textfmt"
)

// TextSource is a market data and order service that answers in free text
// records instead of structured payloads.
type TextSource interface {
	StockQuote(ctx context.Context, symbol string) (string, error)
	OptionContracts(ctx context.Context, query models.ContractQuery) (string, error)
	PlaceOptionOrder(ctx context.Context, order *models.OrderRequest) (string, error)
}

// TextBroker adapts a TextSource to the Broker interface by parsing its
// records at the boundary.
type TextBroker struct {
	source TextSource
	logger *logrus.Logger
}

// Ensure TextBroker implements Broker at compile time.
var _ Broker = (*TextBroker)(nil)

// NewTextBroker creates a Broker over a text-speaking service.
func NewTextBroker(source TextSource, logger *logrus.Logger) *TextBroker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TextBroker{source: source, logger: logger}
}

// GetQuote fetches and parses a quote record. An unparseable record is
// reported as models.ErrPriceUnavailable.
func (t *TextBroker) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	text, err := t.source.StockQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	q, err := textfmt.ParseQuote(text)
	if err != nil {
		t.logger.WithError(err).WithField("symbol", symbol).Debug("Quote record not parseable")
		return nil, fmt.Errorf("%w: %v", models.ErrPriceUnavailable, err)
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	return &q, nil
}

// GetOptionContracts fetches and parses a contract catalog.
func (t *TextBroker) GetOptionContracts(ctx context.Context, query models.ContractQuery) ([]models.ContractRecord, error) {
	text, err := t.source.OptionContracts(ctx, query)
	if err != nil {
		return nil, err
	}
	records, err := textfmt.ParseCatalog(text)
	if err != nil {
		return nil, err
	}
	t.logger.WithFields(logrus.Fields{
		"underlying": query.Underlying,
		"expiration": query.ExpirationDate(),
		"contracts":  len(records),
	}).Debug("Parsed contract catalog")
	return records, nil
}

// PlaceMultiLegOrder submits the order and keeps the acknowledgement text verbatim.
func (t *TextBroker) PlaceMultiLegOrder(ctx context.Context, order *models.OrderRequest) (*models.OrderResponse, error) {
	text, err := t.source.PlaceOptionOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	id, status := textfmt.ParseOrderConfirmation(text)
	return &models.OrderResponse{ID: id, Status: status, Raw: text}, nil
}
