// Package mock provides an offline market data and order service that speaks
// the free-text quote, catalog and order confirmation formats.
package mock

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
	"github.com/eddiefleurent/bull_call_spread/internal/textfmt"
	"github.com/eddiefleurent/bull_call_spread/internal/util"
)

const (
	// strikeInterval is the listing increment of generated contracts.
	strikeInterval = 1.0
	// defaultStrikeWindow is used when a query carries no strike bounds.
	defaultStrikeWindow = 50.0
	quoteSpread         = 0.02
	priceTick           = 0.01
)

// Provider simulates quote, catalog and order services around a drifting price.
type Provider struct {
	mu           sync.Mutex
	currentPrice float64
	drift        bool
}

// secureFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return 0.5
	}
	return float64(n.Int64()) / (1 << 53)
}

// secureInt63n generates a cryptographically secure random int64 between 0 and n-1
func secureInt63n(n int64) int64 {
	r, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return n / 2
	}
	return r.Int64()
}

// NewProvider creates a provider whose price drifts randomly around 450-460.
func NewProvider() *Provider {
	return &Provider{
		currentPrice: 450.0 + secureFloat64()*10,
		drift:        true,
	}
}

// NewFixedProvider creates a provider that always quotes the given mid-price.
func NewFixedProvider(price float64) *Provider {
	return &Provider{currentPrice: price}
}

func (p *Provider) price() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drift {
		// Simulate small price movements, quoted in whole cents
		p.currentPrice = util.RoundToTick(p.currentPrice+(secureFloat64()-0.5)*2, priceTick)
	}
	return p.currentPrice
}

// StockQuote returns a quote record for symbol.
func (p *Provider) StockQuote(ctx context.Context, symbol string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	price := p.price()
	return textfmt.FormatQuote(models.Quote{
		Symbol:  symbol,
		Bid:     price - quoteSpread/2,
		Ask:     price + quoteSpread/2,
		BidSize: 1 + secureInt63n(500),
		AskSize: 1 + secureInt63n(500),
	}), nil
}

// OptionContracts lists contracts every strikeInterval within the query's
// strike bounds. Both rights are listed unless the query names one.
func (p *Provider) OptionContracts(ctx context.Context, query models.ContractQuery) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if query.Expiration.IsZero() {
		return "", fmt.Errorf("expiration is required")
	}

	p.mu.Lock()
	price := p.currentPrice
	p.mu.Unlock()

	lo, err := bound(query.StrikeGTE, price-defaultStrikeWindow)
	if err != nil {
		return "", fmt.Errorf("invalid strike_price_gte: %w", err)
	}
	hi, err := bound(query.StrikeLTE, price+defaultStrikeWindow)
	if err != nil {
		return "", fmt.Errorf("invalid strike_price_lte: %w", err)
	}

	rights := []models.ContractType{models.ContractTypeCall, models.ContractTypePut}
	if query.Type != "" {
		rights = []models.ContractType{models.ContractType(strings.ToUpper(string(query.Type)))}
	}

	var contracts []models.ContractRecord
	for strike := math.Ceil(lo/strikeInterval) * strikeInterval; strike <= hi; strike += strikeInterval {
		for _, right := range rights {
			contracts = append(contracts, models.ContractRecord{
				Symbol:    models.OCCSymbol(query.Underlying, query.Expiration, right, strike),
				Type:      right,
				Strike:    strike,
				HasStrike: true,
			})
		}
	}

	return textfmt.FormatCatalog(query.Underlying, query.Expiration, contracts), nil
}

func bound(s string, fallback float64) (float64, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// PlaceOptionOrder accepts any well-formed multi-leg order.
func (p *Provider) PlaceOptionOrder(ctx context.Context, order *models.OrderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if order == nil || len(order.Legs) == 0 {
		return "", fmt.Errorf("order has no legs")
	}
	if order.Quantity <= 0 {
		return "", fmt.Errorf("invalid order quantity: %d", order.Quantity)
	}
	return textfmt.FormatOrderConfirmation(order, uuid.NewString(), "accepted"), nil
}
