// Package strategy computes and submits two-leg bull call spreads.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

// Params configures one spread run. It is passed by value and never mutated.
type Params struct {
	Symbol      string             `json:"symbol"`
	TimeInForce models.TimeInForce `json:"time_in_force,omitempty"`
	BuyPct      float64            `json:"buy_pct"`
	SellPct     float64            `json:"sell_pct"`
	WeeksAhead  int                `json:"weeks"`
	Quantity    int                `json:"quantity"`
}

// DefaultParams buys 3% below and sells 5% above SPY, two weeks out.
func DefaultParams() Params {
	return Params{
		Symbol:      "SPY",
		BuyPct:      3.0,
		SellPct:     5.0,
		WeeksAhead:  2,
		Quantity:    1,
		TimeInForce: models.TimeInForceDay,
	}
}

// Validate rejects parameters a run cannot use.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Symbol) == "" {
		return errors.New("symbol is required")
	}
	if p.BuyPct <= 0 || p.SellPct <= 0 {
		return errors.New("buy and sell percentages must be positive")
	}
	if p.BuyPct >= 100 {
		return fmt.Errorf("buy percentage must be below 100, got %.2f", p.BuyPct)
	}
	if p.WeeksAhead <= 0 {
		return errors.New("weeks must be positive")
	}
	if p.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if _, err := models.ParseTimeInForce(string(p.TimeInForce)); err != nil {
		return err
	}
	return nil
}

// normalized returns a copy with an upper-cased symbol and a canonical time in force.
// Call only after Validate.
func (p Params) normalized() Params {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	tif, _ := models.ParseTimeInForce(string(p.TimeInForce))
	p.TimeInForce = tif
	return p
}
