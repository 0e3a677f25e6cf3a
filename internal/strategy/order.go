package strategy

import (
	"errors"
	"fmt"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

// BuildSpreadOrder assembles the two-leg bull call spread: buy the lower
// strike call, sell the higher strike call, one contract of each per spread.
// An empty timeInForce means DAY.
func BuildSpreadOrder(buySymbol, sellSymbol string, quantity int, timeInForce models.TimeInForce) (*models.OrderRequest, error) {
	if buySymbol == "" || sellSymbol == "" {
		return nil, errors.New("both leg symbols are required")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity: %d (must be > 0)", quantity)
	}
	if timeInForce == "" {
		timeInForce = models.TimeInForceDay
	}

	return &models.OrderRequest{
		Legs: []models.OrderLeg{
			{Symbol: buySymbol, Side: models.SideBuy, RatioQuantity: 1},
			{Symbol: sellSymbol, Side: models.SideSell, RatioQuantity: 1},
		},
		OrderClass:  models.OrderClassMultiLeg,
		Quantity:    quantity,
		TimeInForce: timeInForce,
	}, nil
}
