package textfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

func TestOrderConfirmation_RoundTrip(t *testing.T) {
	order := &models.OrderRequest{
		ClientOrderID: "c-1",
		OrderClass:    models.OrderClassMultiLeg,
		TimeInForce:   models.TimeInForceDay,
		Quantity:      2,
		Legs: []models.OrderLeg{
			{Symbol: "SPY240517C00195000", Side: models.SideBuy, RatioQuantity: 1},
			{Symbol: "SPY240517C00210000", Side: models.SideSell, RatioQuantity: 1},
		},
	}

	text := FormatOrderConfirmation(order, "ord-9", "accepted")
	assert.Contains(t, text, "BUY SPY240517C00195000 x1")
	assert.Contains(t, text, "SELL SPY240517C00210000 x1")
	assert.Contains(t, text, "Client Order ID: c-1")

	id, status := ParseOrderConfirmation(text)
	assert.Equal(t, "ord-9", id)
	assert.Equal(t, "accepted", status)
}

func TestParseOrderConfirmation_MissingFields(t *testing.T) {
	id, status := ParseOrderConfirmation("order rejected: insufficient buying power")
	assert.Empty(t, id)
	assert.Empty(t, status)
}
