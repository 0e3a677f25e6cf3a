package textfmt

import (
	"fmt"
	"strings"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

const (
	orderIDLabel     = "Order ID:"
	orderStatusLabel = "Status:"
)

// FormatOrderConfirmation renders an order acknowledgement the way text
// order services report a placed multi-leg order.
func FormatOrderConfirmation(order *models.OrderRequest, id, status string) string {
	var b strings.Builder
	b.WriteString("Order placed successfully:\n")
	fmt.Fprintf(&b, "%s %s\n", orderIDLabel, id)
	if order.ClientOrderID != "" {
		fmt.Fprintf(&b, "Client Order ID: %s\n", order.ClientOrderID)
	}
	fmt.Fprintf(&b, "%s %s\n", orderStatusLabel, status)
	fmt.Fprintf(&b, "Order Class: %s\n", order.OrderClass)
	fmt.Fprintf(&b, "Quantity: %d\n", order.Quantity)
	fmt.Fprintf(&b, "Time In Force: %s\n", order.TimeInForce)
	b.WriteString("Legs:\n")
	for _, leg := range order.Legs {
		fmt.Fprintf(&b, "  %s %s x%d\n", strings.ToUpper(string(leg.Side)), leg.Symbol, leg.RatioQuantity)
	}
	return b.String()
}

// ParseOrderConfirmation reads the order ID and status from an acknowledgement.
// Missing fields are returned empty.
func ParseOrderConfirmation(text string) (id, status string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case id == "" && strings.HasPrefix(line, orderIDLabel):
			id = strings.TrimSpace(strings.TrimPrefix(line, orderIDLabel))
		case status == "" && strings.HasPrefix(line, orderStatusLabel):
			status = strings.TrimSpace(strings.TrimPrefix(line, orderStatusLabel))
		}
	}
	return id, status
}
