package textfmt

import (
	"fmt"
	"strings"
	"time"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

// FormatQuote renders a quote in the record layout ParseQuote reads.
func FormatQuote(q models.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Latest Quote for %s:\n", q.Symbol)
	b.WriteString("------------------------\n")
	fmt.Fprintf(&b, "Ask Price: $%.2f\n", q.Ask)
	fmt.Fprintf(&b, "Bid Price: $%.2f\n", q.Bid)
	fmt.Fprintf(&b, "Ask Size: %d\n", q.AskSize)
	fmt.Fprintf(&b, "Bid Size: %d\n", q.BidSize)
	if !q.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Timestamp: %s\n", q.Timestamp.Format(time.RFC3339))
	}
	return b.String()
}

// FormatCatalog renders contracts in the record layout ParseCatalog reads.
func FormatCatalog(underlying string, expiration time.Time, contracts []models.ContractRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Option Contracts for %s:\n", underlying)
	b.WriteString("----------------------------------------\n")
	for _, c := range contracts {
		fmt.Fprintf(&b, "%s %s\n", symbolLabel, c.Symbol)
		right := "Call"
		if c.Type == models.ContractTypePut {
			right = "Put"
		}
		fmt.Fprintf(&b, "  Name: %s %s %.2f %s\n", underlying, expiration.Format("Jan 02 2006"), c.Strike, right)
		fmt.Fprintf(&b, "  %s ContractType.%s\n", typeLabel, c.Type)
		fmt.Fprintf(&b, "  %s $%.2f\n", strikeLabel, c.Strike)
		fmt.Fprintf(&b, "  Expiration Date: %s\n", expiration.Format("2006-01-02"))
		b.WriteString("----------------------------------------\n")
	}
	return b.String()
}
