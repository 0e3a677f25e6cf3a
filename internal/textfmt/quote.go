// Package textfmt reads and writes the free-text quote and contract catalog
// records produced by text-speaking market data services.
package textfmt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

const (
	bidLabel    = "Bid Price:"
	askLabel    = "Ask Price:"
	symbolLabel = "Symbol:"
	strikeLabel = "Strike Price:"
	typeLabel   = "Type:"
)

var errNoDollar = errors.New("missing '$'")

// ParseQuote extracts the first "Bid Price:" and "Ask Price:" values from a
// quote record. Lines may appear in any order.
func ParseQuote(text string) (models.Quote, error) {
	var q models.Quote
	var haveBid, haveAsk bool

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, bidLabel):
			if haveBid {
				continue
			}
			v, err := dollarValue(line)
			if err != nil {
				return models.Quote{}, fmt.Errorf("parsing bid: %w", err)
			}
			q.Bid, haveBid = v, true
		case strings.Contains(line, askLabel):
			if haveAsk {
				continue
			}
			v, err := dollarValue(line)
			if err != nil {
				return models.Quote{}, fmt.Errorf("parsing ask: %w", err)
			}
			q.Ask, haveAsk = v, true
		case strings.HasPrefix(line, symbolLabel) && q.Symbol == "":
			q.Symbol = strings.TrimSpace(strings.TrimPrefix(line, symbolLabel))
		}
	}

	if !haveBid {
		return models.Quote{}, fmt.Errorf("no %q line", bidLabel)
	}
	if !haveAsk {
		return models.Quote{}, fmt.Errorf("no %q line", askLabel)
	}
	return q, nil
}

// QuotePrice returns the bid/ask midpoint of a quote record, or ok=false when
// either side is missing, malformed or zero.
func QuotePrice(text string) (price float64, ok bool) {
	q, err := ParseQuote(text)
	if err != nil {
		return 0, false
	}
	return q.Mid()
}

// dollarValue reads the first whitespace-delimited token after the first '$'.
func dollarValue(line string) (float64, error) {
	idx := strings.Index(line, "$")
	if idx < 0 {
		return 0, errNoDollar
	}
	fields := strings.Fields(line[idx+1:])
	if len(fields) == 0 {
		return 0, fmt.Errorf("no value after '$' in %q", line)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", fields[0])
	}
	return v, nil
}
