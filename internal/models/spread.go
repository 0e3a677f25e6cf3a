// Package models provides the value types shared by the spread strategy, its
// broker adapters and the run state machine.
package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ContractType is the right carried by an option contract.
type ContractType string

const (
	// ContractTypeCall is a call option.
	ContractTypeCall ContractType = "CALL"
	// ContractTypePut is a put option.
	ContractTypePut ContractType = "PUT"
)

// OrderSide is the direction of a single order leg.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderClassMultiLeg is the broker wire value for an atomic multi-leg order.
const OrderClassMultiLeg = "mleg"

// TimeInForce controls how long a submitted order stays working.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "DAY"
	TimeInForceGTC TimeInForce = "GTC"
)

// ParseTimeInForce normalizes a user-supplied time in force. Empty input means DAY.
func ParseTimeInForce(s string) (TimeInForce, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DAY":
		return TimeInForceDay, nil
	case "GTC", "GOOD-TIL-CANCELLED", "GOODTILCANCELLED":
		return TimeInForceGTC, nil
	default:
		return "", fmt.Errorf("invalid time in force '%s': must be one of 'DAY' or 'GTC'", s)
	}
}

// Quote is a point-in-time top of book for the underlying.
// A zero Bid or Ask means the side was not quoted.
type Quote struct {
	Timestamp time.Time `json:"timestamp,omitempty"`
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	BidSize   int64     `json:"bid_size,omitempty"`
	AskSize   int64     `json:"ask_size,omitempty"`
}

// StrikeTargets holds the rounded strike prices the spread aims for.
type StrikeTargets struct {
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
}

// ContractRecord is one entry of an option contract catalog. Every field is
// optional because catalogs may be partial.
type ContractRecord struct {
	Symbol    string       `json:"symbol,omitempty"`
	Type      ContractType `json:"type,omitempty"`
	Strike    float64      `json:"strike,omitempty"`
	HasStrike bool         `json:"-"`
}

// Eligible reports whether the record can be matched as a spread leg.
// A zero strike counts as missing.
func (c ContractRecord) Eligible() bool {
	return c.Type == ContractTypeCall && c.HasStrike && c.Strike != 0 && c.Symbol != ""
}

// ContractQuery describes a catalog lookup. Strike bounds are decimal strings.
type ContractQuery struct {
	Expiration time.Time    `json:"expiration"`
	Underlying string       `json:"underlying"`
	StrikeGTE  string       `json:"strike_price_gte"`
	StrikeLTE  string       `json:"strike_price_lte"`
	Type       ContractType `json:"type"`
	Status     string       `json:"status"`
}

// ExpirationDate returns the query expiration as YYYY-MM-DD.
func (q ContractQuery) ExpirationDate() string {
	return q.Expiration.Format("2006-01-02")
}

// SelectedLegs are the contracts chosen for each side of the spread.
type SelectedLegs struct {
	BuySymbol  string  `json:"buy_symbol"`
	SellSymbol string  `json:"sell_symbol"`
	BuyStrike  float64 `json:"buy_strike"`
	SellStrike float64 `json:"sell_strike"`
}

// OrderLeg is a single leg of a multi-leg order.
type OrderLeg struct {
	Symbol        string    `json:"symbol"`
	Side          OrderSide `json:"side"`
	RatioQuantity int       `json:"ratio_qty"`
}

// OrderRequest is an atomic multi-leg order.
type OrderRequest struct {
	ClientOrderID string      `json:"client_order_id,omitempty"`
	OrderClass    string      `json:"order_class"`
	TimeInForce   TimeInForce `json:"time_in_force"`
	Legs          []OrderLeg  `json:"legs"`
	Quantity      int         `json:"qty"`
}

// OrderResponse is the order service's acknowledgement. Raw holds the
// response exactly as the service returned it.
type OrderResponse struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
	Raw    string `json:"raw"`
}

// Mid returns the bid/ask midpoint. ok is false unless both sides are quoted.
func (q Quote) Mid() (price float64, ok bool) {
	if q.Bid == 0 || q.Ask == 0 {
		return 0, false
	}
	return (q.Bid + q.Ask) / 2, true
}

// OCCSymbol builds an OCC option symbol: ROOT + YYMMDD + C/P + strike*1000 as 8 digits.
func OCCSymbol(underlying string, expiration time.Time, contractType ContractType, strike float64) string {
	right := "C"
	if contractType == ContractTypePut {
		right = "P"
	}
	const eps = 1e-9
	strikeInt := int(math.Round(strike*1000 + eps))
	return fmt.Sprintf("%s%s%s%08d", underlying, expiration.Format("060102"), right, strikeInt)
}
