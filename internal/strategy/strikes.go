package strategy

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
	"github.com/eddiefleurent/bull_call_spread/internal/util"
)

// catalogStrikeMargin widens the catalog strike window on both sides.
const catalogStrikeMargin = 2.0

// CalculateStrikes derives the long and short call strike targets from the
// underlying price: buyPct below and sellPct above, each rounded to the nearest
// 0.50 with ties to even.
func CalculateStrikes(price, buyPct, sellPct float64) models.StrikeTargets {
	return models.StrikeTargets{
		Buy:  util.RoundToTickEven(price*(1-buyPct/100), util.StrikeIncrement),
		Sell: util.RoundToTickEven(price*(1+sellPct/100), util.StrikeIncrement),
	}
}

// TargetExpiration returns the first Friday on or after now plus weeksAhead
// weeks, as a date at midnight in now's location.
func TargetExpiration(now time.Time, weeksAhead int) time.Time {
	target := now.AddDate(0, 0, 7*weeksAhead)
	days := (int(time.Friday) - int(target.Weekday()) + 7) % 7
	target = target.AddDate(0, 0, days)
	return time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, target.Location())
}

// CatalogQuery builds the active-call catalog lookup spanning both strike
// targets plus catalogStrikeMargin on each side.
func CatalogQuery(symbol string, strikes models.StrikeTargets, expiration time.Time) models.ContractQuery {
	lo := math.Min(strikes.Buy, strikes.Sell) - catalogStrikeMargin
	hi := math.Max(strikes.Buy, strikes.Sell) + catalogStrikeMargin
	return models.ContractQuery{
		Underlying: symbol,
		Expiration: expiration,
		StrikeGTE:  decimal.NewFromFloat(lo).String(),
		StrikeLTE:  decimal.NewFromFloat(hi).String(),
		Type:       models.ContractTypeCall,
		Status:     "ACTIVE",
	}
}
