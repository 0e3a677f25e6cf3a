package strategy

import (
	"math"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
	"github.com/eddiefleurent/bull_call_spread/internal/textfmt"
)

// MatchContracts picks, independently for each leg, the eligible call whose
// strike is nearest its target. Ties keep the first record seen, and both legs
// may land on the same contract. ok is false when no eligible call exists.
func MatchContracts(records []models.ContractRecord, targets models.StrikeTargets) (legs models.SelectedLegs, ok bool) {
	bestBuyDiff := math.Inf(1)
	bestSellDiff := math.Inf(1)

	for _, c := range records {
		if !c.Eligible() {
			continue
		}

		if diff := math.Abs(c.Strike - targets.Buy); diff < bestBuyDiff {
			bestBuyDiff = diff
			legs.BuySymbol, legs.BuyStrike = c.Symbol, c.Strike
		}
		if diff := math.Abs(c.Strike - targets.Sell); diff < bestSellDiff {
			bestSellDiff = diff
			legs.SellSymbol, legs.SellStrike = c.Symbol, c.Strike
		}
	}

	if legs.BuySymbol == "" || legs.SellSymbol == "" {
		return models.SelectedLegs{}, false
	}
	return legs, true
}

// SelectFromCatalogText parses a text catalog and matches it against the
// targets. A catalog that fails to parse yields no match.
func SelectFromCatalogText(text string, targets models.StrikeTargets) (models.SelectedLegs, bool) {
	records, err := textfmt.ParseCatalog(text)
	if err != nil {
		return models.SelectedLegs{}, false
	}
	return MatchContracts(records, targets)
}
