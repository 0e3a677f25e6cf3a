package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

func TestCalculateStrikes(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		buyPct   float64
		sellPct  float64
		wantBuy  float64
		wantSell float64
	}{
		{"round numbers", 200, 3, 5, 194, 210},
		{"rounds to nearest half", 401.37, 3, 5, 389.5, 421.5},
		{"straddles a half step", 100.25, 0.0001, 0.0001, 100, 100.5},
		{"small price", 1.10, 10, 10, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateStrikes(tt.price, tt.buyPct, tt.sellPct)
			assert.Equal(t, tt.wantBuy, got.Buy)
			assert.Equal(t, tt.wantSell, got.Sell)
		})
	}
}

func TestCalculateStrikes_BracketPrice(t *testing.T) {
	for _, price := range []float64{25, 99.99, 200, 451.12, 5000} {
		got := CalculateStrikes(price, 3, 5)
		assert.LessOrEqual(t, got.Buy, price, "buy strike for %.2f", price)
		assert.GreaterOrEqual(t, got.Sell, price, "sell strike for %.2f", price)
	}
}

func TestTargetExpiration(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	tests := []struct {
		name  string
		now   time.Time
		weeks int
		want  time.Time
	}{
		{
			name:  "friday keeps friday seven days later",
			now:   time.Date(2024, 5, 3, 15, 30, 0, 0, loc),
			weeks: 1,
			want:  time.Date(2024, 5, 10, 0, 0, 0, 0, loc),
		},
		{
			name:  "monday moves to friday of target week",
			now:   time.Date(2024, 5, 6, 9, 0, 0, 0, loc),
			weeks: 1,
			want:  time.Date(2024, 5, 17, 0, 0, 0, 0, loc),
		},
		{
			name:  "saturday rolls to following friday",
			now:   time.Date(2024, 5, 4, 12, 0, 0, 0, loc),
			weeks: 2,
			want:  time.Date(2024, 5, 24, 0, 0, 0, 0, loc),
		},
		{
			name:  "crosses month end",
			now:   time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC),
			weeks: 2,
			want:  time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TargetExpiration(tt.now, tt.weeks)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
			assert.Equal(t, time.Friday, got.Weekday())
		})
	}
}

func TestTargetExpiration_MondayWithinFourDays(t *testing.T) {
	monday := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	base := monday.AddDate(0, 0, 7)
	got := TargetExpiration(monday, 1)
	days := got.Sub(time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)).Hours() / 24
	assert.GreaterOrEqual(t, days, 0.0)
	assert.LessOrEqual(t, days, 4.0)
}

func TestPureFunctionsAreIdempotent(t *testing.T) {
	now := time.Date(2024, 5, 8, 11, 0, 0, 0, time.UTC)
	assert.Equal(t, CalculateStrikes(431.27, 3, 5), CalculateStrikes(431.27, 3, 5))
	assert.Equal(t, TargetExpiration(now, 3), TargetExpiration(now, 3))
}

func TestCatalogQuery(t *testing.T) {
	exp := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	q := CatalogQuery("SPY", models.StrikeTargets{Buy: 194, Sell: 210.5}, exp)

	assert.Equal(t, "SPY", q.Underlying)
	assert.Equal(t, "192", q.StrikeGTE)
	assert.Equal(t, "212.5", q.StrikeLTE)
	assert.Equal(t, models.ContractTypeCall, q.Type)
	assert.Equal(t, "ACTIVE", q.Status)
	assert.Equal(t, "2024-05-17", q.ExpirationDate())
}

func TestCatalogQuery_InvertedStrikes(t *testing.T) {
	q := CatalogQuery("SPY", models.StrikeTargets{Buy: 210, Sell: 200}, time.Time{})
	assert.Equal(t, "198", q.StrikeGTE)
	assert.Equal(t, "212", q.StrikeLTE)
}
