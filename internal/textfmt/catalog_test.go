package textfmt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

func TestParseCatalog_Records(t *testing.T) {
	text := `Option Contracts for SPY:
Symbol: SPY261030C00095000
  Type: ContractType.CALL
  Strike Price: $95.00
Symbol: SPY261030P00100000
  Strike Price: $100.00
  Type: ContractType.PUT
Symbol: SPY261030C00105000
  Strike Price: $105.00 USD
  Type: CALL`

	records, err := ParseCatalog(text)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, models.ContractRecord{Symbol: "SPY261030C00095000", Type: models.ContractTypeCall, Strike: 95, HasStrike: true}, records[0])
	assert.Equal(t, models.ContractRecord{Symbol: "SPY261030P00100000", Type: models.ContractTypePut, Strike: 100, HasStrike: true}, records[1])
	assert.Equal(t, models.ContractRecord{Symbol: "SPY261030C00105000", Type: models.ContractTypeCall, Strike: 105, HasStrike: true}, records[2])
}

func TestParseCatalog_PartialRecords(t *testing.T) {
	text := `Strike Price: $90.00
Type: CALL
Symbol: A
Symbol: B
Type: something else
Symbol:
Strike Price: $101.50
Strike Price: $102.00`

	records, err := ParseCatalog(text)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "", records[0].Symbol, "fields before the first symbol form their own record")
	assert.Equal(t, 90.0, records[0].Strike)
	assert.Equal(t, models.ContractRecord{Symbol: "A"}, records[1])
	assert.Equal(t, models.ContractRecord{Symbol: "B"}, records[2], "unknown type leaves the type unset")
	assert.Equal(t, 102.0, records[3].Strike, "last strike assignment wins")
	assert.False(t, records[3].Eligible())
}

func TestParseCatalog_Empty(t *testing.T) {
	records, err := ParseCatalog("No option contracts found.")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseCatalog_MalformedStrike(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no dollar", "Symbol: A\nStrike Price: 100\nType: CALL"},
		{"not a number", "Symbol: A\nStrike Price: $1OO\nType: CALL"},
		{"empty", "Symbol: A\nStrike Price: $\nType: CALL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseCatalog(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrMalformedCatalog))
			assert.Nil(t, records)
		})
	}
}

func TestParseCatalog_ReadsFormattedCatalog(t *testing.T) {
	exp := time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC)
	in := []models.ContractRecord{
		{Symbol: "SPY261030C00190000", Type: models.ContractTypeCall, Strike: 190, HasStrike: true},
		{Symbol: "SPY261030P00190000", Type: models.ContractTypePut, Strike: 190, HasStrike: true},
		{Symbol: "SPY261030C00192500", Type: models.ContractTypeCall, Strike: 192.5, HasStrike: true},
	}

	got, err := ParseCatalog(FormatCatalog("SPY", exp, in))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}
