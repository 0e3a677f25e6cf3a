package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeInForce(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeInForce
		wantErr bool
	}{
		{"", TimeInForceDay, false},
		{"day", TimeInForceDay, false},
		{"  DAY ", TimeInForceDay, false},
		{"gtc", TimeInForceGTC, false},
		{"good-til-cancelled", TimeInForceGTC, false},
		{"ioc", "", true},
		{"week", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeInForce(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContractRecord_Eligible(t *testing.T) {
	tests := []struct {
		name   string
		record ContractRecord
		want   bool
	}{
		{"complete call", ContractRecord{Symbol: "SPY261030C00195000", Type: ContractTypeCall, Strike: 195, HasStrike: true}, true},
		{"put", ContractRecord{Symbol: "SPY261030P00195000", Type: ContractTypePut, Strike: 195, HasStrike: true}, false},
		{"unknown type", ContractRecord{Symbol: "X", Strike: 195, HasStrike: true}, false},
		{"missing strike", ContractRecord{Symbol: "X", Type: ContractTypeCall}, false},
		{"zero strike", ContractRecord{Symbol: "X", Type: ContractTypeCall, HasStrike: true}, false},
		{"missing symbol", ContractRecord{Type: ContractTypeCall, Strike: 195, HasStrike: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.Eligible())
		})
	}
}

func TestContractQuery_ExpirationDate(t *testing.T) {
	q := ContractQuery{Expiration: time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2026-10-30", q.ExpirationDate())
}

func TestQuote_Mid(t *testing.T) {
	mid, ok := Quote{Bid: 100, Ask: 102}.Mid()
	assert.True(t, ok)
	assert.Equal(t, 101.0, mid)

	_, ok = Quote{Bid: 100}.Mid()
	assert.False(t, ok, "missing ask")

	_, ok = Quote{Ask: 102}.Mid()
	assert.False(t, ok, "missing bid")
}

func TestOCCSymbol(t *testing.T) {
	exp := time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "SPY261030C00195000", OCCSymbol("SPY", exp, ContractTypeCall, 195))
	assert.Equal(t, "SPY261030P00194500", OCCSymbol("SPY", exp, ContractTypePut, 194.5))
}
