package textfmt

import (
	"fmt"
	"strings"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

// ParseCatalog splits a contract catalog into records. Each "Symbol:" line
// starts a new record; "Strike Price:" and "Type:" lines fill the open one.
// Lines seen before the first "Symbol:" form a record without a symbol.
//
// A strike line without a readable dollar amount fails the whole catalog with
// an error wrapping models.ErrMalformedCatalog.
func ParseCatalog(text string) ([]models.ContractRecord, error) {
	var records []models.ContractRecord
	var cur models.ContractRecord
	open := false

	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, symbolLabel):
			if open {
				records = append(records, cur)
			}
			cur = models.ContractRecord{Symbol: strings.TrimSpace(strings.TrimPrefix(line, symbolLabel))}
			open = true
		case strings.HasPrefix(line, strikeLabel):
			v, err := dollarValue(line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", models.ErrMalformedCatalog, n+1, err)
			}
			cur.Strike, cur.HasStrike = v, true
			open = true
		case strings.HasPrefix(line, typeLabel):
			value := strings.TrimPrefix(line, typeLabel)
			if strings.Contains(value, string(models.ContractTypeCall)) {
				cur.Type = models.ContractTypeCall
				open = true
			} else if strings.Contains(value, string(models.ContractTypePut)) {
				cur.Type = models.ContractTypePut
				open = true
			}
		}
	}
	if open {
		records = append(records, cur)
	}
	return records, nil
}
