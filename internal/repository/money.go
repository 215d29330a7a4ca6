package repository

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// parseDecimal разбирает numeric, прочитанный как текст
func parseDecimal(s string, dst *decimal.Decimal) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", s, err)
	}
	*dst = d
	return nil
}
