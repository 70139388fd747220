package payment

import (
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// toMinorUnits converts an amount to the smallest currency unit, rounding half up
func toMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(finance.CurrencyDecimals(currency)).Round(0).IntPart()
}
