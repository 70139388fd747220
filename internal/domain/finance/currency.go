package finance

import (
	"regexp"
	"strings"

	"github.com/arflow/backend/internal/domain/shared"
)

// DefaultCurrency is used when a document or payment names none
const DefaultCurrency = "USD"

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// zeroDecimalCurrencies have no minor unit and are charged in whole units
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// CurrencyDecimals returns the number of minor-unit digits of currency
func CurrencyDecimals(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

func normalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return DefaultCurrency, nil
	}
	if !currencyPattern.MatchString(currency) {
		return "", shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}
	return currency, nil
}
