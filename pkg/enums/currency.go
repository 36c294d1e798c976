package enums

import "fmt"

// Currency represents the denominations a commercial document or payment may carry.
type Currency string

const (
	CurrencyMYR Currency = "MYR"
	CurrencyRMB Currency = "RMB"
	CurrencyUSD Currency = "USD"
)

// DefaultCurrency is applied when a draft omits the currency.
const DefaultCurrency = CurrencyMYR

var validCurrencies = []Currency{
	CurrencyMYR,
	CurrencyRMB,
	CurrencyUSD,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
