package conversion

import "strings"

// zeroDecimalCurrencies have no minor unit: Stripe amounts for them
// are already in major units.
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {},
	"KMF": {}, "KRW": {}, "MGA": {}, "PYG": {}, "RWF": {},
	"UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// NormalizeAmount converts a minor-unit amount into a major-unit
// decimal value for the given currency. A nil amount returns nil so
// the value field is omitted rather than reported as a $0 sale.
func NormalizeAmount(amountMinor *int64, currencyCode string) *float64 {
	if amountMinor == nil {
		return nil
	}

	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	var value float64
	if _, zeroDecimal := zeroDecimalCurrencies[code]; zeroDecimal {
		value = float64(*amountMinor)
	} else {
		value = float64(*amountMinor) / 100
	}
	return &value
}
