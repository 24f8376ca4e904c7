package util

import "github.com/shopspring/decimal"

// FormatUSD renders an amount with a dollar prefix and two decimals, e.g. "$1234.50".
func FormatUSD(amount float64) string {
	return "$" + decimal.NewFromFloat(amount).StringFixed(2)
}
