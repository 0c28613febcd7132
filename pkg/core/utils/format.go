package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatCurrency renders an amount with thousands separators and the
// currency code, e.g. "EUR 1,234,567.89". Negative amounts keep a leading
// minus so CLI tables stay aligned.
func FormatCurrency(amount float64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := int64(math.Floor(amount))
	cents := int64(math.Round((amount - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}
	if currency == "" {
		return fmt.Sprintf("%s%s.%02d", sign, groupThousands(whole), cents)
	}
	return fmt.Sprintf("%s %s%s.%02d", currency, sign, groupThousands(whole), cents)
}

// FormatPercent renders a ratio as a percentage, e.g. 0.125 -> "12.50%".
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

func groupThousands(n int64) string {
	digits := fmt.Sprintf("%d", n)
	if len(digits) <= 3 {
		return digits
	}
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return strings.Join(groups, ",")
}
