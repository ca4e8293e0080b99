package util

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatMoney renders an integer amount with space-grouped thousands.
// Example: 12500, "XOF" -> "12 500 XOF".
func FormatMoney(amount int64, currency string) string {
	return fmt.Sprintf("%s %s", strings.ReplaceAll(humanize.Comma(amount), ",", " "), currency)
}

// TruncateContent shortens s to maxLength bytes and appends an ellipsis.
func TruncateContent(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}

func Float64Pointer(f float64) *float64 {
	return &f
}
