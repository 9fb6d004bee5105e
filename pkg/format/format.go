// Package format provides human-readable formatting utilities.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// =============================================================================
// FILE SIZE FORMATTING
// =============================================================================

const (
	kib = 1024
	mib = kib * 1024
	gib = mib * 1024
)

// Bytes formats a byte count the way media tools display file sizes.
// Kilobytes are whole numbers, larger units keep one decimal.
// Example: Bytes(1536) => "2 KB", Bytes(1048576) => "1.0 MB"
func Bytes(bytes uint64) string {
	switch {
	case bytes >= gib:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gib)
	case bytes >= mib:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mib)
	case bytes >= kib:
		return fmt.Sprintf("%.0f KB", float64(bytes)/kib)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// =============================================================================
// NUMBER FORMATTING
// =============================================================================

var printer = message.NewPrinter(language.English)

// Number formats a number with thousand separators.
// Example: Number(1234567) => "1,234,567"
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Percentage formats a percentage value.
// Example: Percentage(45.678, 1) => "45.7%"
func Percentage(value float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, value)
}

// =============================================================================
// DURATION FORMATTING
// =============================================================================

// Clock formats a length in seconds as MM:SS, or HH:MM:SS from one hour up.
// Fractions are truncated.
// Example: Clock(65) => "01:05", Clock(3661) => "01:01:01"
func Clock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := uint64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
