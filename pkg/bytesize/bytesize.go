// Package bytesize parses and formats human-readable byte sizes.
//
// Units are binary (1024) and case-insensitive: B, K/KB/KiB, M/MB/MiB, G/GB/GiB, T/TB/TiB.
// A bare number is a byte count.
package bytesize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Size is a byte count.
type Size int64

// Binary size units.
const (
	B  Size = 1
	KB Size = 1024
	MB Size = 1024 * KB
	GB Size = 1024 * MB
	TB Size = 1024 * GB
)

var units = map[string]Size{
	"": B, "b": B, "byte": B, "bytes": B,
	"k": KB, "kb": KB, "kib": KB,
	"m": MB, "mb": MB, "mib": MB,
	"g": GB, "gb": GB, "gib": GB,
	"t": TB, "tb": TB, "tib": TB,
}

var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-z]*)\s*$`)

// Parse parses strings such as "64KB", "1.5 GB" or "4096".
func Parse(s string) (Size, error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("bytesize: invalid size %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("bytesize: invalid number %q: %w", m[1], err)
	}

	unit, ok := units[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("bytesize: unknown unit %q", m[2])
	}

	return Size(value * float64(unit)), nil
}

// Format renders s with the largest unit that keeps the value at or above one,
// e.g. 65536 => "64KB" and 1572864 => "1.5MB".
func Format(s Size) string {
	if s < 0 {
		return "-" + Format(-s)
	}

	switch {
	case s >= TB:
		return trim(float64(s)/float64(TB)) + "TB"
	case s >= GB:
		return trim(float64(s)/float64(GB)) + "GB"
	case s >= MB:
		return trim(float64(s)/float64(MB)) + "MB"
	case s >= KB:
		return trim(float64(s)/float64(KB)) + "KB"
	default:
		return fmt.Sprintf("%dB", int64(s))
	}
}

func trim(v float64) string {
	out := strconv.FormatFloat(v, 'f', 2, 64)
	out = strings.TrimRight(out, "0")
	return strings.TrimRight(out, ".")
}

func (s Size) String() string {
	return Format(s)
}
