// Package duration parses human-readable durations and clock timestamps.
//
// Parse extends time.ParseDuration with days and weeks ("7d", "1w2d12h").
// ParseClock reads media timestamps in SS, MM:SS or HH:MM:SS form.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Day is 24 hours.
	Day = 24 * time.Hour
	// Week is 7 days.
	Week = 7 * Day
)

var extendedUnitPattern = regexp.MustCompile(`(?i)(\d+)\s*(weeks?|w|days?|d)`)

// Parse parses a duration, accepting d/day/days and w/week/weeks in addition
// to the units understood by time.ParseDuration.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("duration: empty string")
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimSpace(strings.TrimPrefix(s, "-"))

	var hours int64
	rest := extendedUnitPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := extendedUnitPattern.FindStringSubmatch(match)
		n, _ := strconv.ParseInt(m[1], 10, 64)
		if strings.HasPrefix(strings.ToLower(m[2]), "w") {
			hours += n * 7 * 24
		} else {
			hours += n * 24
		}
		return ""
	})
	rest = strings.Join(strings.Fields(rest), "")

	expr := rest
	if hours > 0 {
		expr = fmt.Sprintf("%dh", hours) + rest
	}
	if expr == "" {
		expr = "0s"
	}

	d, err := time.ParseDuration(expr)
	if err != nil {
		return 0, fmt.Errorf("duration: %w", err)
	}
	if negative {
		d = -d
	}
	return d, nil
}

// Format renders d using weeks and days where they apply: 36h => "1d12h".
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < 0 {
		return "-" + Format(-d)
	}

	var b strings.Builder
	if w := d / Week; w > 0 {
		fmt.Fprintf(&b, "%dw", w)
		d -= w * Week
	}
	if days := d / Day; days > 0 {
		fmt.Fprintf(&b, "%dd", days)
		d -= days * Day
	}
	if d > 0 {
		s := d.String()
		s = strings.Replace(s, "h0m0s", "h", 1)
		s = strings.Replace(s, "m0s", "m", 1)
		b.WriteString(s)
	}
	return b.String()
}

// ParseClock parses a timestamp of the form SS, MM:SS or HH:MM:SS into seconds.
// Every component may carry a fractional part, e.g. "1:02.5" is 62.5 seconds.
func ParseClock(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("duration: invalid timestamp %q", s)
	}

	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("duration: invalid timestamp %q", s)
		}
		total = total*60 + v
	}
	return total, nil
}
