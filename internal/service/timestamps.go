package service

import (
	"strings"

	"github.com/jmylchreest/dlcut/internal/apperr"
	"github.com/jmylchreest/dlcut/pkg/duration"
)

// ValidateTimestamps parses optional start and end timestamps and checks them
// against a video of the given duration. Nil or blank inputs stay nil.
func ValidateTimestamps(start, end *string, duration float64) (*float64, *float64, error) {
	startSecs, err := parseTimestamp(start, "start")
	if err != nil {
		return nil, nil, err
	}
	endSecs, err := parseTimestamp(end, "end")
	if err != nil {
		return nil, nil, err
	}

	if startSecs != nil {
		if *startSecs < 0 {
			return nil, nil, invalidTimestamp("Start time cannot be negative")
		}
		if *startSecs >= duration {
			return nil, nil, invalidTimestamp("Start time exceeds video duration")
		}
	}
	if endSecs != nil {
		if *endSecs <= 0 {
			return nil, nil, invalidTimestamp("End time must be positive")
		}
		if *endSecs > duration {
			return nil, nil, invalidTimestamp("End time exceeds video duration")
		}
	}
	if startSecs != nil && endSecs != nil && *startSecs >= *endSecs {
		return nil, nil, invalidTimestamp("Start time must be before end time")
	}

	return startSecs, endSecs, nil
}

func parseTimestamp(s *string, which string) (*float64, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v, err := duration.ParseClock(*s)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "Invalid timestamp: Invalid "+which+" time: "+*s, err)
	}
	return &v, nil
}

func invalidTimestamp(msg string) error {
	return apperr.New(apperr.KindInvalidInput, "Invalid timestamp: "+msg)
}
