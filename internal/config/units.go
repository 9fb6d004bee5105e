package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmylchreest/dlcut/pkg/bytesize"
	"github.com/jmylchreest/dlcut/pkg/duration"
)

// ByteSize is a byte count written as "64KB", "1.5MB" or a plain number.
type ByteSize int64

// Bytes returns the size as a plain int, which is what buffer options take.
func (b ByteSize) Bytes() int64 { return int64(b) }

func (b ByteSize) String() string { return bytesize.Format(bytesize.Size(b)) }

func (b ByteSize) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *ByteSize) UnmarshalText(text []byte) error {
	n, err := bytesize.Parse(string(text))
	if err != nil {
		return err
	}
	*b = ByteSize(n)
	return nil
}

// UnmarshalJSON accepts either a size string or a number of bytes.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	return unmarshalTextOrNumber(data, b, func(n int64) { *b = ByteSize(n) })
}

// Duration is a time.Duration that also accepts days and weeks ("1d", "2w").
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return duration.Format(time.Duration(d)) }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := duration.Parse(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalJSON accepts either a duration string or nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	return unmarshalTextOrNumber(data, d, func(n int64) { *d = Duration(n) })
}

type textUnmarshaler interface {
	UnmarshalText([]byte) error
}

func unmarshalTextOrNumber(data []byte, t textUnmarshaler, setNumber func(int64)) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return t.UnmarshalText([]byte(s))
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or integer: %w", err)
	}
	setNumber(n)
	return nil
}
