package timestamp

import (
	"encoding/json"
	"math"
	"time"
)

// Documents written by older code paths carry timestamps in several shapes:
// epoch milliseconds, epoch seconds, calendar strings, seconds+nanoseconds
// pairs, or objects exposing an accessor. Normalize folds all of them into
// canonical epoch-milliseconds so sorting and filtering operate on one format.

// MillisProvider is satisfied by values that can report epoch-milliseconds
// directly.
type MillisProvider interface {
	UnixMilli() int64
}

// TimeProvider is satisfied by values that can convert themselves to a
// time.Time.
type TimeProvider interface {
	Time() time.Time
}

// SecondsNanos is the structured seconds+nanoseconds timestamp shape.
type SecondsNanos struct {
	Seconds     int64
	Nanoseconds int64
}

const (
	millisThreshold  = 1e12
	secondsThreshold = 1e9
)

var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// Normalize converts a raw timestamp value into canonical epoch-milliseconds.
// It returns ok=false for absent or unparseable input and never panics;
// callers are expected to supply their own fallback.
func Normalize(raw any) (int64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case time.Time:
		if v.IsZero() {
			return 0, false
		}
		return v.UnixMilli(), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return 0, false
		}
		return v.UnixMilli(), true
	case int64:
		return fromNumber(float64(v))
	case int:
		return fromNumber(float64(v))
	case float64:
		return fromNumber(v)
	case float32:
		return fromNumber(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return fromNumber(f)
	case string:
		return fromString(v)
	case SecondsNanos:
		return fromSecondsNanos(float64(v.Seconds), float64(v.Nanoseconds))
	case *SecondsNanos:
		if v == nil {
			return 0, false
		}
		return fromSecondsNanos(float64(v.Seconds), float64(v.Nanoseconds))
	case map[string]any:
		return fromMap(v)
	}

	if p, ok := raw.(MillisProvider); ok {
		return p.UnixMilli(), true
	}
	if p, ok := raw.(TimeProvider); ok {
		t := p.Time()
		if t.IsZero() {
			return 0, false
		}
		return t.UnixMilli(), true
	}
	return 0, false
}

// NormalizeOr tries each value in order and returns the first that
// normalizes. ok=false means none of them did.
func NormalizeOr(values ...any) (int64, bool) {
	for _, v := range values {
		if ms, ok := Normalize(v); ok {
			return ms, ok
		}
	}
	return 0, false
}

func fromNumber(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	if f > millisThreshold {
		return int64(f), true
	}
	if f > secondsThreshold {
		return int64(f * 1000), true
	}
	return 0, false
}

func fromString(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, layout := range stringLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func fromSecondsNanos(seconds, nanos float64) (int64, bool) {
	if seconds <= 0 {
		return 0, false
	}
	return int64(seconds)*1000 + int64(math.Floor(nanos/1e6)), true
}

func fromMap(m map[string]any) (int64, bool) {
	seconds, ok := numericField(m, "seconds", "_seconds")
	if !ok {
		return 0, false
	}
	nanos, _ := numericField(m, "nanoseconds", "_nanoseconds")
	return fromSecondsNanos(seconds, nanos)
}

func numericField(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		raw, exists := m[key]
		if !exists {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v, true
		case int64:
			return float64(v), true
		case int:
			return float64(v), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
