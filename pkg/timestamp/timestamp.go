// Package timestamp converts the creation-date encodings found in stored
// records (unix seconds, unix milliseconds, ISO strings) into one canonical
// epoch-millisecond value.
package timestamp

import (
	"encoding/json"

	"github.com/araddon/dateparse"
)

// msThreshold separates "probably seconds" from "probably milliseconds".
// Values at or below it are treated as seconds. Ambiguous by construction;
// the upstream writers never tagged their unit.
const msThreshold = 10_000_000_000

// Unknown is the sentinel for a missing or unparseable instant. It sorts
// last when ordering newest-first.
const Unknown int64 = 0

// Normalize converts a raw creation value into epoch milliseconds. Missing,
// empty or unparseable input degrades to Unknown; Normalize never fails the
// caller.
func Normalize(raw any) int64 {
	switch v := raw.(type) {
	case nil:
		return Unknown
	case float64:
		return fromNumber(int64(v))
	case int64:
		return fromNumber(v)
	case int:
		return fromNumber(int64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return fromNumber(int64(f))
		}
		return Unknown
	case string:
		if v == "" {
			return Unknown
		}
		t, err := dateparse.ParseAny(v)
		if err != nil {
			return Unknown
		}
		return clamp(t.UnixMilli())
	}
	return Unknown
}

func fromNumber(n int64) int64 {
	if n > msThreshold {
		return clamp(n)
	}
	return clamp(n * 1000)
}

func clamp(ms int64) int64 {
	if ms < 0 {
		return Unknown
	}
	return ms
}
