package transformer

import (
	"strings"
	"time"
)

// utcSuffix is stripped before parsing; the hub dumps UTC timestamps with an
// explicit offset.
const utcSuffix = "+00:00"

// timestampLayouts are tried in order. Fractional seconds are accepted by
// the ".999999999" element even when absent from the input.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601-like timestamp. It never fails: a
// missing, non-string or malformed value yields nil. Values carrying an
// offset are converted to UTC; naive values are taken as UTC.
func ParseTimestamp(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(strings.Replace(s, utcSuffix, "", 1))
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
