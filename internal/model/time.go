package model

import "time"

// TimestampFormat is the wire format for every timestamp the core emits.
// Fixed-width UTC with millisecond precision so that chain payloads are
// byte-stable and lexicographic order equals chronological order.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// UTCNowISO returns the current UTC time in TimestampFormat.
func UTCNowISO() string {
	return time.Now().UTC().Format(TimestampFormat)
}

// ParseTimestamp parses a TimestampFormat string, falling back to RFC3339
// for entries produced by older writers.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampFormat, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
