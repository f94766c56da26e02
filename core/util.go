package core

import (
	"strings"
	"time"
)

var nowFunc = time.Now // mockable

// Now returns the current UTC time at the microsecond precision of the database timestamps.
func Now() time.Time {
	return nowFunc().UTC().Truncate(time.Microsecond)
}

// CleanString trims the surrounding whitespace of s; lower also lowercases it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) == 0 || !lower[0] {
		return s
	}
	return strings.ToLower(s)
}
