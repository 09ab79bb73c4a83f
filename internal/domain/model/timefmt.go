package model

import (
	"fmt"
	"regexp"
	"time"
)

// Accepted time encodings. NormalizeTime rewrites each to a canonical form
// whose byte order equals its temporal order.
var (
	clockPattern     = regexp.MustCompile(`^(?:\d{2}:)?[0-5]\d:[0-5]\d$`)
	timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d{1,9})?(?:Z|[+-]\d{2}:\d{2})?$`)
)

// canonicalTimestamp is UTC without a zone designator. Trailing fraction
// zeros are dropped, so a shorter value is always the earlier one.
const canonicalTimestamp = "2006-01-02T15:04:05.999999999"

// ValidateTime accepts a clock duration (MM:SS or HH:MM:SS) or an ISO-8601
// timestamp (YYYY-MM-DDTHH:MM:SS with optional fraction and zone).
func ValidateTime(v string) error {
	_, err := NormalizeTime(v)
	return err
}

// NormalizeTime validates v and returns its canonical form. Clock values
// become HH:MM:SS. Timestamps are converted to UTC and rendered without a
// zone; a timestamp with no zone is read as UTC.
func NormalizeTime(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("%w: missing time", ErrInvalid)
	}
	if clockPattern.MatchString(v) {
		if len(v) == len("MM:SS") {
			return "00:" + v, nil
		}
		return v, nil
	}
	if !timestampPattern.MatchString(v) {
		return "", fmt.Errorf("%w: time %q must be MM:SS, HH:MM:SS or an ISO-8601 timestamp", ErrInvalid, v)
	}
	layout := "2006-01-02T15:04:05"
	if n := len(v); v[n-1] == 'Z' || v[n-3] == ':' && (v[n-6] == '+' || v[n-6] == '-') {
		layout = time.RFC3339
	}
	t, err := time.Parse(layout, v)
	if err != nil {
		return "", fmt.Errorf("%w: time %q is not a calendar time", ErrInvalid, v)
	}
	t = t.UTC()
	if y := t.Year(); y < 1 || y > 9999 {
		return "", fmt.Errorf("%w: time %q is outside years 0001-9999 in UTC", ErrInvalid, v)
	}
	return t.Format(canonicalTimestamp), nil
}
