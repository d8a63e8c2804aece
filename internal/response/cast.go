// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package response

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateTimeLayout is the RETS timestamp shape: ISO 8601 with exactly three
// fractional-second digits, 23 characters total.
const dateTimeLayout = "2006-01-02T15:04:05.000"

// Cast converts a raw RETS field string into a native Go value.
//
// RETS servers return everything as text, with a few conventions that make
// naive numeric parsing wrong:
//
//   - Zero-padded identifiers like postal codes ("02882") look numeric but
//     must stay strings. Only the literal zero cases ("0", "0.0", "0.00")
//     and sub-one decimals ("0.56") are treated as numbers when the first
//     character is a zero.
//   - Pseudo-booleans ("Y"/"N", "Yes"/"No", 1/0) are NOT converted; whether
//     a field is semantically boolean is a per-field decision, so AsBool is
//     a separate opt-in helper.
//   - Numeric-looking values with non-digit characters (exponent notation
//     like "2e100") keep their string form since intent and precision are
//     ambiguous.
//
// The result is one of int64, float64, string, time.Time, or nil (for the
// empty string).
func Cast(value string) any {
	if isNumeric(value) {
		if !isPlainNumber(value) {
			// Numeric with special characters, e.g. exponent notation.
			return value
		}
		switch {
		case value == "0":
			return int64(0)
		case value == "0.0" || value == "0.00":
			return float64(0)
		case value[0] == '0':
			f, err := strconv.ParseFloat(value, 64)
			if err == nil && f != math.Trunc(f) {
				// Decimals below one, e.g. "0.56".
				return f
			}
			// Zero-padded whole numbers, e.g. "02882".
			return value
		case strings.Contains(value, "."):
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return value
			}
			return f
		default:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return value
			}
			return n
		}
	}

	if isDateTime(value) {
		t, err := ParseDateTime(value)
		if err == nil {
			return t
		}
		return value
	}

	if value == "" {
		return nil
	}
	return value
}

// isNumeric reports whether value parses as a floating-point number,
// including exponent notation.
func isNumeric(value string) bool {
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

// isPlainNumber reports whether value consists only of an optional sign,
// digits, and at most one decimal point.
func isPlainNumber(value string) bool {
	s := strings.TrimLeft(value, "-")
	s = strings.Replace(s, ".", "", 1)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isDateTime reports whether value has the 23-character RETS timestamp
// shape. Timestamps without fractional seconds do not match and fall
// through as strings.
func isDateTime(value string) bool {
	return len(value) == 23 && value[4] == '-' && value[7] == '-' && value[10] == 'T'
}

// ParseDateTime parses a RETS timestamp (ISO 8601 with milliseconds).
func ParseDateTime(value string) (time.Time, error) {
	return time.Parse(dateTimeLayout, value)
}

// FormatDateTime renders a time as a RETS date string, without fractional
// seconds, for use in DMQL2 queries.
func FormatDateTime(t time.Time) string {
	return t.Truncate(time.Second).Format("2006-01-02T15:04:05")
}

// AsBool interprets a cast value as an MLS pseudo-boolean. Servers use
// y/Y/yes/Yes for true and n/N/no/No for false, or the integers 1 and 0.
// The second return is false when the value does not look boolean at all
// (e.g. "Unknown" or "U").
func AsBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(v) {
		case "y", "yes":
			return true, true
		case "n", "no":
			return false, true
		}
		return false, false
	case int64:
		return v == 1, true
	case int:
		return v == 1, true
	}
	return false, false
}
