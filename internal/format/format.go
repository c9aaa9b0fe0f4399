// Package format holds the pure value formatters used when rendering upstream data.
// None of them return errors: on bad input they fall back to a documented value.
package format

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xelth-com/orderbot/internal/fields"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// Epoch values above this are milliseconds
	millisThreshold = 10_000_000_000

	// Upstream money is fixed-point with this many units per currency unit
	moneyUnit = 100000

	CurrencyLabel = "đ"
	Ellipsis      = "…"

	LayoutSeconds = "02/01/2006 15:04:05"
	LayoutMinutes = "02/01/2006 15:04"
)

var moneyPrinter = message.NewPrinter(language.English)

// epochSeconds parses an int or integer-like value, normalising milliseconds
func epochSeconds(v any) (int64, bool) {
	s := strings.TrimSpace(fields.ToText(v))
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	if n > millisThreshold {
		n /= 1000
	}
	return n, true
}

// Timestamp renders an epoch value (seconds or milliseconds) as DD/MM/YYYY HH:MM:SS.
// Unparseable input is returned in its raw string form.
func Timestamp(v any, loc *time.Location) string {
	if v == nil {
		return ""
	}
	sec, ok := epochSeconds(v)
	if !ok {
		return fields.ToText(v)
	}
	return time.Unix(sec, 0).In(location(loc)).Format(LayoutSeconds)
}

// EpochMinutes renders an epoch value as DD/MM/YYYY HH:MM, or "" on failure
func EpochMinutes(v any, loc *time.Location) string {
	sec, ok := epochSeconds(v)
	if !ok {
		return ""
	}
	return time.Unix(sec, 0).In(location(loc)).Format(LayoutMinutes)
}

// ISOZ renders an ISO-8601 UTC timestamp such as 2026-02-10T13:05:32.974Z as
// DD/MM/YYYY HH:MM in loc. Parse failures yield "".
func ISOZ(v any, loc *time.Location) string {
	s := strings.TrimSpace(fields.ToText(v))
	if s == "" {
		return ""
	}
	s = strings.TrimSuffix(s, "Z")

	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04", "2006-01-02 15:04:05.999999999"} {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.In(location(loc)).Format(LayoutMinutes)
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(location(loc)).Format(LayoutMinutes)
	}
	return ""
}

// Currency converts an upstream fixed-point amount into "1,234,000 đ".
// Non-numeric input is returned in its raw string form.
func Currency(v any) string {
	s := strings.TrimSpace(fields.ToText(v))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fields.ToText(v)
	}
	return moneyPrinter.Sprintf("%.0f %s", f/moneyUnit, CurrencyLabel)
}

// SplitAddress splits a free-text address into a street line and a city/region line.
// The last comma-separated segment is the city when at least two segments exist.
func SplitAddress(full string) (street, city string) {
	s := strings.TrimSpace(full)
	if s == "" {
		return "", ""
	}

	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) >= 2 {
		return strings.Join(parts[:len(parts)-1], ", "), parts[len(parts)-1]
	}
	return s, ""
}

// CityLine prefixes a bare city name with "TP. " unless it already names its kind
func CityLine(city string) string {
	if city == "" {
		return ""
	}
	lower := strings.ToLower(city)
	for _, p := range []string{"tp", "thành phố", "tỉnh"} {
		if strings.HasPrefix(lower, p) {
			return city
		}
	}
	return "TP. " + city
}

// SafeTrim cuts s to at most n runes, appending an ellipsis when it cut anything
func SafeTrim(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + Ellipsis
}

// Preview returns the first n runes of s
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
