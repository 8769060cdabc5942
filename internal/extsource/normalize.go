package extsource

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// birthDateLayouts are tried in order when the driver hands back strings
// instead of time.Time.
var birthDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// asString renders any driver value as a string. MySQL commonly returns
// []byte for text columns and int64 for numeric ones.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	case []byte:
		n, _ := strconv.ParseInt(strings.TrimSpace(string(t)), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n
	default:
		return 0
	}
}

// normalizeBirthDate reduces a driver value to YYYY-MM-DD, or "" when the
// value cannot be interpreted as a date.
func normalizeBirthDate(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	s := asString(v)
	if s == "" || isNullish(s) {
		return ""
	}
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	// Already date-prefixed strings (e.g. "1990-05-01T00:00:00Z" variants
	// missed above) keep their first ten characters when they look datelike.
	if len(s) >= 10 {
		if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return s[:10]
		}
	}
	return ""
}

// normalizeTimestamp reduces a driver value to RFC3339, or "" when it cannot
// be interpreted.
func normalizeTimestamp(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	s := asString(v)
	if s == "" || isNullish(s) {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

func isNullish(s string) bool {
	switch strings.ToLower(s) {
	case "null", "undefined", "nil":
		return true
	}
	return false
}

// NormalizePhotoURL reduces any non-empty photo reference to its bare
// filename and re-prefixes it with the canonical media base, regardless of
// which host the upstream value pointed at. Nullish values become "".
func NormalizePhotoURL(raw, mediaBase string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || isNullish(raw) {
		return ""
	}
	// Drop query string and fragment before isolating the filename.
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "\\", "/")
	name := raw
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		name = raw[i+1:]
	}
	if name == "" {
		return ""
	}
	return strings.TrimRight(mediaBase, "/") + "/" + name
}

func ageFromBirthDate(birthDate string) int {
	if birthDate == "" {
		return 0
	}
	born, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return 0
	}
	now := time.Now()
	years := now.Year() - born.Year()
	if now.YearDay() < born.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
