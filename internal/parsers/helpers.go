package parsers

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ParseFloat parses a plain decimal string. Blank or malformed input yields nil.
func ParseFloat(val string) *float64 {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseNumber accepts the loose numeric strings providers send: surrounding
// whitespace, thousands separators and a trailing percent sign are ignored.
// A value that still fails to parse counts as "not provided".
func ParseNumber(val string) (float64, bool) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, false
	}
	val = strings.ReplaceAll(val, ",", "")
	val = strings.TrimSpace(strings.TrimSuffix(val, "%"))
	if val == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimeString parses the textual timestamp layouts seen in usage payloads.
// Layouts without a zone are read as UTC.
func ParseTimeString(val string) (time.Time, bool) {
	val = strings.TrimSpace(val)
	if val == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Truncate trims whitespace and cuts value to at most max runes, used for
// error previews of response bodies.
func Truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(value) <= max {
		return value
	}
	runes := []rune(value)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// ParseCookieHeader splits a "k=v; k2=v2" header into ordered pairs.
func ParseCookieHeader(header string) [][2]string {
	var out [][2]string
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, [2]string{name, strings.TrimSpace(value)})
	}
	return out
}

// CookieValue returns the value of the first cookie named name (case-insensitive).
func CookieValue(header, name string) string {
	for _, pair := range ParseCookieHeader(header) {
		if strings.EqualFold(pair[0], name) {
			return pair[1]
		}
	}
	return ""
}

func RedactHeaders(headers http.Header, sensitiveKeys ...string) map[string]string {
	sensitive := map[string]bool{
		"authorization": true,
		"x-api-key":     true,
		"apikey":        true,
		"cookie":        true,
		"set-cookie":    true,
	}
	for _, k := range sensitiveKeys {
		sensitive[strings.ToLower(k)] = true
	}

	out := make(map[string]string)
	for k, vals := range headers {
		key := strings.ToLower(k)
		val := strings.Join(vals, ", ")
		if sensitive[key] {
			if len(val) > 8 {
				val = val[:4] + "..." + val[len(val)-4:]
			} else {
				val = "****"
			}
		}
		out[k] = val
	}
	return out
}
