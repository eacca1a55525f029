package models

import (
	"strconv"

	json "github.com/goccy/go-json"
)

// Record is one Formhub submission. Keys are form field names as exported by
// Formhub; values are whatever JSON the submission carried.
type Record map[string]interface{}

// Lookup reports the raw value stored under key and whether the key is present.
func (r Record) Lookup(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[key]
	return v, ok
}

// String returns the value under key rendered as text. The second result is
// false when the key is absent.
func (r Record) String(key string) (string, bool) {
	v, ok := r.Lookup(key)
	if !ok {
		return "", false
	}
	return FormatValue(v), true
}

// Empty reports whether the record carries no fields at all.
func (r Record) Empty() bool {
	return len(r) == 0
}

// FormatValue renders a decoded JSON value the way DHIS2 expects it in a
// dataValue: numbers keep their literal form, null becomes empty.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
