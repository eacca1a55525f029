// Package period converts a submission date into a DHIS2 period string.
package period

import (
	"errors"
	"fmt"
	"time"

	"f2dhis2/internal/models"
)

// DateLayout is the layout of the "period" field in Formhub submissions.
const DateLayout = "2006-01-02"

// ErrParse is wrapped by every ParseError.
var ErrParse = errors.New("period: unparseable date")

// ParseError reports a missing or malformed submission date.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("period: cannot parse %q as YYYY-MM-DD: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("period: cannot parse %q as YYYY-MM-DD", e.Value)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// Parse reads a YYYY-MM-DD date.
func Parse(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, &ParseError{Value: raw}
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, &ParseError{Value: raw, Err: err}
	}
	return d, nil
}

// Resolve parses raw and formats it for the given reporting frequency.
func Resolve(raw string, freq models.Frequency) (string, error) {
	d, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return Format(d, freq), nil
}

// Format renders d as a DHIS2 period of the given frequency. Unknown
// frequencies are treated as daily.
//
// Weekly periods use the ISO-8601 year and a two digit ISO week, so
// 2021-01-01 (ISO week 53 of 2020) becomes "202053".
func Format(d time.Time, freq models.Frequency) string {
	switch freq {
	case models.FrequencyYearly:
		return d.Format("2006")
	case models.FrequencyMonthly:
		return d.Format("200601")
	case models.FrequencyWeekly:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%04d%02d", year, week)
	default:
		return d.Format("20060102")
	}
}
