package models

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date form used on the wire and in storage.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

type Sale struct {
	ID     int
	Date   time.Time
	Amount float64
}

// SalePatch holds the fields of a partial update. Nil fields keep their value.
type SalePatch struct {
	Date   *time.Time
	Amount *float64
}

func (s Sale) Apply(p SalePatch) Sale {
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.Amount != nil {
		s.Amount = *p.Amount
	}
	return s
}

func (s Sale) DateString() string {
	return s.Date.Format(DateLayout)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns midnight UTC
// of that calendar day.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.Parse(DateLayout, raw); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return Truncate(ts), nil
}

// Truncate drops the time-of-day and location, keeping the calendar date.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
