package fulfillment

import (
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// DayRange turns an inclusive [from, to] calendar-day pair into a half-open
// instant range [start, end) in loc. Empty bounds stay zero.
func DayRange(from, to string, loc *time.Location) (start, end time.Time, err error) {
	if loc == nil {
		loc = time.Local
	}
	if from != "" {
		start, err = time.ParseInLocation(dayLayout, from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from=%q, expected YYYY-MM-DD", ErrInvalidFilter, from)
		}
	}
	if to != "" {
		d, err := time.ParseInLocation(dayLayout, to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to=%q, expected YYYY-MM-DD", ErrInvalidFilter, to)
		}
		end = d.AddDate(0, 0, 1)
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}
	return start, end, nil
}

// SplitEmployees parses the comma separated employees query value.
func SplitEmployees(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
