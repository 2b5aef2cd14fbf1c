package availability

import (
	"fmt"
	"strings"
	"time"

	"booking-scheduler/internal/apperr"
	"booking-scheduler/internal/models"
)

const (
	DateFormat  = "2006-01-02"
	ClockFormat = "15:04"

	// localLayout is a timestamp without zone information.
	localLayout = "2006-01-02T15:04:05"
)

// Weekday returns the weekday of t with Monday as 0.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParseClock parses "HH:MM". Database TIME renderings such as "09:00:00" are
// accepted and truncated to minutes.
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	if len(s) > 5 && s[5] == ':' {
		s = s[:5]
	}
	t, err := time.Parse(ClockFormat, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, use HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// ParseDate parses a YYYY-MM-DD date as midnight in loc. A full timestamp is
// accepted and only its date part is used.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateFormat) && (s[len(DateFormat)] == 'T' || s[len(DateFormat)] == ' ') {
		s = s[:len(DateFormat)]
	}
	d, err := time.ParseInLocation(DateFormat, s, loc)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date format, use YYYY-MM-DD")
	}
	return d, nil
}

// ParseTimestamp parses an ISO-8601 timestamp. A timestamp carrying an offset
// keeps it; one without (a naive wall-clock value) is read in loc rather than
// as UTC. The result is expressed in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range []string{localLayout, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("invalid timestamp %q", s)
}

// DayBounds returns [midnight, next midnight) of day's calendar date in loc.
func DayBounds(day time.Time, loc *time.Location) Interval {
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// NormalizeRule validates r and rewrites its times as zero-padded "HH:MM".
func NormalizeRule(r models.AvailabilityRule) (models.AvailabilityRule, error) {
	if err := ValidateRule(r); err != nil {
		return r, err
	}
	sh, sm, _ := ParseClock(r.StartTime)
	eh, em, _ := ParseClock(r.EndTime)
	r.StartTime = fmt.Sprintf("%02d:%02d", sh, sm)
	r.EndTime = fmt.Sprintf("%02d:%02d", eh, em)
	return r, nil
}

// ValidateRule checks a rule before it is stored. A rule whose start is not
// strictly before its end is rejected.
func ValidateRule(r models.AvailabilityRule) error {
	if r.Weekday < 0 || r.Weekday > 6 {
		return apperr.Validation("weekday must be between 0 (Monday) and 6 (Sunday), got %d", r.Weekday)
	}
	sh, sm, err := ParseClock(r.StartTime)
	if err != nil {
		return apperr.Validation("start_time: %v", err)
	}
	eh, em, err := ParseClock(r.EndTime)
	if err != nil {
		return apperr.Validation("end_time: %v", err)
	}
	if sh*60+sm >= eh*60+em {
		return apperr.Validation("start_time %s must be before end_time %s", r.StartTime, r.EndTime)
	}
	return nil
}
