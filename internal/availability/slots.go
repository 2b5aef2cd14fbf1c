// Package availability turns weekly rules into bookable slots for a date.
// Everything here is pure: callers supply rules, busy time and the clock.
package availability

import (
	"fmt"
	"sort"
	"time"

	"booking-scheduler/internal/models"
)

// GenerateSlots expands the rules that apply to day's weekday into candidate
// slots of the event type's duration, separated by its buffer. Slots starting
// before now plus the minimum notice are dropped.
//
// day is read as a calendar date in loc. Rules for other weekdays are
// ignored. Rules are walked in ascending start time; slots from different
// rules are emitted independently even when they overlap.
func GenerateSlots(et models.EventType, rules []models.AvailabilityRule, day, now time.Time, loc *time.Location) ([]Interval, error) {
	if et.DurationMinutes <= 0 {
		return nil, fmt.Errorf("event type %d: duration must be positive", et.ID)
	}
	if et.BufferMinutes < 0 {
		return nil, fmt.Errorf("event type %d: buffer must not be negative", et.ID)
	}

	y, m, d := day.In(loc).Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, loc)
	weekday := Weekday(date)

	type window struct {
		id         int64
		start, end int // minutes from midnight
	}
	var windows []window
	for _, r := range rules {
		if r.Weekday != weekday {
			continue
		}
		sh, sm, err := ParseClock(r.StartTime)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", r.ID, err)
		}
		eh, em, err := ParseClock(r.EndTime)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", r.ID, err)
		}
		windows = append(windows, window{id: r.ID, start: sh*60 + sm, end: eh*60 + em})
	}
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].start != windows[j].start {
			return windows[i].start < windows[j].start
		}
		if windows[i].end != windows[j].end {
			return windows[i].end < windows[j].end
		}
		return windows[i].id < windows[j].id
	})

	duration := et.Duration()
	step := duration + et.Buffer()
	earliest := now.Add(et.MinNotice())

	var slots []Interval
	for _, w := range windows {
		end := time.Date(y, m, d, w.end/60, w.end%60, 0, 0, loc)
		for cur := time.Date(y, m, d, w.start/60, w.start%60, 0, 0, loc); !cur.Add(duration).After(end); cur = cur.Add(step) {
			if cur.Before(earliest) {
				continue
			}
			slots = append(slots, Interval{Start: cur, End: cur.Add(duration)})
		}
	}
	return slots, nil
}

// FilterAvailable keeps the candidates that overlap none of busy, preserving
// candidate order. Both sides are compared as instants and returned in loc.
func FilterAvailable(candidates, busy []Interval, loc *time.Location) []Interval {
	normalized := make([]Interval, 0, len(busy))
	for _, b := range busy {
		normalized = append(normalized, b.In(loc))
	}

	available := make([]Interval, 0, len(candidates))
	for _, c := range candidates {
		c = c.In(loc)
		if OverlapsAny(c, normalized) {
			continue
		}
		available = append(available, c)
	}
	return available
}
