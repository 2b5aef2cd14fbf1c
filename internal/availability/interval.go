package availability

import (
	"time"
)

// Interval is a half-open [Start, End) range.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals share any instant.
// Touching endpoints do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

func (i Interval) Equal(o Interval) bool {
	return i.Start.Equal(o.Start) && i.End.Equal(o.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// In returns the interval expressed in loc.
func (i Interval) In(loc *time.Location) Interval {
	return Interval{Start: i.Start.In(loc), End: i.End.In(loc)}
}

// OverlapsAny reports whether iv overlaps at least one of busy.
func OverlapsAny(iv Interval, busy []Interval) bool {
	for _, b := range busy {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}

// Contains reports whether slots holds an interval equal to iv.
func Contains(slots []Interval, iv Interval) bool {
	for _, s := range slots {
		if s.Equal(iv) {
			return true
		}
	}
	return false
}
