package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                 int64      `json:"id"`
	Email              string     `json:"email"`
	GoogleAccessToken  string     `json:"-"`
	GoogleRefreshToken string     `json:"-"`
	GoogleTokenExpiry  *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
}

// HasCalendar reports whether the host has ever granted calendar access.
func (u User) HasCalendar() bool {
	return u.GoogleAccessToken != "" || u.GoogleRefreshToken != ""
}

type EventType struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	DurationMinutes  int       `json:"duration_minutes"`
	BufferMinutes    int       `json:"buffer_minutes"`
	MinNoticeMinutes int       `json:"min_notice_minutes"`
	LocationType     string    `json:"location_type"`
	LocationValue    *string   `json:"location_value,omitempty"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (e EventType) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

func (e EventType) Buffer() time.Duration {
	return time.Duration(e.BufferMinutes) * time.Minute
}

func (e EventType) MinNotice() time.Duration {
	return time.Duration(e.MinNoticeMinutes) * time.Minute
}

// AvailabilityRule is a weekly window. Weekday 0 is Monday; times are
// "HH:MM" wall clock in the system timezone.
type AvailabilityRule struct {
	ID          int64  `json:"id"`
	EventTypeID int64  `json:"event_type_id"`
	Weekday     int    `json:"weekday"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
)

type Booking struct {
	ID              uuid.UUID     `json:"id"`
	EventTypeID     int64         `json:"event_type_id"`
	Start           time.Time     `json:"start_datetime"`
	End             time.Time     `json:"end_datetime"`
	InviteeName     string        `json:"invitee_name"`
	InviteeEmail    string        `json:"invitee_email"`
	InviteeNote     *string       `json:"invitee_note,omitempty"`
	Status          BookingStatus `json:"status"`
	ExternalEventID *string       `json:"gcal_event_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}
