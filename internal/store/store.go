// Package store defines the persistence contract shared by the Postgres and
// SQLite backends. No scheduling logic lives behind it except the
// transactional overlap check in CreateBookingExclusive.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"booking-scheduler/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrOverlap       = errors.New("interval overlaps an existing booking")
	ErrDuplicateSlug = errors.New("slug already in use")
	ErrHasBookings   = errors.New("event type has bookings")
)

type Users interface {
	// UpsertUser inserts or updates by email and fills in the ID. An empty
	// refresh token does not overwrite a stored one.
	UpsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (models.User, error)
	UpdateUserTokens(ctx context.Context, id int64, access, refresh string, expiry *time.Time) error
}

type EventTypes interface {
	CreateEventType(ctx context.Context, et *models.EventType) error
	GetEventType(ctx context.Context, id int64) (models.EventType, error)
	GetEventTypeBySlug(ctx context.Context, slug string) (models.EventType, error)
	ListEventTypes(ctx context.Context, userID int64) ([]models.EventType, error)
	UpdateEventType(ctx context.Context, et *models.EventType) error
	DeleteEventType(ctx context.Context, id int64) error
}

type Rules interface {
	ListRules(ctx context.Context, eventTypeID int64) ([]models.AvailabilityRule, error)
	RulesForWeekday(ctx context.Context, eventTypeID int64, weekday int) ([]models.AvailabilityRule, error)
	// ReplaceRules deletes every rule of the event type and inserts rules in
	// one transaction.
	ReplaceRules(ctx context.Context, eventTypeID int64, rules []models.AvailabilityRule) ([]models.AvailabilityRule, error)
}

type Bookings interface {
	// CreateBookingExclusive inserts b unless an active booking of the same
	// event type overlaps [b.Start, b.End), in which case it returns
	// ErrOverlap. Check and insert happen in one serialized transaction.
	CreateBookingExclusive(ctx context.Context, b *models.Booking) error
	// OverlappingBookings returns the active bookings that overlap
	// [start, end), ordered by start. Bookings are matched by their own end,
	// so a booking longer than the event type's current duration is found.
	OverlappingBookings(ctx context.Context, eventTypeID int64, start, end time.Time) ([]models.Booking, error)
	UpdateBookingSync(ctx context.Context, id uuid.UUID, status models.BookingStatus, externalID *string) error
	GetBooking(ctx context.Context, id uuid.UUID) (models.Booking, error)
	// ListBookings returns bookings starting in [from, to); zero bounds are open.
	ListBookings(ctx context.Context, eventTypeID int64, from, to time.Time) ([]models.Booking, error)
}

type Store interface {
	Users
	EventTypes
	Rules
	Bookings
	Close() error
}
