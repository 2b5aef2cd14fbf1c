// Package booking answers the two public questions of the scheduler: which
// slots are free on a date, and whether an invitee may take one.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"booking-scheduler/internal/apperr"
	"booking-scheduler/internal/availability"
	"booking-scheduler/internal/logger"
	"booking-scheduler/internal/models"
	"booking-scheduler/internal/store"
)

// BusyResolver reports external busy time for a host.
type BusyResolver interface {
	BusyIntervals(ctx context.Context, host models.User, from, to time.Time) ([]availability.Interval, error)
}

// EventCreator writes a booking into the host's external calendar and
// returns the external event id.
type EventCreator interface {
	CreateEvent(ctx context.Context, host models.User, et models.EventType, b models.Booking) (string, error)
}

// BusyInvalidator drops cached busy time after a booking changes it.
type BusyInvalidator interface {
	Invalidate(ctx context.Context, hostID int64, day time.Time) error
}

type Service struct {
	store       store.Store
	busy        BusyResolver
	events      EventCreator
	invalidator BusyInvalidator
	loc         *time.Location
	now         func() time.Time
	timeout     time.Duration
	locks       *keyedMutex
	validate    *validator.Validate
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithCalendarTimeout bounds every call to the busy resolver and the event
// creator.
func WithCalendarTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithBusyInvalidator(inv BusyInvalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

// NewService wires the booking service. busy and events may be nil when no
// calendar integration is configured.
func NewService(st store.Store, busy BusyResolver, events EventCreator, loc *time.Location, opts ...Option) *Service {
	s := &Service{
		store:    st,
		busy:     busy,
		events:   events,
		loc:      loc,
		now:      time.Now,
		timeout:  5 * time.Second,
		locks:    newKeyedMutex(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the timezone rules and slots are expressed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// BookRequest is an invitee's request for one slot.
type BookRequest struct {
	InviteeName  string
	InviteeEmail string
	InviteeNote  *string
	Start        time.Time
	End          time.Time
}

type PublicDetails struct {
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	DurationMinutes int    `json:"duration_minutes"`
	LocationType    string `json:"location_type"`
	HostName        string `json:"host_name"`
}

func (s *Service) activeEventType(ctx context.Context, slug string) (models.EventType, error) {
	et, err := s.store.GetEventTypeBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !et.IsActive) {
		return models.EventType{}, apperr.NotFound("event type not found")
	}
	if err != nil {
		return models.EventType{}, fmt.Errorf("load event type %q: %w", slug, err)
	}
	return et, nil
}

func (s *Service) host(ctx context.Context, et models.EventType) (models.User, error) {
	u, err := s.store.GetUser(ctx, et.UserID)
	if err != nil {
		return models.User{}, fmt.Errorf("load host of event type %d: %w", et.ID, err)
	}
	return u, nil
}

// Details returns what an invitee sees before picking a slot.
func (s *Service) Details(ctx context.Context, slug string) (PublicDetails, error) {
	et, err := s.activeEventType(ctx, slug)
	if err != nil {
		return PublicDetails{}, err
	}
	host, err := s.host(ctx, et)
	if err != nil {
		return PublicDetails{}, err
	}
	return PublicDetails{
		Name:            et.Name,
		Slug:            et.Slug,
		DurationMinutes: et.DurationMinutes,
		LocationType:    et.LocationType,
		HostName:        host.Email,
	}, nil
}

// Slots lists the free slots of the event type on date (YYYY-MM-DD in the
// system timezone).
func (s *Service) Slots(ctx context.Context, slug, date string) ([]availability.Interval, error) {
	et, err := s.activeEventType(ctx, slug)
	if err != nil {
		return nil, err
	}
	day, err := availability.ParseDate(date, s.loc)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidates(ctx, et, day)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []availability.Interval{}, nil
	}

	host, err := s.host(ctx, et)
	if err != nil {
		return nil, err
	}
	bounds := availability.DayBounds(day, s.loc)
	busy := s.externalBusy(ctx, host, bounds)

	booked, err := s.bookedIntervals(ctx, et, bounds)
	if err != nil {
		return nil, err
	}
	busy = append(busy, booked...)

	return availability.FilterAvailable(candidates, busy, s.loc), nil
}

func (s *Service) candidates(ctx context.Context, et models.EventType, day time.Time) ([]availability.Interval, error) {
	rules, err := s.store.RulesForWeekday(ctx, et.ID, availability.Weekday(day.In(s.loc)))
	if err != nil {
		return nil, fmt.Errorf("load rules of event type %d: %w", et.ID, err)
	}
	slots, err := availability.GenerateSlots(et, rules, day, s.now(), s.loc)
	if err != nil {
		return nil, fmt.Errorf("generate slots: %w", err)
	}
	return slots, nil
}

// externalBusy asks the calendar for busy time within iv. Any failure is
// logged and treated as no busy time.
func (s *Service) externalBusy(ctx context.Context, host models.User, iv availability.Interval) []availability.Interval {
	if s.busy == nil || !host.HasCalendar() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	busy, err := s.busy.BusyIntervals(ctx, host, iv.Start, iv.End)
	if err != nil {
		logger.Warn("external busy time unavailable, continuing without it", "host_id", host.ID, "error", err)
		return nil
	}
	return busy
}

// bookedIntervals returns the event type's own active bookings overlapping iv.
func (s *Service) bookedIntervals(ctx context.Context, et models.EventType, iv availability.Interval) ([]availability.Interval, error) {
	bookings, err := s.store.OverlappingBookings(ctx, et.ID, iv.Start, iv.End)
	if err != nil {
		return nil, fmt.Errorf("load bookings of event type %d: %w", et.ID, err)
	}
	out := make([]availability.Interval, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, availability.Interval{Start: b.Start, End: b.End})
	}
	return out, nil
}

func (s *Service) validateRequest(et models.EventType, req BookRequest) error {
	if strings.TrimSpace(req.InviteeName) == "" {
		return apperr.Validation("invitee_name is required")
	}
	if err := s.validate.Var(req.InviteeEmail, "required,email"); err != nil {
		return apperr.Validation("invitee_email is not a valid email address")
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return apperr.Validation("start_datetime and end_datetime are required")
	}
	if !req.Start.Before(req.End) {
		return apperr.Validation("start_datetime must be before end_datetime")
	}
	if req.End.Sub(req.Start) != et.Duration() {
		return apperr.Validation("booking must last exactly %d minutes", et.DurationMinutes)
	}
	return nil
}

// Book admits the request if the interval is an offered slot that is free
// both in the host's calendar and in this system. The booking is stored as
// pending and becomes confirmed once the calendar event exists. A failed
// calendar write leaves it pending and is not reported to the caller.
func (s *Service) Book(ctx context.Context, slug string, req BookRequest) (models.Booking, error) {
	et, err := s.activeEventType(ctx, slug)
	if err != nil {
		return models.Booking{}, err
	}
	if err := s.validateRequest(et, req); err != nil {
		return models.Booking{}, err
	}

	iv := availability.Interval{Start: req.Start, End: req.End}.In(s.loc)
	offered, err := s.candidates(ctx, et, iv.Start)
	if err != nil {
		return models.Booking{}, err
	}
	if !availability.Contains(offered, iv) {
		return models.Booking{}, apperr.Validation("slot not offered")
	}

	host, err := s.host(ctx, et)
	if err != nil {
		return models.Booking{}, err
	}
	if availability.OverlapsAny(iv, s.externalBusy(ctx, host, iv)) {
		return models.Booking{}, apperr.Conflict("slot is no longer available")
	}

	b := models.Booking{
		EventTypeID:  et.ID,
		Start:        iv.Start.UTC(),
		End:          iv.End.UTC(),
		InviteeName:  strings.TrimSpace(req.InviteeName),
		InviteeEmail: strings.TrimSpace(req.InviteeEmail),
		InviteeNote:  req.InviteeNote,
		Status:       models.BookingPending,
	}

	unlock := s.locks.Lock(et.ID)
	err = s.store.CreateBookingExclusive(ctx, &b)
	unlock()
	if errors.Is(err, store.ErrOverlap) {
		return models.Booking{}, apperr.Conflict("slot is already booked")
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	logger.Info("booking created", "booking_id", b.ID, "event_type_id", et.ID, "start", iv.Start)

	s.sync(ctx, host, et, &b)

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, host.ID, iv.Start); err != nil {
			logger.Warn("failed to invalidate busy cache", "host_id", host.ID, "error", err)
		}
	}

	b.Start, b.End = b.Start.In(s.loc), b.End.In(s.loc)
	return b, nil
}

// sync pushes b to the host's calendar and marks it confirmed on success.
func (s *Service) sync(ctx context.Context, host models.User, et models.EventType, b *models.Booking) {
	if s.events == nil || !host.HasCalendar() {
		logger.Warn("calendar sync skipped, host has no calendar", "booking_id", b.ID, "host_id", host.ID)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	externalID, err := s.events.CreateEvent(callCtx, host, et, *b)
	cancel()
	if err != nil {
		logger.Warn("calendar sync failed, booking stays pending", "booking_id", b.ID, "error", err)
		return
	}

	if err := s.store.UpdateBookingSync(ctx, b.ID, models.BookingConfirmed, &externalID); err != nil {
		logger.Error("failed to record calendar event", "booking_id", b.ID, "gcal_event_id", externalID, "error", err)
		return
	}
	b.Status = models.BookingConfirmed
	b.ExternalEventID = &externalID
}
