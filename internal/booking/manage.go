package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"booking-scheduler/internal/apperr"
	"booking-scheduler/internal/availability"
	"booking-scheduler/internal/models"
	"booking-scheduler/internal/store"
)

const (
	defaultMinNotice    = 60
	defaultLocationType = "online"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// EventTypeInput carries create and update fields. On update nil fields
// keep their stored value.
type EventTypeInput struct {
	Name             *string `json:"name"`
	Slug             *string `json:"slug"`
	DurationMinutes  *int    `json:"duration_minutes"`
	BufferMinutes    *int    `json:"buffer_minutes"`
	MinNoticeMinutes *int    `json:"min_notice_minutes"`
	LocationType     *string `json:"location_type"`
	LocationValue    *string `json:"location_value"`
	IsActive         *bool   `json:"is_active"`
}

func (in EventTypeInput) apply(et *models.EventType) {
	if in.Name != nil {
		et.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		et.Slug = strings.TrimSpace(*in.Slug)
	}
	if in.DurationMinutes != nil {
		et.DurationMinutes = *in.DurationMinutes
	}
	if in.BufferMinutes != nil {
		et.BufferMinutes = *in.BufferMinutes
	}
	if in.MinNoticeMinutes != nil {
		et.MinNoticeMinutes = *in.MinNoticeMinutes
	}
	if in.LocationType != nil {
		et.LocationType = strings.TrimSpace(*in.LocationType)
	}
	if in.LocationValue != nil {
		et.LocationValue = in.LocationValue
	}
	if in.IsActive != nil {
		et.IsActive = *in.IsActive
	}
}

func validateEventType(et models.EventType) error {
	switch {
	case et.Name == "":
		return apperr.Validation("name is required")
	case !slugPattern.MatchString(et.Slug):
		return apperr.Validation("slug must be lowercase letters, digits and hyphens")
	case et.DurationMinutes <= 0:
		return apperr.Validation("duration_minutes must be positive")
	case et.BufferMinutes < 0:
		return apperr.Validation("buffer_minutes must not be negative")
	case et.MinNoticeMinutes < 0:
		return apperr.Validation("min_notice_minutes must not be negative")
	case et.LocationType == "":
		return apperr.Validation("location_type is required")
	}
	return nil
}

func translateStoreErr(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, store.ErrDuplicateSlug):
		return apperr.Conflict("slug already in use")
	case errors.Is(err, store.ErrHasBookings):
		return apperr.Conflict("event type has bookings and cannot be deleted")
	}
	return fmt.Errorf("%s: %w", what, err)
}

// CreateEventType creates an event type owned by userID.
func (s *Service) CreateEventType(ctx context.Context, userID int64, in EventTypeInput) (models.EventType, error) {
	et := models.EventType{
		UserID:           userID,
		MinNoticeMinutes: defaultMinNotice,
		LocationType:     defaultLocationType,
		IsActive:         true,
	}
	in.apply(&et)
	if err := validateEventType(et); err != nil {
		return models.EventType{}, err
	}
	if err := s.store.CreateEventType(ctx, &et); err != nil {
		return models.EventType{}, translateStoreErr(err, "event type")
	}
	return et, nil
}

func (s *Service) ListEventTypes(ctx context.Context, userID int64) ([]models.EventType, error) {
	list, err := s.store.ListEventTypes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	if list == nil {
		list = []models.EventType{}
	}
	return list, nil
}

// OwnedEventType loads an event type and hides it from anyone but its owner.
func (s *Service) OwnedEventType(ctx context.Context, userID, id int64) (models.EventType, error) {
	et, err := s.store.GetEventType(ctx, id)
	if err != nil {
		return models.EventType{}, translateStoreErr(err, "event type")
	}
	if et.UserID != userID {
		return models.EventType{}, apperr.NotFound("event type not found")
	}
	return et, nil
}

func (s *Service) UpdateEventType(ctx context.Context, userID, id int64, in EventTypeInput) (models.EventType, error) {
	et, err := s.OwnedEventType(ctx, userID, id)
	if err != nil {
		return models.EventType{}, err
	}
	in.apply(&et)
	if err := validateEventType(et); err != nil {
		return models.EventType{}, err
	}
	if err := s.store.UpdateEventType(ctx, &et); err != nil {
		return models.EventType{}, translateStoreErr(err, "event type")
	}
	return et, nil
}

func (s *Service) DeleteEventType(ctx context.Context, userID, id int64) error {
	if _, err := s.OwnedEventType(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteEventType(ctx, id); err != nil {
		return translateStoreErr(err, "event type")
	}
	return nil
}

// ReplaceRules swaps the whole weekly schedule of an event type. Invalid
// rules reject the request before anything is written.
func (s *Service) ReplaceRules(ctx context.Context, userID, id int64, rules []models.AvailabilityRule) ([]models.AvailabilityRule, error) {
	if _, err := s.OwnedEventType(ctx, userID, id); err != nil {
		return nil, err
	}

	normalized := make([]models.AvailabilityRule, 0, len(rules))
	for i, r := range rules {
		n, err := availability.NormalizeRule(r)
		if err != nil {
			return nil, apperr.Validation("rule %d: %s", i, apperr.Public(err))
		}
		normalized = append(normalized, n)
	}

	saved, err := s.store.ReplaceRules(ctx, id, normalized)
	if err != nil {
		return nil, translateStoreErr(err, "availability rules")
	}
	return saved, nil
}

func (s *Service) ListRules(ctx context.Context, userID, id int64) ([]models.AvailabilityRule, error) {
	if _, err := s.OwnedEventType(ctx, userID, id); err != nil {
		return nil, err
	}
	rules, err := s.store.ListRules(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	if rules == nil {
		rules = []models.AvailabilityRule{}
	}
	return rules, nil
}

// ListBookings returns the event type's bookings starting in [from, to).
// Zero bounds leave that side open.
func (s *Service) ListBookings(ctx context.Context, userID, id int64, from, to time.Time) ([]models.Booking, error) {
	if _, err := s.OwnedEventType(ctx, userID, id); err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, apperr.Validation("from must be before to")
	}
	if from.IsZero() != to.IsZero() {
		if from.IsZero() {
			from = time.Unix(0, 0)
		} else {
			to = from.AddDate(100, 0, 0)
		}
	}

	bookings, err := s.store.ListBookings(ctx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	for i := range bookings {
		bookings[i].Start = bookings[i].Start.In(s.loc)
		bookings[i].End = bookings[i].End.In(s.loc)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}
