package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-scheduler/internal/apperr"
	"booking-scheduler/internal/models"
)

func ptr[T any](v T) *T {
	return &v
}

func TestCreateEventType_Defaults(t *testing.T) {
	f := setup(t, nil, nil)

	et, err := f.svc.CreateEventType(context.Background(), f.host.ID, EventTypeInput{
		Name: ptr("Deep dive"), Slug: ptr("deep-dive"), DurationMinutes: ptr(60),
	})
	require.NoError(t, err)
	assert.NotZero(t, et.ID)
	assert.Equal(t, f.host.ID, et.UserID)
	assert.Equal(t, 60, et.MinNoticeMinutes)
	assert.Equal(t, "online", et.LocationType)
	assert.True(t, et.IsActive)
}

func TestCreateEventType_Invalid(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   EventTypeInput
		want error
	}{
		{"missing name", EventTypeInput{Slug: ptr("x"), DurationMinutes: ptr(30)}, apperr.ErrValidation},
		{"bad slug", EventTypeInput{Name: ptr("X"), Slug: ptr("Not A Slug"), DurationMinutes: ptr(30)}, apperr.ErrValidation},
		{"zero duration", EventTypeInput{Name: ptr("X"), Slug: ptr("x"), DurationMinutes: ptr(0)}, apperr.ErrValidation},
		{"negative buffer", EventTypeInput{Name: ptr("X"), Slug: ptr("x"), DurationMinutes: ptr(30), BufferMinutes: ptr(-5)}, apperr.ErrValidation},
		{"duplicate slug", EventTypeInput{Name: ptr("X"), Slug: ptr("intro"), DurationMinutes: ptr(30)}, apperr.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateEventType(ctx, f.host.ID, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEventTypes_OwnerOnly(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	other := models.User{Email: "other@example.com"}
	require.NoError(t, f.store.UpsertUser(ctx, &other))

	_, err := f.svc.OwnedEventType(ctx, other.ID, f.et.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.UpdateEventType(ctx, other.ID, f.et.ID, EventTypeInput{Name: ptr("hijack")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteEventType(ctx, other.ID, f.et.ID), apperr.ErrNotFound)
	_, err = f.svc.ListRules(ctx, other.ID, f.et.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := f.svc.ListEventTypes(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestUpdateEventType_Partial(t *testing.T) {
	f := setup(t, nil, nil)

	updated, err := f.svc.UpdateEventType(context.Background(), f.host.ID, f.et.ID, EventTypeInput{
		BufferMinutes: ptr(0), IsActive: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Intro call", updated.Name)
	assert.Equal(t, 30, updated.DurationMinutes)
	assert.Equal(t, 0, updated.BufferMinutes)
	assert.False(t, updated.IsActive)
}

func TestDeleteEventType(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	spare, err := f.svc.CreateEventType(ctx, f.host.ID, EventTypeInput{Name: ptr("Spare"), Slug: ptr("spare"), DurationMinutes: ptr(15)})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteEventType(ctx, f.host.ID, spare.ID))
	_, err = f.svc.OwnedEventType(ctx, f.host.ID, spare.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Book(ctx, "intro", request(mondayAt(9, 0)))
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.DeleteEventType(ctx, f.host.ID, f.et.ID), apperr.ErrConflict)
}

func TestReplaceRules(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	saved, err := f.svc.ReplaceRules(ctx, f.host.ID, f.et.ID, []models.AvailabilityRule{
		{Weekday: 0, StartTime: "9:00", EndTime: "12:00"},
		{Weekday: 4, StartTime: "14:00", EndTime: "18:00"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "09:00", saved[0].StartTime)

	_, err = f.svc.ReplaceRules(ctx, f.host.ID, f.et.ID, []models.AvailabilityRule{
		{Weekday: 1, StartTime: "09:00", EndTime: "10:00"},
		{Weekday: 1, StartTime: "11:00", EndTime: "10:00"},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	rules, err := f.svc.ListRules(ctx, f.host.ID, f.et.ID)
	require.NoError(t, err)
	assert.Len(t, rules, 2, "a rejected replace leaves the previous schedule")

	_, err = f.svc.ReplaceRules(ctx, f.host.ID, f.et.ID, []models.AvailabilityRule{{Weekday: 7, StartTime: "09:00", EndTime: "10:00"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListBookings(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, "intro", request(mondayAt(9, 0)))
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, "intro", request(mondayAt(10, 30)))
	require.NoError(t, err)

	all, err := f.svc.ListBookings(ctx, f.host.ID, f.et.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, almaty, all[0].Start.Location())

	morning, err := f.svc.ListBookings(ctx, f.host.ID, f.et.ID, mondayAt(8, 0), mondayAt(10, 0))
	require.NoError(t, err)
	assert.Len(t, morning, 1)

	late, err := f.svc.ListBookings(ctx, f.host.ID, f.et.ID, mondayAt(10, 0), time.Time{})
	require.NoError(t, err)
	assert.Len(t, late, 1)

	_, err = f.svc.ListBookings(ctx, f.host.ID, f.et.ID, mondayAt(10, 0), mondayAt(9, 0))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
