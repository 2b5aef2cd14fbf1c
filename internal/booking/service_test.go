package booking

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"booking-scheduler/internal/apperr"
	"booking-scheduler/internal/availability"
	"booking-scheduler/internal/models"
	"booking-scheduler/internal/store/sqlite"
)

var (
	almaty = time.FixedZone("ALMT", 5*60*60)
	// a Sunday; the Monday after it carries the rules
	now    = time.Date(2030, 1, 6, 12, 0, 0, 0, almaty)
	monday = "2030-01-07"
)

func mondayAt(h, m int) time.Time {
	return time.Date(2030, 1, 7, h, m, 0, 0, almaty)
}

type mockBusy struct {
	mock.Mock
}

func (m *mockBusy) BusyIntervals(ctx context.Context, host models.User, from, to time.Time) ([]availability.Interval, error) {
	args := m.Called(ctx, host, from, to)
	if v := args.Get(0); v != nil {
		return v.([]availability.Interval), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) CreateEvent(ctx context.Context, host models.User, et models.EventType, b models.Booking) (string, error) {
	args := m.Called(ctx, host, et, b)
	return args.String(0), args.Error(1)
}

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) Invalidate(ctx context.Context, hostID int64, day time.Time) error {
	return m.Called(ctx, hostID, day).Error(0)
}

type fixture struct {
	svc   *Service
	store *sqlite.Store
	host  models.User
	et    models.EventType
}

func setup(t *testing.T, busy BusyResolver, events EventCreator, opts ...Option) fixture {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "booking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.Migrate(ctx, nil)
	require.NoError(t, err)

	host := models.User{Email: "host@example.com", GoogleAccessToken: "access", GoogleRefreshToken: "refresh"}
	require.NoError(t, st.UpsertUser(ctx, &host))

	et := models.EventType{
		UserID: host.ID, Name: "Intro call", Slug: "intro",
		DurationMinutes: 30, BufferMinutes: 15, MinNoticeMinutes: 60,
		LocationType: "online", IsActive: true,
	}
	require.NoError(t, st.CreateEventType(ctx, &et))
	_, err = st.ReplaceRules(ctx, et.ID, []models.AvailabilityRule{{Weekday: 0, StartTime: "09:00", EndTime: "11:00"}})
	require.NoError(t, err)

	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return fixture{
		svc:   NewService(st, busy, events, almaty, opts...),
		store: st,
		host:  host,
		et:    et,
	}
}

func request(start time.Time) BookRequest {
	return BookRequest{
		InviteeName:  "Jane Doe",
		InviteeEmail: "jane@example.com",
		Start:        start,
		End:          start.Add(30 * time.Minute),
	}
}

func starts(slots []availability.Interval) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.In(almaty).Format("15:04"))
	}
	return out
}

func TestSlots_FiltersExternalBusy(t *testing.T) {
	busy := new(mockBusy)
	f := setup(t, busy, nil)

	day := availability.DayBounds(mondayAt(0, 0), almaty)
	busy.On("BusyIntervals", mock.Anything, mock.Anything, day.Start, day.End).Return([]availability.Interval{
		{Start: time.Date(2030, 1, 7, 5, 0, 0, 0, time.UTC), End: time.Date(2030, 1, 7, 5, 20, 0, 0, time.UTC)},
	}, nil)

	slots, err := f.svc.Slots(context.Background(), "intro", monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:30"}, starts(slots))
	busy.AssertExpectations(t)
}

func TestSlots_BusyFailureFailsOpen(t *testing.T) {
	busy := new(mockBusy)
	f := setup(t, busy, nil)
	busy.On("BusyIntervals", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("deadline exceeded"))

	slots, err := f.svc.Slots(context.Background(), "intro", monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:45", "10:30"}, starts(slots))
}

func TestSlots_ExcludesOwnBookings(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, "intro", request(mondayAt(9, 45)))
	require.NoError(t, err)

	slots, err := f.svc.Slots(ctx, "intro", monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:30"}, starts(slots))
}

func TestSlots_ExcludesBookingLongerThanCurrentDuration(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	// booked as a two-hour meeting crossing midnight into Monday
	long := models.Booking{
		EventTypeID: f.et.ID, Start: mondayAt(-1, 0), End: mondayAt(1, 0),
		InviteeName: "Early Bird", InviteeEmail: "early@example.com", Status: models.BookingConfirmed,
	}
	require.NoError(t, f.store.CreateBookingExclusive(ctx, &long))

	et := f.et
	et.DurationMinutes = 30
	et.BufferMinutes = 0
	require.NoError(t, f.store.UpdateEventType(ctx, &et))
	_, err := f.store.ReplaceRules(ctx, et.ID, []models.AvailabilityRule{{Weekday: 0, StartTime: "00:00", EndTime: "02:00"}})
	require.NoError(t, err)

	slots, err := f.svc.Slots(ctx, "intro", monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"01:00", "01:30"}, starts(slots))

	_, err = f.svc.Book(ctx, "intro", request(mondayAt(0, 30)))
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSlots_Idempotent(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	first, err := f.svc.Slots(ctx, "intro", monday)
	require.NoError(t, err)
	second, err := f.svc.Slots(ctx, "intro", monday)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSlots_Errors(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Slots(ctx, "missing", monday)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Slots(ctx, "intro", "07/01/2030")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	et := f.et
	et.IsActive = false
	require.NoError(t, f.store.UpdateEventType(ctx, &et))
	_, err = f.svc.Slots(ctx, "intro", monday)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSlots_NoRulesForDay(t *testing.T) {
	f := setup(t, nil, nil)
	slots, err := f.svc.Slots(context.Background(), "intro", "2030-01-08")
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestDetails(t *testing.T) {
	f := setup(t, nil, nil)
	d, err := f.svc.Details(context.Background(), "intro")
	require.NoError(t, err)
	assert.Equal(t, PublicDetails{
		Name: "Intro call", Slug: "intro", DurationMinutes: 30, LocationType: "online", HostName: "host@example.com",
	}, d)
}

func TestBook_Confirmed(t *testing.T) {
	events := new(mockEvents)
	inv := new(mockInvalidator)
	f := setup(t, nil, events, WithBusyInvalidator(inv))
	ctx := context.Background()

	events.On("CreateEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("evt-1", nil).Once()
	inv.On("Invalidate", mock.Anything, f.host.ID, mock.Anything).Return(nil).Once()

	b, err := f.svc.Book(ctx, "intro", request(mondayAt(9, 0)))
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)
	require.NotNil(t, b.ExternalEventID)
	assert.Equal(t, "evt-1", *b.ExternalEventID)
	assert.True(t, b.Start.Equal(mondayAt(9, 0)))

	stored, err := f.store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, stored.Status)
	require.NotNil(t, stored.ExternalEventID)
	assert.Equal(t, "evt-1", *stored.ExternalEventID)

	events.AssertExpectations(t)
	inv.AssertExpectations(t)
}

func TestBook_SyncFailureLeavesPending(t *testing.T) {
	events := new(mockEvents)
	f := setup(t, nil, events)
	ctx := context.Background()

	events.On("CreateEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("503 backend error"))

	b, err := f.svc.Book(ctx, "intro", request(mondayAt(9, 0)))
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Nil(t, b.ExternalEventID)

	stored, err := f.store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, stored.Status)
	assert.Nil(t, stored.ExternalEventID)
}

func TestBook_NoCalendarStaysPending(t *testing.T) {
	events := new(mockEvents)
	f := setup(t, nil, events)
	ctx := context.Background()

	solo := models.User{Email: "solo@example.com"}
	require.NoError(t, f.store.UpsertUser(ctx, &solo))
	et := models.EventType{
		UserID: solo.ID, Name: "Chat", Slug: "chat",
		DurationMinutes: 30, MinNoticeMinutes: 60, LocationType: "online", IsActive: true,
	}
	require.NoError(t, f.store.CreateEventType(ctx, &et))
	_, err := f.store.ReplaceRules(ctx, et.ID, []models.AvailabilityRule{{Weekday: 0, StartTime: "09:00", EndTime: "10:00"}})
	require.NoError(t, err)

	b, err := f.svc.Book(ctx, "chat", request(mondayAt(9, 0)))
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
	events.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBook_DoubleBookingConflicts(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, "intro", request(mondayAt(9, 0)))
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, "intro", request(mondayAt(9, 0)))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// the neighbouring slot touches nothing and is still free
	_, err = f.svc.Book(ctx, "intro", request(mondayAt(9, 45)))
	assert.NoError(t, err)
}

func TestBook_ExternalBusyConflicts(t *testing.T) {
	busy := new(mockBusy)
	f := setup(t, busy, nil)

	busy.On("BusyIntervals", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]availability.Interval{
		{Start: mondayAt(9, 10), End: mondayAt(9, 20)},
	}, nil)

	_, err := f.svc.Book(context.Background(), "intro", request(mondayAt(9, 0)))
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestBook_ExternalBusyFailureFailsOpen(t *testing.T) {
	busy := new(mockBusy)
	f := setup(t, busy, nil)
	busy.On("BusyIntervals", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

	b, err := f.svc.Book(context.Background(), "intro", request(mondayAt(9, 0)))
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
}

func TestBook_Validation(t *testing.T) {
	f := setup(t, nil, nil)

	tests := []struct {
		name   string
		mutate func(*BookRequest)
	}{
		{"empty name", func(r *BookRequest) { r.InviteeName = "  " }},
		{"bad email", func(r *BookRequest) { r.InviteeEmail = "not-an-email" }},
		{"end before start", func(r *BookRequest) { r.Start, r.End = r.End, r.Start }},
		{"wrong duration", func(r *BookRequest) { r.End = r.Start.Add(45 * time.Minute) }},
		{"off grid", func(r *BookRequest) { r.Start, r.End = mondayAt(9, 15), mondayAt(9, 45) }},
		{"day without rules", func(r *BookRequest) { r.Start, r.End = r.Start.AddDate(0, 0, 1), r.End.AddDate(0, 0, 1) }},
		{"missing start", func(r *BookRequest) { r.Start = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(mondayAt(9, 0))
			tt.mutate(&req)
			_, err := f.svc.Book(context.Background(), "intro", req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestBook_InsideMinimumNotice(t *testing.T) {
	f := setup(t, nil, nil, WithClock(func() time.Time { return mondayAt(8, 30) }))

	_, err := f.svc.Book(context.Background(), "intro", request(mondayAt(9, 0)))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Book(context.Background(), "intro", request(mondayAt(9, 45)))
	assert.NoError(t, err)
}

func TestBook_UnknownOrInactive(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, "missing", request(mondayAt(9, 0)))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	et := f.et
	et.IsActive = false
	require.NoError(t, f.store.UpdateEventType(ctx, &et))
	_, err = f.svc.Book(ctx, "intro", request(mondayAt(9, 0)))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBook_ConcurrentRequestsAdmitOne(t *testing.T) {
	f := setup(t, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 12)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Book(context.Background(), "intro", request(mondayAt(10, 30)))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrConflict)
	}
	assert.Equal(t, 1, ok)

	bookings, err := f.store.ListBookings(context.Background(), f.et.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock(1)
	unlock()
	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
