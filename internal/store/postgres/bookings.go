package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"booking-scheduler/internal/models"
	"booking-scheduler/internal/store"
)

const bookingColumns = `id, event_type_id, start_at, end_at, invitee_name, invitee_email, invitee_note,
       status, gcal_event_id, created_at`

func scanBooking(row pgx.Row) (models.Booking, error) {
	var b models.Booking
	var status string
	err := row.Scan(&b.ID, &b.EventTypeID, &b.Start, &b.End, &b.InviteeName, &b.InviteeEmail,
		&b.InviteeNote, &status, &b.ExternalEventID, &b.CreatedAt)
	b.Status = models.BookingStatus(status)
	return b, err
}

func findOverlapping(ctx context.Context, q querier, eventTypeID int64, start, end time.Time) (*models.Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings
	      WHERE event_type_id = $1 AND status IN ('pending', 'confirmed')
	        AND start_at < $3 AND end_at > $2
	      ORDER BY start_at LIMIT 1`, eventTypeID, start.UTC(), end.UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBookingExclusive serializes writers of one event type with a
// transaction-scoped advisory lock keyed on the event type id.
func (s *Store) CreateBookingExclusive(ctx context.Context, b *models.Booking) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, b.EventTypeID); err != nil {
		return err
	}

	existing, err := findOverlapping(ctx, tx, b.EventTypeID, b.Start, b.End)
	if err != nil {
		return err
	}
	if existing != nil {
		return store.ErrOverlap
	}

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	err = tx.QueryRow(ctx, `INSERT INTO bookings
	      (id, event_type_id, start_at, end_at, invitee_name, invitee_email, invitee_note, status, gcal_event_id, created_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	      RETURNING created_at`,
		b.ID, b.EventTypeID, b.Start.UTC(), b.End.UTC(), b.InviteeName, b.InviteeEmail, b.InviteeNote,
		string(b.Status), b.ExternalEventID,
	).Scan(&b.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) OverlappingBookings(ctx context.Context, eventTypeID int64, start, end time.Time) ([]models.Booking, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
	      WHERE event_type_id = $1 AND status IN ('pending', 'confirmed')
	        AND start_at < $3 AND end_at > $2
	      ORDER BY start_at`, eventTypeID, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (s *Store) UpdateBookingSync(ctx context.Context, id uuid.UUID, status models.BookingStatus, externalID *string) error {
	tag, err := s.DB.Exec(ctx, `UPDATE bookings SET status = $1, gcal_event_id = $2 WHERE id = $3`,
		string(status), externalID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (models.Booking, error) {
	b, err := scanBooking(s.DB.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	return b, notFound(err)
}

func (s *Store) ListBookings(ctx context.Context, eventTypeID int64, from, to time.Time) ([]models.Booking, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if !from.IsZero() && !to.IsZero() {
		rows, err = s.DB.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		      WHERE event_type_id = $1 AND start_at >= $2 AND start_at < $3
		      ORDER BY start_at`, eventTypeID, from.UTC(), to.UTC())
	} else {
		rows, err = s.DB.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		      WHERE event_type_id = $1
		      ORDER BY start_at`, eventTypeID)
	}
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]models.Booking, error) {
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
