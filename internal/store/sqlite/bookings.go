package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"booking-scheduler/internal/models"
	"booking-scheduler/internal/store"
)

const bookingColumns = `id, event_type_id, start_at, end_at, invitee_name, invitee_email, invitee_note,
       status, gcal_event_id, created_at`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanBooking(row scanner) (models.Booking, error) {
	var b models.Booking
	var id, status string
	var start, end, created int64
	var note, external sql.NullString
	err := row.Scan(&id, &b.EventTypeID, &start, &end, &b.InviteeName, &b.InviteeEmail,
		&note, &status, &external, &created)
	if err != nil {
		return models.Booking{}, err
	}
	if b.ID, err = uuid.Parse(id); err != nil {
		return models.Booking{}, err
	}
	b.Start, b.End, b.CreatedAt = fromUnix(start), fromUnix(end), fromUnix(created)
	b.InviteeNote = ptrFromNullString(note)
	b.ExternalEventID = ptrFromNullString(external)
	b.Status = models.BookingStatus(status)
	return b, nil
}

func findOverlapping(ctx context.Context, q queryRower, eventTypeID int64, start, end time.Time) (*models.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings
	      WHERE event_type_id = ? AND status IN ('pending', 'confirmed')
	        AND start_at < ? AND end_at > ?
	      ORDER BY start_at LIMIT 1`, eventTypeID, unix(end), unix(start)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) CreateBookingExclusive(ctx context.Context, b *models.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

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
	b.CreatedAt = time.Now().UTC().Truncate(time.Second)
	_, err = tx.ExecContext(ctx, `INSERT INTO bookings
	      (id, event_type_id, start_at, end_at, invitee_name, invitee_email, invitee_note, status, gcal_event_id, created_at)
	      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID.String(), b.EventTypeID, unix(b.Start), unix(b.End), b.InviteeName, b.InviteeEmail,
		nullString(b.InviteeNote), string(b.Status), nullString(b.ExternalEventID), unix(b.CreatedAt))
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) OverlappingBookings(ctx context.Context, eventTypeID int64, start, end time.Time) ([]models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings
	      WHERE event_type_id = ? AND status IN ('pending', 'confirmed')
	        AND start_at < ? AND end_at > ?
	      ORDER BY start_at`, eventTypeID, unix(end), unix(start))
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (s *Store) UpdateBookingSync(ctx context.Context, id uuid.UUID, status models.BookingStatus, externalID *string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE bookings SET status = ?, gcal_event_id = ? WHERE id = ?`,
		string(status), nullString(externalID), id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (models.Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id.String()))
	return b, notFound(err)
}

func (s *Store) ListBookings(ctx context.Context, eventTypeID int64, from, to time.Time) ([]models.Booking, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if !from.IsZero() && !to.IsZero() {
		rows, err = s.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings
		      WHERE event_type_id = ? AND start_at >= ? AND start_at < ?
		      ORDER BY start_at`, eventTypeID, unix(from), unix(to))
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings
		      WHERE event_type_id = ?
		      ORDER BY start_at`, eventTypeID)
	}
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
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
