package sqlite

import (
	"context"
	"database/sql"
	"time"

	"booking-scheduler/internal/models"
	"booking-scheduler/internal/store"
)

const eventTypeColumns = `id, user_id, name, slug, duration_minutes, buffer_minutes, min_notice_minutes,
       location_type, location_value, is_active, created_at, updated_at`

func scanEventType(row scanner) (models.EventType, error) {
	var et models.EventType
	var location sql.NullString
	var created, updated int64
	err := row.Scan(&et.ID, &et.UserID, &et.Name, &et.Slug, &et.DurationMinutes, &et.BufferMinutes,
		&et.MinNoticeMinutes, &et.LocationType, &location, &et.IsActive, &created, &updated)
	if err != nil {
		return models.EventType{}, err
	}
	et.LocationValue = ptrFromNullString(location)
	et.CreatedAt = fromUnix(created)
	et.UpdatedAt = fromUnix(updated)
	return et, nil
}

func (s *Store) CreateEventType(ctx context.Context, et *models.EventType) error {
	now := time.Now().UTC().Truncate(time.Second)
	q := `INSERT INTO event_types
	      (user_id, name, slug, duration_minutes, buffer_minutes, min_notice_minutes,
	       location_type, location_value, is_active, created_at, updated_at)
	      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		et.UserID, et.Name, et.Slug, et.DurationMinutes, et.BufferMinutes, et.MinNoticeMinutes,
		et.LocationType, nullString(et.LocationValue), et.IsActive, unix(now), unix(now))
	if isUniqueViolation(err) {
		return store.ErrDuplicateSlug
	}
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	et.ID = id
	et.CreatedAt, et.UpdatedAt = now, now
	return nil
}

func (s *Store) GetEventType(ctx context.Context, id int64) (models.EventType, error) {
	et, err := scanEventType(s.db.QueryRowContext(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE id = ?`, id))
	return et, notFound(err)
}

func (s *Store) GetEventTypeBySlug(ctx context.Context, slug string) (models.EventType, error) {
	et, err := scanEventType(s.db.QueryRowContext(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE slug = ?`, slug))
	return et, notFound(err)
}

func (s *Store) ListEventTypes(ctx context.Context, userID int64) ([]models.EventType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EventType
	for rows.Next() {
		et, err := scanEventType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEventType(ctx context.Context, et *models.EventType) error {
	now := time.Now().UTC().Truncate(time.Second)
	q := `UPDATE event_types
	      SET name=?, slug=?, duration_minutes=?, buffer_minutes=?, min_notice_minutes=?,
	          location_type=?, location_value=?, is_active=?, updated_at=?
	      WHERE id=?`
	res, err := s.db.ExecContext(ctx, q,
		et.Name, et.Slug, et.DurationMinutes, et.BufferMinutes, et.MinNoticeMinutes,
		et.LocationType, nullString(et.LocationValue), et.IsActive, unix(now), et.ID)
	if isUniqueViolation(err) {
		return store.ErrDuplicateSlug
	}
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
	et.UpdatedAt = now
	return nil
}

func (s *Store) DeleteEventType(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var bookings int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM bookings WHERE event_type_id = ?`, id).Scan(&bookings); err != nil {
		return err
	}
	if bookings > 0 {
		return store.ErrHasBookings
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM event_types WHERE id = ?`, id)
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
	return tx.Commit()
}
