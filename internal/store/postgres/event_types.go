package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"booking-scheduler/internal/models"
	"booking-scheduler/internal/store"
)

const eventTypeColumns = `id, user_id, name, slug, duration_minutes, buffer_minutes, min_notice_minutes,
       location_type, location_value, is_active, created_at, updated_at`

func scanEventType(row pgx.Row) (models.EventType, error) {
	var et models.EventType
	err := row.Scan(&et.ID, &et.UserID, &et.Name, &et.Slug, &et.DurationMinutes, &et.BufferMinutes,
		&et.MinNoticeMinutes, &et.LocationType, &et.LocationValue, &et.IsActive, &et.CreatedAt, &et.UpdatedAt)
	return et, err
}

func (s *Store) CreateEventType(ctx context.Context, et *models.EventType) error {
	now := time.Now().UTC()
	q := `INSERT INTO event_types
	      (user_id, name, slug, duration_minutes, buffer_minutes, min_notice_minutes,
	       location_type, location_value, is_active, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10) RETURNING id`
	err := s.DB.QueryRow(ctx, q,
		et.UserID, et.Name, et.Slug, et.DurationMinutes, et.BufferMinutes, et.MinNoticeMinutes,
		et.LocationType, et.LocationValue, et.IsActive, now,
	).Scan(&et.ID)
	if isUniqueViolation(err) {
		return store.ErrDuplicateSlug
	}
	if err != nil {
		return err
	}
	et.CreatedAt, et.UpdatedAt = now, now
	return nil
}

func (s *Store) GetEventType(ctx context.Context, id int64) (models.EventType, error) {
	et, err := scanEventType(s.DB.QueryRow(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE id = $1`, id))
	return et, notFound(err)
}

func (s *Store) GetEventTypeBySlug(ctx context.Context, slug string) (models.EventType, error) {
	et, err := scanEventType(s.DB.QueryRow(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE slug = $1`, slug))
	return et, notFound(err)
}

func (s *Store) ListEventTypes(ctx context.Context, userID int64) ([]models.EventType, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE user_id = $1 ORDER BY id`, userID)
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
	now := time.Now().UTC()
	q := `UPDATE event_types
	      SET name=$1, slug=$2, duration_minutes=$3, buffer_minutes=$4, min_notice_minutes=$5,
	          location_type=$6, location_value=$7, is_active=$8, updated_at=$9
	      WHERE id=$10`
	tag, err := s.DB.Exec(ctx, q,
		et.Name, et.Slug, et.DurationMinutes, et.BufferMinutes, et.MinNoticeMinutes,
		et.LocationType, et.LocationValue, et.IsActive, now, et.ID)
	if isUniqueViolation(err) {
		return store.ErrDuplicateSlug
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	et.UpdatedAt = now
	return nil
}

func (s *Store) DeleteEventType(ctx context.Context, id int64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var bookings int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE event_type_id = $1`, id).Scan(&bookings); err != nil {
		return err
	}
	if bookings > 0 {
		return store.ErrHasBookings
	}

	tag, err := tx.Exec(ctx, `DELETE FROM event_types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return tx.Commit(ctx)
}
