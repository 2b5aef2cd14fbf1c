package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"booking-scheduler/internal/models"
)

func collectRules(rows pgx.Rows) ([]models.AvailabilityRule, error) {
	defer rows.Close()

	var out []models.AvailabilityRule
	for rows.Next() {
		var r models.AvailabilityRule
		if err := rows.Scan(&r.ID, &r.EventTypeID, &r.Weekday, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListRules(ctx context.Context, eventTypeID int64) ([]models.AvailabilityRule, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, event_type_id, weekday, start_time, end_time
	      FROM availability_rules WHERE event_type_id = $1 ORDER BY weekday, start_time, id`, eventTypeID)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (s *Store) RulesForWeekday(ctx context.Context, eventTypeID int64, weekday int) ([]models.AvailabilityRule, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, event_type_id, weekday, start_time, end_time
	      FROM availability_rules WHERE event_type_id = $1 AND weekday = $2 ORDER BY start_time, id`, eventTypeID, weekday)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (s *Store) ReplaceRules(ctx context.Context, eventTypeID int64, rules []models.AvailabilityRule) ([]models.AvailabilityRule, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM availability_rules WHERE event_type_id = $1`, eventTypeID); err != nil {
		return nil, err
	}

	saved := make([]models.AvailabilityRule, 0, len(rules))
	for _, r := range rules {
		r.EventTypeID = eventTypeID
		err := tx.QueryRow(ctx, `INSERT INTO availability_rules (event_type_id, weekday, start_time, end_time)
		      VALUES ($1, $2, $3, $4) RETURNING id`,
			r.EventTypeID, r.Weekday, r.StartTime, r.EndTime,
		).Scan(&r.ID)
		if err != nil {
			return nil, err
		}
		saved = append(saved, r)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}
