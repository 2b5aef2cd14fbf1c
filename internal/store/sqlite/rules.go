package sqlite

import (
	"context"
	"database/sql"

	"booking-scheduler/internal/models"
)

func collectRules(rows *sql.Rows) ([]models.AvailabilityRule, error) {
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
	rows, err := s.db.QueryContext(ctx, `SELECT id, event_type_id, weekday, start_time, end_time
	      FROM availability_rules WHERE event_type_id = ? ORDER BY weekday, start_time, id`, eventTypeID)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (s *Store) RulesForWeekday(ctx context.Context, eventTypeID int64, weekday int) ([]models.AvailabilityRule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, event_type_id, weekday, start_time, end_time
	      FROM availability_rules WHERE event_type_id = ? AND weekday = ? ORDER BY start_time, id`, eventTypeID, weekday)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (s *Store) ReplaceRules(ctx context.Context, eventTypeID int64, rules []models.AvailabilityRule) ([]models.AvailabilityRule, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM availability_rules WHERE event_type_id = ?`, eventTypeID); err != nil {
		return nil, err
	}

	saved := make([]models.AvailabilityRule, 0, len(rules))
	for _, r := range rules {
		r.EventTypeID = eventTypeID
		res, err := tx.ExecContext(ctx, `INSERT INTO availability_rules (event_type_id, weekday, start_time, end_time)
		      VALUES (?, ?, ?, ?)`, r.EventTypeID, r.Weekday, r.StartTime, r.EndTime)
		if err != nil {
			return nil, err
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return nil, err
		}
		saved = append(saved, r)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return saved, nil
}
