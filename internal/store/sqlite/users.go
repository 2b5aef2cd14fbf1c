package sqlite

import (
	"context"
	"database/sql"
	"time"

	"booking-scheduler/internal/models"
	"booking-scheduler/internal/store"
)

func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	q := `INSERT INTO users (email, google_access_token, google_refresh_token, google_token_expiry, created_at)
	      VALUES (?, ?, ?, ?, ?)
	      ON CONFLICT (email) DO UPDATE SET
	          google_access_token = excluded.google_access_token,
	          google_refresh_token = CASE WHEN excluded.google_refresh_token = ''
	                                      THEN users.google_refresh_token
	                                      ELSE excluded.google_refresh_token END,
	          google_token_expiry = excluded.google_token_expiry
	      RETURNING id, google_refresh_token, created_at`
	var created int64
	err := s.db.QueryRowContext(ctx, q,
		u.Email, u.GoogleAccessToken, u.GoogleRefreshToken, nullUnix(u.GoogleTokenExpiry), unix(time.Now()),
	).Scan(&u.ID, &u.GoogleRefreshToken, &created)
	if err != nil {
		return err
	}
	u.CreatedAt = fromUnix(created)
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	q := `SELECT id, email, google_access_token, google_refresh_token, google_token_expiry, created_at
	      FROM users WHERE id = ?`
	var u models.User
	var expiry sql.NullInt64
	var created int64
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.GoogleAccessToken, &u.GoogleRefreshToken, &expiry, &created)
	if err != nil {
		return models.User{}, notFound(err)
	}
	u.GoogleTokenExpiry = ptrFromNullUnix(expiry)
	u.CreatedAt = fromUnix(created)
	return u, nil
}

func (s *Store) UpdateUserTokens(ctx context.Context, id int64, access, refresh string, expiry *time.Time) error {
	q := `UPDATE users
	      SET google_access_token = ?,
	          google_refresh_token = CASE WHEN ? = '' THEN google_refresh_token ELSE ? END,
	          google_token_expiry = ?
	      WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, access, refresh, refresh, nullUnix(expiry), id)
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
