package postgres

import (
	"context"
	"time"

	"booking-scheduler/internal/models"
	"booking-scheduler/internal/store"
)

func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	q := `INSERT INTO users (email, google_access_token, google_refresh_token, google_token_expiry)
	      VALUES ($1, $2, $3, $4)
	      ON CONFLICT (email) DO UPDATE SET
	          google_access_token = EXCLUDED.google_access_token,
	          google_refresh_token = CASE WHEN EXCLUDED.google_refresh_token = ''
	                                      THEN users.google_refresh_token
	                                      ELSE EXCLUDED.google_refresh_token END,
	          google_token_expiry = EXCLUDED.google_token_expiry
	      RETURNING id, google_refresh_token, created_at`
	return s.DB.QueryRow(ctx, q,
		u.Email, u.GoogleAccessToken, u.GoogleRefreshToken, u.GoogleTokenExpiry,
	).Scan(&u.ID, &u.GoogleRefreshToken, &u.CreatedAt)
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	q := `SELECT id, email, google_access_token, google_refresh_token, google_token_expiry, created_at
	      FROM users WHERE id = $1`
	var u models.User
	err := s.DB.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.GoogleAccessToken, &u.GoogleRefreshToken, &u.GoogleTokenExpiry, &u.CreatedAt)
	if err != nil {
		return models.User{}, notFound(err)
	}
	return u, nil
}

func (s *Store) UpdateUserTokens(ctx context.Context, id int64, access, refresh string, expiry *time.Time) error {
	q := `UPDATE users
	      SET google_access_token = $1,
	          google_refresh_token = CASE WHEN $2 = '' THEN google_refresh_token ELSE $2 END,
	          google_token_expiry = $3
	      WHERE id = $4`
	tag, err := s.DB.Exec(ctx, q, access, refresh, expiry, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
