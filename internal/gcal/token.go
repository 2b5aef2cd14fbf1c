package gcal

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"booking-scheduler/internal/logger"
)

// persistingSource writes a token back to the user record whenever the
// underlying source hands out a new access token.
type persistingSource struct {
	base   oauth2.TokenSource
	userID int64
	saver  TokenSaver

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last || s.saver == nil {
		return tok, nil
	}
	s.last = tok.AccessToken

	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		e := tok.Expiry
		expiry = &e
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.saver.UpdateUserTokens(ctx, s.userID, tok.AccessToken, tok.RefreshToken, expiry); err != nil {
		logger.Warn("failed to persist refreshed Google token", "user_id", s.userID, "error", err)
	}
	return tok, nil
}
