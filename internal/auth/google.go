// Package auth logs hosts in with Google and issues the session tokens the
// management API accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"booking-scheduler/internal/apperr"
	"booking-scheduler/internal/models"
	"booking-scheduler/internal/store"
)

// GoogleLogin exchanges an authorization code for Google tokens, records the
// host and returns a session token.
type GoogleLogin struct {
	oauth    *oauth2.Config
	users    store.Users
	issuer   *TokenIssuer
	endpoint string
	client   *http.Client
}

type LoginOption func(*GoogleLogin)

// WithUserinfoEndpoint overrides the Google API base URL used for userinfo.
func WithUserinfoEndpoint(url string) LoginOption {
	return func(g *GoogleLogin) {
		g.endpoint = url
	}
}

// WithLoginHTTPClient sets the transport used for token and userinfo calls.
func WithLoginHTTPClient(hc *http.Client) LoginOption {
	return func(g *GoogleLogin) {
		g.client = hc
	}
}

func NewGoogleLogin(cfg *oauth2.Config, users store.Users, issuer *TokenIssuer, opts ...LoginOption) *GoogleLogin {
	g := &GoogleLogin{oauth: cfg, users: users, issuer: issuer}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AuthURL is the consent page URL. Consent is forced so Google returns a
// refresh token on every login.
func (g *GoogleLogin) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        models.User `json:"user"`
}

func (g *GoogleLogin) Login(ctx context.Context, code string) (LoginResult, error) {
	if code == "" {
		return LoginResult{}, apperr.Validation("authorization code required")
	}
	if g.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	}

	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return LoginResult{}, apperr.Validation("failed to exchange authorization code")
		}
		return LoginResult{}, fmt.Errorf("exchange code: %w", err)
	}

	email, err := g.email(ctx, tok)
	if err != nil {
		return LoginResult{}, err
	}

	u := models.User{
		Email:              email,
		GoogleAccessToken:  tok.AccessToken,
		GoogleRefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		u.GoogleTokenExpiry = &expiry
	}
	if err := g.users.UpsertUser(ctx, &u); err != nil {
		return LoginResult{}, fmt.Errorf("save user %s: %w", email, err)
	}

	session, err := g.issuer.Issue(u)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{AccessToken: session, TokenType: "bearer", User: u}, nil
}

func (g *GoogleLogin) email(ctx context.Context, tok *oauth2.Token) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := []option.ClientOption{option.WithHTTPClient(g.oauth.Client(ctx, tok))}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	svc, err := googleoauth.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Email == "" {
		return "", apperr.Validation("Google account has no email address")
	}
	return info.Email, nil
}
