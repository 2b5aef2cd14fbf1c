// Package gcal talks to a host's Google Calendar: free/busy lookups for slot
// filtering and event creation for confirmed bookings.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"booking-scheduler/internal/availability"
	"booking-scheduler/internal/models"
)

const (
	primaryCalendar = "primary"

	// freeBusyScope is not exported by the calendar package.
	freeBusyScope = "https://www.googleapis.com/auth/calendar.freebusy"

	defaultTimeout = 5 * time.Second
)

var ErrNoCalendar = errors.New("host has not connected a Google calendar")

// OAuthConfig builds the OAuth2 client configuration used both for the
// login flow and for refreshing host tokens.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"openid",
			"email",
			"profile",
			calendar.CalendarEventsScope,
			freeBusyScope,
		},
		Endpoint: google.Endpoint,
	}
}

// TokenSaver persists tokens that were refreshed while calling Google.
type TokenSaver interface {
	UpdateUserTokens(ctx context.Context, id int64, access, refresh string, expiry *time.Time) error
}

type Client struct {
	oauth      *oauth2.Config
	tokens     TokenSaver
	loc        *time.Location
	timeout    time.Duration
	endpoint   string
	httpClient *http.Client
}

type Option func(*Client)

// WithEndpoint overrides the Calendar API base URL.
func WithEndpoint(url string) Option {
	return func(c *Client) {
		c.endpoint = url
	}
}

// WithHTTPClient sets the transport used for API and token requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(cfg *oauth2.Config, tokens TokenSaver, loc *time.Location, opts ...Option) *Client {
	c := &Client{
		oauth:   cfg,
		tokens:  tokens,
		loc:     loc,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) service(ctx context.Context, host models.User) (*calendar.Service, error) {
	if !host.HasCalendar() {
		return nil, ErrNoCalendar
	}

	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}

	tok := &oauth2.Token{
		AccessToken:  host.GoogleAccessToken,
		RefreshToken: host.GoogleRefreshToken,
		TokenType:    "Bearer",
	}
	if host.GoogleTokenExpiry != nil {
		tok.Expiry = *host.GoogleTokenExpiry
	}

	ts := &persistingSource{
		base:   c.oauth.TokenSource(ctx, tok),
		last:   tok.AccessToken,
		userID: host.ID,
		saver:  c.tokens,
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

// BusyIntervals returns the busy periods of the host's primary calendar
// within [from, to), expressed in the system timezone.
func (c *Client) BusyIntervals(ctx context.Context, host models.User, from, to time.Time) ([]availability.Interval, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	svc, err := c.service(ctx, host)
	if err != nil {
		return nil, err
	}

	req := &calendar.FreeBusyRequest{
		TimeMin:  from.Format(time.RFC3339),
		TimeMax:  to.Format(time.RFC3339),
		TimeZone: c.loc.String(),
		Items:    []*calendar.FreeBusyRequestItem{{Id: primaryCalendar}},
	}
	resp, err := svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	cal, ok := resp.Calendars[primaryCalendar]
	if !ok {
		return nil, nil
	}
	if len(cal.Errors) > 0 {
		reasons := make([]string, 0, len(cal.Errors))
		for _, e := range cal.Errors {
			reasons = append(reasons, e.Reason)
		}
		return nil, fmt.Errorf("freebusy query: %s", strings.Join(reasons, ", "))
	}

	busy := make([]availability.Interval, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		start, err := availability.ParseTimestamp(p.Start, c.loc)
		if err != nil {
			return nil, fmt.Errorf("freebusy period start: %w", err)
		}
		end, err := availability.ParseTimestamp(p.End, c.loc)
		if err != nil {
			return nil, fmt.Errorf("freebusy period end: %w", err)
		}
		busy = append(busy, availability.Interval{Start: start, End: end})
	}
	return busy, nil
}

// CreateEvent inserts the booking into the host's primary calendar with the
// invitee as attendee and returns the Google event id.
func (c *Client) CreateEvent(ctx context.Context, host models.User, et models.EventType, b models.Booking) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	svc, err := c.service(ctx, host)
	if err != nil {
		return "", err
	}

	ev := &calendar.Event{
		Summary: fmt.Sprintf("%s - %s", et.Name, b.InviteeName),
		Start: &calendar.EventDateTime{
			DateTime: b.Start.In(c.loc).Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: b.End.In(c.loc).Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		Attendees: []*calendar.EventAttendee{
			{Email: b.InviteeEmail, DisplayName: b.InviteeName},
		},
	}
	if b.InviteeNote != nil {
		ev.Description = *b.InviteeNote
	}
	if et.LocationValue != nil {
		ev.Location = *et.LocationValue
	}

	created, err := svc.Events.Insert(primaryCalendar, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}
