package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"clubhub/client/internal/httpclient"
	"clubhub/client/internal/models"
	"clubhub/client/internal/security"
	"clubhub/client/internal/session"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrForbidden        = errors.New("admin role required")
)

// Sessions is the part of the session manager the API client needs.
type Sessions interface {
	Snapshot() session.Snapshot
	Refresh(ctx context.Context, snap session.Snapshot) error
	SignOutIf(ctx context.Context, snap session.Snapshot) bool
}

// Client calls the directory API with the access token of the current
// session, read at call time.
type Client struct {
	api      *httpclient.Client
	sessions Sessions
	logger   zerolog.Logger
}

func New(api *httpclient.Client, sessions Sessions, logger zerolog.Logger) *Client {
	return &Client{api: api, sessions: sessions, logger: logger}
}

func (c *Client) ListClubs(ctx context.Context) ([]models.Club, error) {
	var out struct {
		Clubs []models.Club `json:"clubs"`
	}
	if err := c.call(ctx, false, http.MethodGet, "/clubs", nil, &out); err != nil {
		return nil, err
	}
	return out.Clubs, nil
}

func (c *Client) GetClub(ctx context.Context, id string) (*models.Club, error) {
	var out models.Club
	if err := c.call(ctx, false, http.MethodGet, "/clubs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	var out struct {
		Events []models.Event `json:"events"`
	}
	if err := c.call(ctx, false, http.MethodGet, "/events", nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var out models.Event
	if err := c.call(ctx, false, http.MethodGet, "/events/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type activeRequest struct {
	IsActive bool `json:"isActive"`
}

func (c *Client) SetClubActive(ctx context.Context, id string, active bool) (*models.Club, error) {
	var out models.Club
	path := "/admin/clubs/" + url.PathEscape(id) + "/active"
	if err := c.call(ctx, true, http.MethodPatch, path, activeRequest{IsActive: active}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetEventActive(ctx context.Context, id string, active bool) (*models.Event, error) {
	var out models.Event
	path := "/admin/events/" + url.PathEscape(id) + "/active"
	if err := c.call(ctx, true, http.MethodPatch, path, activeRequest{IsActive: active}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call sends the request with the current access token. An expired token
// is refreshed first, and a 401 gets one refresh and one retry; only a
// rejection of the session that is still current signs it out.
func (c *Client) call(ctx context.Context, admin bool, method, path string, in, out any) error {
	snap := c.sessions.Snapshot()
	if !snap.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if admin && !snap.IsAdmin() {
		return ErrForbidden
	}

	if expired(snap) {
		fresh, err := c.renew(ctx, snap)
		if err != nil {
			return err
		}
		snap = fresh
	}

	err := c.api.Do(ctx, method, path, snap.User.AccessToken, in, out)
	if httpclient.IsStatus(err, http.StatusUnauthorized) {
		fresh, rerr := c.renew(ctx, snap)
		if rerr != nil {
			return fmt.Errorf("%w: %w", rerr, err)
		}
		snap = fresh
		err = c.api.Do(ctx, method, path, snap.User.AccessToken, in, out)
	}

	switch {
	case err == nil:
		return nil
	case httpclient.IsStatus(err, http.StatusUnauthorized):
		if c.sessions.SignOutIf(ctx, snap) {
			c.logger.Warn().Str("path", path).Msg("api rejected the session, signed out")
		}
		return fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	case httpclient.IsStatus(err, http.StatusForbidden):
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	default:
		return err
	}
}

// renew refreshes snap through the manager and returns the session that
// is current afterwards.
func (c *Client) renew(ctx context.Context, snap session.Snapshot) (session.Snapshot, error) {
	if err := c.sessions.Refresh(ctx, snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	fresh := c.sessions.Snapshot()
	if !fresh.IsAuthenticated() {
		return session.Snapshot{}, ErrNotAuthenticated
	}
	return fresh, nil
}

func expired(snap session.Snapshot) bool {
	claims, err := security.DecodeClaims(snap.User.AccessToken)
	return err == nil && !claims.ExpiresAt.After(time.Now())
}
