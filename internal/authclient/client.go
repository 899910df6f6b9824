// Package authclient is the API client shell: it holds the token pair,
// attaches the bearer header, and transparently performs the single
// refresh-and-retry dance on 401 responses.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired means the refresh attempt failed and the stored
// credentials were discarded. The user has to log in again.
var ErrSessionExpired = errors.New("authclient: session expired")

// ErrNotAuthenticated means no login has happened yet.
var ErrNotAuthenticated = errors.New("authclient: not authenticated")

// User mirrors the server's user payload.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	FullName  string `json:"fullName"`
	Role      string `json:"role"`
	IsActive  bool   `json:"isActive"`
}

type sessionPayload struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

// Client is safe for concurrent use. Concurrent requests that all hit an
// expired access token converge on one refresh call.
type Client struct {
	baseURL string
	hc      *http.Client

	group    singleflight.Group
	onLogout func()

	mu      sync.Mutex
	access  string
	refresh string
	user    User
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithLogoutHandler registers a hook invoked when a failed refresh forces
// the client to drop its credentials.
func WithLogoutHandler(fn func()) Option {
	return func(c *Client) { c.onLogout = fn }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Login authenticates and stores the token pair for subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var payload sessionPayload
	if err := c.postJSON(ctx, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &payload); err != nil {
		return User{}, err
	}
	c.mu.Lock()
	c.access = payload.AccessToken
	c.refresh = payload.RefreshToken
	c.user = payload.User
	c.mu.Unlock()
	return payload.User, nil
}

// Logout tells the server to revoke the refresh token and drops local state.
// Local state is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.NewRequest(ctx, http.MethodPost, "/api/auth/logout", nil)
	if err == nil {
		resp, derr := c.Do(req)
		if derr == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}
	c.clearSession()
	return nil
}

// Authenticated reports whether the client holds a token pair.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access != ""
}

// CurrentUser returns the user recorded at login time.
func (c *Client) CurrentUser() User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// NewRequest builds a request against the API base URL. Bodies passed as
// []byte stay replayable across the retry.
func (c *Client) NewRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends the request with the bearer token attached. On a 401 it refreshes
// the pair once and retries exactly once; a second 401 is returned as-is.
// When the refresh itself fails the stored credentials are dropped and
// ErrSessionExpired comes back.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	usedAccess := c.access
	c.mu.Unlock()
	if usedAccess == "" {
		return nil, ErrNotAuthenticated
	}
	req.Header.Set("Authorization", "Bearer "+usedAccess)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	// A retry needs a replayable body.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	fresh, err := c.refreshAccess(req.Context(), usedAccess)
	if err != nil {
		return nil, err
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+fresh)
	return c.hc.Do(retry)
}

// refreshAccess converges concurrent refreshes into one server call. The
// caller passes the access token its failed request used; when the stored
// token already moved past it, someone else refreshed and the current token
// is returned without another round trip.
func (c *Client) refreshAccess(ctx context.Context, usedAccess string) (string, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		c.mu.Lock()
		access, refresh := c.access, c.refresh
		c.mu.Unlock()

		if access != usedAccess && access != "" {
			return access, nil
		}
		if refresh == "" {
			c.forceLogout()
			return "", ErrSessionExpired
		}

		var payload sessionPayload
		if err := c.postJSON(ctx, "/api/auth/refresh", map[string]string{
			"accessToken": access, "refreshToken": refresh,
		}, &payload); err != nil {
			c.forceLogout()
			return "", ErrSessionExpired
		}

		c.mu.Lock()
		c.access = payload.AccessToken
		c.refresh = payload.RefreshToken
		if payload.User.ID != "" {
			c.user = payload.User
		}
		c.mu.Unlock()
		return payload.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) forceLogout() {
	c.clearSession()
	if c.onLogout != nil {
		c.onLogout()
	}
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.access = ""
	c.refresh = ""
	c.user = User{}
	c.mu.Unlock()
}

// postJSON posts to an auth endpoint without the interceptor logic and
// decodes the envelope's data field.
func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		if len(env.Errors) > 0 {
			return fmt.Errorf("%s: %s", env.Message, strings.Join(env.Errors, "; "))
		}
		return errors.New(env.Message)
	}
	if out != nil && env.Data != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
