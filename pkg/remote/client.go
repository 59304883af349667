package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cuemby/dockhand/pkg/log"
	"github.com/cuemby/dockhand/pkg/metrics"
)

// Credentials is what the caller holds to reach a peer: either a
// bearer token, or a username/password pair. Whichever is set is
// presented to GET /auth; the token the peer answers with is what
// every later request actually carries.
type Credentials struct {
	Token    string
	Username string
	Password string
}

func (c Credentials) empty() bool {
	return c.Token == "" && c.Username == ""
}

// Client is a thin HTTP+JSON client for a remote dockhand peer. It
// exchanges Credentials for a bearer token on first use (and again
// after a 401), caching the token in the X-Access-Token header of
// every request.
type Client struct {
	BaseURL string
	Creds   Credentials

	// HTTPClient serves ordinary requests and carries a deadline.
	// LongPollClient serves /wait_exit and /wait_ready, whose whole
	// point is to block server-side, so it has none.
	HTTPClient     *http.Client
	LongPollClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a Client pointed at baseURL (e.g.
// "http://peer:4000").
func NewClient(baseURL string, creds Credentials) *Client {
	return &Client{
		BaseURL:        baseURL,
		Creds:          creds,
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
		LongPollClient: &http.Client{},
	}
}

// Authenticate exchanges the configured credentials for a bearer token
// via GET /auth. The peer answers with a bare JSON string.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.Creds.empty() {
		return fmt.Errorf("remote: no credentials configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/auth", nil)
	if err != nil {
		return err
	}
	if c.Creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Creds.Token)
	} else {
		req.SetBasicAuth(c.Creds.Username, c.Creds.Password)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: authenticate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote: authenticate: unexpected status %d", resp.StatusCode)
	}

	var token string
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("remote: authenticate: decode token: %w", err)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

func (c *Client) bearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// get issues a GET to BaseURL+path with the given query parameters,
// decoding a 200 body as JSON into out (out may be nil to discard). A
// missing or expired token triggers one re-authentication and retry;
// any other non-2xx is decoded as an errorResponse and surfaced.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, c.HTTPClient, path, params, out)
}

// getLongPoll is get on the deadline-free client, for endpoints that
// block until a server-side condition holds.
func (c *Client) getLongPoll(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, c.LongPollClient, path, params, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, path string, params url.Values, out any) error {
	if c.bearerToken() == "" {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
	}

	status, err := c.once(ctx, hc, path, params, out)
	if err != nil && status == http.StatusUnauthorized {
		logger := log.WithComponent("remote")
		logger.Debug().Str("path", path).Msg("token rejected, re-authenticating")
		if authErr := c.Authenticate(ctx); authErr != nil {
			return authErr
		}
		_, err = c.once(ctx, hc, path, params, out)
	}
	return err
}

func (c *Client) once(ctx context.Context, hc *http.Client, path string, params url.Values, out any) (int, error) {
	u := c.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-Access-Token", c.bearerToken())

	resp, err := hc.Do(req)
	if err != nil {
		metrics.RemotePollRequestsTotal.WithLabelValues(path, "error").Inc()
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RemotePollRequestsTotal.WithLabelValues(path, "error").Inc()
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return resp.StatusCode, fmt.Errorf("remote: %s: %s (status %d)", path, errResp.Error, resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("remote: %s: unexpected status %d", path, resp.StatusCode)
	}

	metrics.RemotePollRequestsTotal.WithLabelValues(path, "ok").Inc()
	if out == nil {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
}
