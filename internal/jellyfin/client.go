package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vrbridge/internal/httputil"
)

// DefaultTokenMaxAge is how long a credential is trusted before the next
// request triggers a fresh authentication round-trip.
const DefaultTokenMaxAge = 12 * time.Hour

// authRetryInterval drives the background re-authentication timer that
// self-heals transient auth failures.
const authRetryInterval = 30 * time.Second

// Credential is the shared upstream access state. A zero Token means no
// authentication has succeeded yet.
type Credential struct {
	Token    string
	UserID   string
	ServerID string
	AuthedAt time.Time
}

// Client talks to a Jellyfin/Emby-compatible media server. All API calls go
// through Do, which transparently authenticates first. Concurrent callers
// needing authentication share a single in-flight attempt.
type Client struct {
	baseURL       string
	username      string
	password      string
	deviceID      string
	clientName    string
	clientVersion string
	tokenMaxAge   time.Duration

	http   *http.Client
	stream *http.Client

	mu     sync.RWMutex
	cred   Credential
	flight singleflight.Group
}

type Option func(*Client)

func WithTokenMaxAge(d time.Duration) Option {
	return func(c *Client) { c.tokenMaxAge = d }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL, username, password, deviceID string, opts ...Option) (*Client, error) {
	if err := httputil.ValidateServerURL(baseURL); err != nil {
		return nil, fmt.Errorf("server URL: %w", err)
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		username:      username,
		password:      password,
		deviceID:      deviceID,
		clientName:    "VRBridge",
		clientVersion: "1.0",
		tokenMaxAge:   DefaultTokenMaxAge,
		http:          httputil.NewClient(),
		stream:        httputil.NewStreamingClient(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the upstream server base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// DeviceID returns the device identifier the bridge presents upstream.
func (c *Client) DeviceID() string { return c.deviceID }

func (c *Client) cachedCredential() (Credential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cred.Token == "" {
		return Credential{}, false
	}
	if time.Since(c.cred.AuthedAt) > c.tokenMaxAge {
		return Credential{}, false
	}
	return c.cred, true
}

// EnsureAuthenticated returns the current valid credential, performing a
// fresh authentication round-trip if none exists or the cached one is too
// old. Concurrent callers share one outstanding attempt; each still honors
// its own context for waiting.
func (c *Client) EnsureAuthenticated(ctx context.Context) (Credential, error) {
	if cred, ok := c.cachedCredential(); ok {
		return cred, nil
	}
	ch := c.flight.DoChan("auth", func() (interface{}, error) {
		// Re-check under the flight: a just-finished attempt may have
		// already stored a credential.
		if cred, ok := c.cachedCredential(); ok {
			return cred, nil
		}
		// Detached context so one waiter's cancellation cannot abort the
		// attempt every other waiter depends on.
		authCtx, cancel := context.WithTimeout(context.Background(), httputil.AuthTimeout)
		defer cancel()
		return c.authenticate(authCtx)
	})
	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	}
}

// Invalidate drops the cached credential so the next call re-authenticates.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cred = Credential{}
	c.mu.Unlock()
}

// RunAuthRefresh retries authentication on a fixed interval while no valid
// credential is held, so startup and transient failures self-heal without
// request traffic. Blocks until ctx is cancelled.
func (c *Client) RunAuthRefresh(ctx context.Context) {
	ticker := time.NewTicker(authRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, ok := c.cachedCredential(); ok {
				continue
			}
			if _, err := c.EnsureAuthenticated(ctx); err != nil && ctx.Err() == nil {
				log.Printf("jellyfin: background auth retry: %v", err)
			}
		}
	}
}

// Do issues an authenticated request against the upstream API. The path must
// begin with "/". A JSON body is marshalled when body is non-nil. The caller
// owns the response and must close its body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	return c.do(ctx, c.http, method, path, query, body)
}

// DoStream is Do without a client-side timeout, for long-lived byte
// transfers such as video streaming.
func (c *Client) DoStream(ctx context.Context, method, path string, query url.Values, header http.Header) (*http.Response, error) {
	cred, err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req, err := c.newRequest(ctx, method, path, query, nil, cred)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.stream.Do(req)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, body any) (*http.Response, error) {
	cred, err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, query, payload, cred)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// Token was revoked upstream; drop it so the next call re-auths.
		httputil.DrainBody(resp)
		c.Invalidate()
		return nil, fmt.Errorf("%w: token rejected", ErrAuthentication)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, cred Credential) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Emby-Token", cred.Token)
	return req, nil
}

// getJSON performs an authenticated GET and decodes a bounded JSON response.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer httputil.DrainBody(resp)
	if resp.StatusCode == http.StatusNotFound {
		return ErrItemNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Endpoint: path, Code: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, httputil.MaxResponseBody))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
