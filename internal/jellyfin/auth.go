package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vrbridge/internal/httputil"
)

// authenticate performs the username/password exchange and stores the
// resulting credential. Callers must not invoke this directly; it is reached
// only through the single-flight group in EnsureAuthenticated.
func (c *Client) authenticate(ctx context.Context) (Credential, error) {
	payload, err := json.Marshal(authRequest{Username: c.username, Pw: c.password})
	if err != nil {
		return Credential{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/Users/AuthenticateByName", bytes.NewReader(payload))
	if err != nil {
		return Credential{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Emby-Authorization", c.authorizationHeader())

	resp, err := c.http.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer httputil.DrainBody(resp)

	if resp.StatusCode != http.StatusOK {
		return Credential{}, fmt.Errorf("%w: status %d", ErrAuthentication, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, httputil.MaxResponseBody))
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	var ar authResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return Credential{}, fmt.Errorf("%w: malformed response: %v", ErrAuthentication, err)
	}
	if ar.AccessToken == "" || ar.User.ID == "" {
		return Credential{}, fmt.Errorf("%w: response missing token or user", ErrAuthentication)
	}

	cred := Credential{
		Token:    ar.AccessToken,
		UserID:   ar.User.ID,
		ServerID: ar.ServerID,
		AuthedAt: time.Now().UTC(),
	}
	c.mu.Lock()
	c.cred = cred
	c.mu.Unlock()
	return cred, nil
}

func (c *Client) authorizationHeader() string {
	return fmt.Sprintf(`MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s"`,
		c.clientName, c.clientName, c.deviceID, c.clientVersion)
}
