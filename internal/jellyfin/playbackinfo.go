package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"vrbridge/internal/httputil"
)

// PlaybackInfoRequest describes this client's playback capabilities to the
// upstream negotiation endpoint. DeviceProfile is built by the playback
// package; this client only carries it over the wire.
type PlaybackInfoRequest struct {
	DeviceProfile        json.RawMessage `json:"DeviceProfile"`
	MaxStreamingBitrate  int64           `json:"MaxStreamingBitrate,omitempty"`
	StartTimeTicks       int64           `json:"StartTimeTicks"`
	AutoOpenLiveStream   bool            `json:"AutoOpenLiveStream"`
	EnableDirectPlay     bool            `json:"EnableDirectPlay"`
	EnableDirectStream   bool            `json:"EnableDirectStream"`
	EnableTranscoding    bool            `json:"EnableTranscoding"`
}

// PlaybackInfo submits a playback-capabilities query for an item and returns
// the media source descriptors upstream considers playable, best match first.
func (c *Client) PlaybackInfo(ctx context.Context, itemID string, req PlaybackInfoRequest) (*PlaybackInfoResponse, error) {
	cred, err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	query := url.Values{"UserId": {cred.UserID}}
	if req.MaxStreamingBitrate > 0 {
		query.Set("MaxStreamingBitrate", strconv.FormatInt(req.MaxStreamingBitrate, 10))
	}

	path := fmt.Sprintf("/Items/%s/PlaybackInfo", url.PathEscape(itemID))
	resp, err := c.Do(ctx, http.MethodPost, path, query, req)
	if err != nil {
		return nil, err
	}
	defer httputil.DrainBody(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrItemNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Endpoint: path, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, httputil.MaxResponseBody))
	if err != nil {
		return nil, err
	}
	var pi PlaybackInfoResponse
	if err := json.Unmarshal(data, &pi); err != nil {
		return nil, fmt.Errorf("decoding playback info: %w", err)
	}
	if len(pi.MediaSources) == 0 {
		return nil, ErrNoMediaSource
	}
	return &pi, nil
}
