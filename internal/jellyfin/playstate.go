package jellyfin

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"vrbridge/internal/httputil"
	"vrbridge/internal/units"
)

// PlaystateReport carries a client playback lifecycle event upstream.
type PlaystateReport struct {
	ItemID          string
	PositionSeconds float64
	IsPaused        bool
	PlayMethod      string
	PlaySessionID   string
	MediaSourceID   string
}

type playstateBody struct {
	ItemID        string `json:"ItemId"`
	PositionTicks int64  `json:"PositionTicks"`
	IsPaused      bool   `json:"IsPaused"`
	PlayMethod    string `json:"PlayMethod,omitempty"`
	PlaySessionID string `json:"PlaySessionId,omitempty"`
	MediaSourceID string `json:"MediaSourceId,omitempty"`
	CanSeek       bool   `json:"CanSeek"`
}

// ReportStart tells upstream that playback of an item began.
func (c *Client) ReportStart(ctx context.Context, rep PlaystateReport) error {
	return c.reportPlaystate(ctx, "/Sessions/Playing", rep)
}

// ReportProgress forwards a position/pause-state update. A negative or
// non-finite position fails with ErrInvalidArgument before any upstream
// call is made.
func (c *Client) ReportProgress(ctx context.Context, rep PlaystateReport) error {
	if rep.PositionSeconds < 0 || math.IsNaN(rep.PositionSeconds) || math.IsInf(rep.PositionSeconds, 0) {
		return fmt.Errorf("%w: position must be a non-negative number", ErrInvalidArgument)
	}
	return c.reportPlaystate(ctx, "/Sessions/Playing/Progress", rep)
}

// ReportStop tells upstream that playback ended.
func (c *Client) ReportStop(ctx context.Context, rep PlaystateReport) error {
	return c.reportPlaystate(ctx, "/Sessions/Playing/Stopped", rep)
}

func (c *Client) reportPlaystate(ctx context.Context, path string, rep PlaystateReport) error {
	body := playstateBody{
		ItemID:        rep.ItemID,
		PositionTicks: units.SecondsToTicks(rep.PositionSeconds),
		IsPaused:      rep.IsPaused,
		PlayMethod:    rep.PlayMethod,
		PlaySessionID: rep.PlaySessionID,
		MediaSourceID: rep.MediaSourceID,
		CanSeek:       true,
	}
	resp, err := c.Do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	defer httputil.DrainBody(resp)
	if resp.StatusCode >= 300 {
		return &StatusError{Endpoint: path, Code: resp.StatusCode}
	}
	return nil
}
