package playback

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"vrbridge/internal/jellyfin"
)

// Method is the negotiated playback method.
type Method string

const (
	MethodDirectPlay Method = "direct_play"
	MethodRemux      Method = "remux"
	MethodTranscode  Method = "transcode"
)

// Quality is the requested quality tier. Anything outside the recognized
// values behaves as auto.
type Quality string

const (
	QualityAuto   Quality = "auto"
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

func ParseQuality(s string) Quality {
	switch Quality(strings.ToLower(s)) {
	case QualityLow:
		return QualityLow
	case QualityMedium:
		return QualityMedium
	case QualityHigh:
		return QualityHigh
	default:
		return QualityAuto
	}
}

type preset struct {
	width, height int
	bitrate       int64
}

// Fixed tier presets; caller-supplied dimensions are ignored for non-auto
// tiers.
var qualityPresets = map[Quality]preset{
	QualityLow:    {width: 720, height: 480, bitrate: 1_000_000},
	QualityMedium: {width: 1280, height: 720, bitrate: 2_500_000},
	QualityHigh:   {width: 1920, height: 1080, bitrate: 8_000_000},
}

// Options are the caller's playback constraints.
type Options struct {
	MaxWidth      int
	MaxHeight     int
	VideoBitrate  int64
	AudioCodec    string
	VideoCodec    string
	Container     string
	AudioChannels int
	Quality       Quality
	Profile       Profile
}

func (o Options) transcodeContainer() string {
	if o.Container != "" {
		return o.Container
	}
	return "ts"
}

func (o Options) transcodeVideoCodec() string {
	if o.VideoCodec != "" {
		return o.VideoCodec
	}
	return "h264"
}

func (o Options) transcodeAudioCodec() string {
	if o.AudioCodec != "" {
		return o.AudioCodec
	}
	return "aac"
}

func itoa(n int) string { return strconv.Itoa(n) }

// StreamDetails describes the selected descriptor's elementary streams for
// metadata responses. Missing streams yield "unknown"/zero values.
type StreamDetails struct {
	Container     string `json:"container"`
	VideoCodec    string `json:"videoCodec"`
	VideoWidth    int    `json:"videoWidth"`
	VideoHeight   int    `json:"videoHeight"`
	AudioCodec    string `json:"audioCodec"`
	AudioChannels int    `json:"audioChannels"`
	Bitrate       int64  `json:"bitrate"`
	SizeBytes     int64  `json:"sizeBytes"`
}

// Result is a completed negotiation.
type Result struct {
	Method        Method
	HLSURL        string
	DirectURL     string
	Reasons       []string
	PlaySessionID string
	MediaSourceID string
	Quality       Quality
	BitrateLimit  int64
	Item          *jellyfin.Item
	Details       StreamDetails
}

// DirectPlay reports whether the method serves original bytes unmodified.
func (r *Result) DirectPlay() bool { return r.Method == MethodDirectPlay }

// Negotiator decides, per playback request, among direct play, remux and
// transcode, and constructs the upstream playback URLs.
type Negotiator struct {
	client *jellyfin.Client
}

func NewNegotiator(c *jellyfin.Client) *Negotiator {
	return &Negotiator{client: c}
}

// Negotiate runs the full decision sequence for one item.
func (n *Negotiator) Negotiate(ctx context.Context, itemID string, opts Options) (*Result, error) {
	item, err := n.client.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	effectiveBitrate := opts.VideoBitrate
	if p, ok := qualityPresets[opts.Quality]; ok {
		effectiveBitrate = p.bitrate
	}

	pi, err := n.client.PlaybackInfo(ctx, itemID, jellyfin.PlaybackInfoRequest{
		DeviceProfile:       buildDeviceProfile(opts.Profile, opts),
		MaxStreamingBitrate: effectiveBitrate,
		AutoOpenLiveStream:  true,
		EnableDirectPlay:    true,
		EnableDirectStream:  true,
		EnableTranscoding:   true,
	})
	if err != nil {
		return nil, err
	}

	// Upstream returns its best match first.
	src := pi.MediaSources[0]

	res := &Result{
		PlaySessionID: pi.PlaySessionID,
		MediaSourceID: src.ID,
		Quality:       opts.Quality,
		BitrateLimit:  effectiveBitrate,
		Item:          item,
		Details:       detailsFromSource(src),
	}

	// Constrained clients force a transcode when the descriptor falls
	// outside their allow-lists, regardless of what upstream claims.
	forced := opts.Profile.Constrained() &&
		!opts.Profile.Allows(src.Container, res.Details.VideoCodec, res.Details.AudioCodec)

	switch {
	case opts.Quality == QualityAuto && src.SupportsDirectPlay && !forced:
		res.Method = MethodDirectPlay
		res.Reasons = []string{}

	case opts.Quality == QualityAuto && src.SupportsDirectStream && !forced:
		res.Method = MethodRemux
		res.Reasons = []string{"container remux"}

	default:
		res.Method = MethodTranscode
		res.Reasons = append([]string{}, src.TranscodingReasons...)
		if forced {
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("container %s not supported by %s client", src.Container, opts.Profile))
		}
		if opts.Quality != QualityAuto && src.SupportsDirectPlay && !forced {
			res.Reasons = append(res.Reasons, fmt.Sprintf("quality override: %s", opts.Quality))
		}
	}

	cred, err := n.client.EnsureAuthenticated(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jellyfin.ErrUpstreamUnavailable, err)
	}
	n.buildURLs(res, itemID, opts, cred)
	return res, nil
}

func detailsFromSource(src jellyfin.MediaSource) StreamDetails {
	d := StreamDetails{
		Container:  src.Container,
		VideoCodec: "unknown",
		AudioCodec: "unknown",
		Bitrate:    src.Bitrate,
		SizeBytes:  src.Size,
	}
	if d.Container == "" {
		d.Container = "unknown"
	}
	for _, ms := range src.MediaStreams {
		switch ms.Type {
		case "Video":
			d.VideoCodec = ms.Codec
			d.VideoWidth = ms.Width
			d.VideoHeight = ms.Height
		case "Audio":
			d.AudioCodec = ms.Codec
			d.AudioChannels = ms.Channels
		}
	}
	if d.VideoCodec == "" {
		d.VideoCodec = "unknown"
	}
	if d.AudioCodec == "" {
		d.AudioCodec = "unknown"
	}
	return d
}
