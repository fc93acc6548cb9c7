package playback

import (
	"fmt"
	"net/url"
	"strconv"

	"vrbridge/internal/jellyfin"
)

// buildURLs constructs the HLS manifest URL and the progressive URL from one
// shared parameter set, so range requests and progress reports correlate
// through the same play session and media source.
func (n *Negotiator) buildURLs(res *Result, itemID string, opts Options, cred jellyfin.Credential) {
	params := url.Values{
		"MediaSourceId": {res.MediaSourceID},
		"PlaySessionId": {res.PlaySessionID},
		"DeviceId":      {n.client.DeviceID()},
		"api_key":       {cred.Token},
	}

	switch res.Method {
	case MethodDirectPlay:
		params.Set("Static", "true")

	case MethodRemux:
		// Same codecs, different container only.
		params.Set("VideoCodec", "copy")
		params.Set("AudioCodec", "copy")
		params.Set("Container", opts.transcodeContainer())

	case MethodTranscode:
		w, h, br := opts.MaxWidth, opts.MaxHeight, opts.VideoBitrate
		if p, ok := qualityPresets[res.Quality]; ok {
			w, h, br = p.width, p.height, p.bitrate
		}
		params.Set("VideoCodec", opts.transcodeVideoCodec())
		params.Set("AudioCodec", opts.transcodeAudioCodec())
		params.Set("Container", opts.transcodeContainer())
		if w > 0 {
			params.Set("MaxWidth", strconv.Itoa(w))
		}
		if h > 0 {
			params.Set("MaxHeight", strconv.Itoa(h))
		}
		if br > 0 {
			params.Set("VideoBitrate", strconv.FormatInt(br, 10))
		}
		if opts.AudioChannels > 0 {
			params.Set("MaxAudioChannels", strconv.Itoa(opts.AudioChannels))
		}
	}

	base := n.client.BaseURL()
	encoded := params.Encode()
	res.HLSURL = fmt.Sprintf("%s/Videos/%s/master.m3u8?%s", base, url.PathEscape(itemID), encoded)
	res.DirectURL = fmt.Sprintf("%s/Videos/%s/stream?%s", base, url.PathEscape(itemID), encoded)
}
