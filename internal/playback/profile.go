package playback

import (
	"encoding/json"
	"strings"
)

// Profile identifies a client capability class. Browser clients can only
// direct-play a narrow container/codec set; native (VR headset) clients
// handle most common formats.
type Profile string

const (
	ProfileBrowser Profile = "browser"
	ProfileNative  Profile = "native"
)

// ParseProfile maps the `client` query parameter onto a profile. Unknown
// values behave as native.
func ParseProfile(s string) Profile {
	if strings.EqualFold(s, string(ProfileBrowser)) {
		return ProfileBrowser
	}
	return ProfileNative
}

// capabilitySet is the single source of truth for what a profile can
// direct-play. It feeds both the declared DeviceProfile sent upstream and
// the validation of the descriptor upstream picks, so the two can't drift.
type capabilitySet struct {
	containers  []string
	videoCodecs []string
	audioCodecs []string
}

var profileCaps = map[Profile]capabilitySet{
	ProfileBrowser: {
		containers:  []string{"mp4", "webm"},
		videoCodecs: []string{"h264", "vp8", "vp9"},
		audioCodecs: []string{"aac", "mp3", "opus", "vorbis"},
	},
	ProfileNative: {
		containers:  []string{"mp4", "mkv", "webm", "mov", "ts"},
		videoCodecs: []string{"h264", "hevc", "vp9", "av1", "mpeg2video"},
		audioCodecs: []string{"aac", "ac3", "eac3", "mp3", "opus", "flac", "dts"},
	},
}

// Constrained reports whether a descriptor must additionally match this
// profile's allow-lists before direct play is permitted.
func (p Profile) Constrained() bool {
	return p == ProfileBrowser
}

// Allows reports whether the given container and codecs fall entirely inside
// the profile's direct-play capability set. Empty codec values (missing
// streams) are not grounds for rejection.
func (p Profile) Allows(container, videoCodec, audioCodec string) bool {
	caps := profileCaps[p]
	if !inSet(caps.containers, container) {
		return false
	}
	if videoCodec != "" && !inSet(caps.videoCodecs, videoCodec) {
		return false
	}
	if audioCodec != "" && !inSet(caps.audioCodecs, audioCodec) {
		return false
	}
	return true
}

func inSet(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// Upstream DeviceProfile wire shapes.

type deviceProfile struct {
	MaxStreamingBitrate int64                `json:"MaxStreamingBitrate,omitempty"`
	DirectPlayProfiles  []directPlayProfile  `json:"DirectPlayProfiles"`
	TranscodingProfiles []transcodingProfile `json:"TranscodingProfiles"`
}

type directPlayProfile struct {
	Type       string `json:"Type"`
	Container  string `json:"Container"`
	VideoCodec string `json:"VideoCodec,omitempty"`
	AudioCodec string `json:"AudioCodec,omitempty"`
}

type transcodingProfile struct {
	Type          string `json:"Type"`
	Container     string `json:"Container"`
	Protocol      string `json:"Protocol"`
	VideoCodec    string `json:"VideoCodec"`
	AudioCodec    string `json:"AudioCodec"`
	MaxAudioChannels string `json:"MaxAudioChannels,omitempty"`
	Context       string `json:"Context"`
}

// buildDeviceProfile declares this profile's direct-play support plus the
// requested transcoding target to the upstream negotiation endpoint.
func buildDeviceProfile(p Profile, opts Options) json.RawMessage {
	caps := profileCaps[p]

	dp := deviceProfile{
		MaxStreamingBitrate: opts.VideoBitrate,
		DirectPlayProfiles: []directPlayProfile{{
			Type:       "Video",
			Container:  strings.Join(caps.containers, ","),
			VideoCodec: strings.Join(caps.videoCodecs, ","),
			AudioCodec: strings.Join(caps.audioCodecs, ","),
		}},
		TranscodingProfiles: []transcodingProfile{{
			Type:       "Video",
			Container:  opts.transcodeContainer(),
			Protocol:   "hls",
			VideoCodec: opts.transcodeVideoCodec(),
			AudioCodec: opts.transcodeAudioCodec(),
			Context:    "Streaming",
		}},
	}
	if opts.AudioChannels > 0 {
		dp.TranscodingProfiles[0].MaxAudioChannels = itoa(opts.AudioChannels)
	}

	data, err := json.Marshal(dp)
	if err != nil {
		// Marshalling a static struct cannot fail.
		return json.RawMessage(`{}`)
	}
	return data
}
