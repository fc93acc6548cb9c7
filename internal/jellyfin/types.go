package jellyfin

// Upstream JSON shapes. Only the fields the bridge consumes are declared.

type authRequest struct {
	Username string `json:"Username"`
	Pw       string `json:"Pw"`
}

type authResponse struct {
	User        authUser `json:"User"`
	ServerID    string   `json:"ServerId"`
	AccessToken string   `json:"AccessToken"`
}

type authUser struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Item is an upstream library item (movie, episode, series, ...).
type Item struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	Type           string            `json:"Type"`
	Overview       string            `json:"Overview"`
	SeriesName     string            `json:"SeriesName"`
	SeasonName     string            `json:"SeasonName"`
	ProductionYear int               `json:"ProductionYear"`
	RunTimeTicks   int64             `json:"RunTimeTicks"`
	Container      string            `json:"Container"`
	Genres         []string          `json:"Genres"`
	CommunityRating float64          `json:"CommunityRating"`
	ImageTags      map[string]string `json:"ImageTags"`
	MediaSources   []MediaSource     `json:"MediaSources"`
}

type itemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// MediaSource describes one concrete encoding of an item, as reported by
// the upstream playback-info endpoint.
type MediaSource struct {
	ID                   string        `json:"Id"`
	Container            string        `json:"Container"`
	Size                 int64         `json:"Size"`
	Bitrate              int64         `json:"Bitrate"`
	SupportsDirectPlay   bool          `json:"SupportsDirectPlay"`
	SupportsDirectStream bool          `json:"SupportsDirectStream"`
	SupportsTranscoding  bool          `json:"SupportsTranscoding"`
	TranscodingReasons   []string      `json:"TranscodingReasons"`
	MediaStreams         []MediaStream `json:"MediaStreams"`
}

// MediaStream is one elementary stream inside a media source.
type MediaStream struct {
	Index        int    `json:"Index"`
	Type         string `json:"Type"` // Video, Audio, Subtitle
	Codec        string `json:"Codec"`
	Width        int    `json:"Width"`
	Height       int    `json:"Height"`
	Channels     int    `json:"Channels"`
	BitRate      int64  `json:"BitRate"`
	Language     string `json:"Language"`
	DisplayTitle string `json:"DisplayTitle"`
	IsDefault    bool   `json:"IsDefault"`
}

// PlaybackInfoResponse is the result of a playback-capabilities query.
type PlaybackInfoResponse struct {
	MediaSources  []MediaSource `json:"MediaSources"`
	PlaySessionID string        `json:"PlaySessionId"`
}

// Genre is an upstream genre listing entry.
type Genre struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type genresResponse struct {
	Items []Genre `json:"Items"`
}

// Library is one upstream media view (library).
type Library struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	CollectionType string `json:"CollectionType"`
}
