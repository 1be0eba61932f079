package client

import "encoding/json"

// StartRequest mirrors the daemon's record start body.
type StartRequest struct {
	URL        string          `json:"url"`
	StreamURL  string          `json:"streamUrl,omitempty"`
	AnchorName string          `json:"anchorName,omitempty"`
	AutoRecord bool            `json:"autoRecord,omitempty"`
	Protocol   string          `json:"streamProtocol,omitempty"`
	Resolution string          `json:"streamResolution,omitempty"`
	Option     RecordingOption `json:"option"`
}

// RecordingOption carries per-capture tweaks.
type RecordingOption struct {
	UseProxy           string `json:"useProxy,omitempty"`
	AutoConvertToMp4   bool   `json:"autoConvertToMp4"`
	DeleteOriginalFile bool   `json:"deleteOriginalFile"`
}

// Stream is one candidate stream for a channel.
type Stream struct {
	URL        string `json:"url"`
	Resolution string `json:"resolution"`
	Protocol   string `json:"protocol"`
}

// LiveInfo is the resolved live state of a channel.
type LiveInfo struct {
	URL          string   `json:"url"`
	AnchorName   string   `json:"anchorName"`
	AnchorAvatar string   `json:"anchorAvatar"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	ViewerCount  string   `json:"viewerCount"`
	RoomCover    string   `json:"roomCover"`
	Streams      []Stream `json:"streams"`
	PlatformKind string   `json:"platformKind"`
}

// Plan is a standing auto-record intent for a channel.
type Plan struct {
	URL              string          `json:"url"`
	StreamProtocol   string          `json:"streamProtocol"`
	StreamResolution string          `json:"streamResolution"`
	Enabled          bool            `json:"enabled"`
	CreatedAt        int64           `json:"createdAt"`
	UpdatedAt        int64           `json:"updatedAt"`
	LiveInfo         *LiveInfo       `json:"liveInfo,omitempty"`
	Option           RecordingOption `json:"option"`
}

// History is one capture attempt.
type History struct {
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	StartTime int64     `json:"startTime"`
	EndTime   int64     `json:"endTime"`
	Path      string    `json:"path"`
	FileSize  int64     `json:"fileSize"`
	Deleted   bool      `json:"deleted"`
	LiveInfo  *LiveInfo `json:"liveInfo,omitempty"`
}

// AppConfig is the daemon's stored runtime configuration.
// FFmpegVersion is reported by the daemon on reads and ignored on writes.
type AppConfig struct {
	FFmpegPath        string `json:"ffmpegPath"`
	SavePath          string `json:"savePath"`
	LiveCheckInterval uint64 `json:"liveCheckInterval"`
	FFmpegVersion     string `json:"ffmpegVersion,omitempty"`
}

// envelope is the daemon's response wrapper. Code 0 means success.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type statusData struct {
	Status string `json:"status"`
}
