package model

import "time"

// RecordStatus is the store-authoritative recording state of a resource.
type RecordStatus string

const (
	StatusRecording    RecordStatus = "Recording"
	StatusNotRecording RecordStatus = "NotRecording"
)

// LiveStatus is the last resolved broadcast state of a channel.
type LiveStatus string

const (
	LiveStatusLive    LiveStatus = "Live"
	LiveStatusNotLive LiveStatus = "NotLive"
	LiveStatusUnknown LiveStatus = "Unknown"
)

// StreamingProtocol identifies the transport of a candidate stream URL.
type StreamingProtocol string

const (
	ProtocolFlv StreamingProtocol = "Flv"
	ProtocolHls StreamingProtocol = "Hls"
)

// Stream is one candidate stream a resolver discovered for a channel.
type Stream struct {
	URL        string            `json:"url"`
	Resolution string            `json:"resolution"`
	Protocol   StreamingProtocol `json:"protocol"`
}

// LiveDescriptor is the last known resolver output for a channel.
// It is cached in the store under live:<url> and is never authoritative
// for recording state.
type LiveDescriptor struct {
	URL          string       `json:"url"`
	AnchorName   string       `json:"anchorName"`
	AnchorAvatar string       `json:"anchorAvatar"`
	Title        string       `json:"title"`
	Status       LiveStatus   `json:"status"`
	ViewerCount  string       `json:"viewerCount"`
	RoomCover    string       `json:"roomCover"`
	Streams      []Stream     `json:"streams"`
	PlatformKind PlatformKind `json:"platformKind"`
}

// RecordingOption carries per-capture tweaks passed through to the launcher.
type RecordingOption struct {
	UseProxy string `json:"useProxy,omitempty"`
	// Accepted for wire compatibility; post-processing is out of scope.
	AutoConvertToMp4   bool `json:"autoConvertToMp4"`
	DeleteOriginalFile bool `json:"deleteOriginalFile"`
}

// RecordingPlan is a standing intent to auto-capture a channel whenever
// it goes live. One plan per URL, upsert semantics.
type RecordingPlan struct {
	URL              string            `json:"url"`
	StreamProtocol   StreamingProtocol `json:"streamProtocol"`
	StreamResolution string            `json:"streamResolution"`
	Enabled          bool              `json:"enabled"`
	// Unix milliseconds. UpdatedAt is 0 until the first mutation.
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
	LiveInfo  *LiveDescriptor `json:"liveInfo,omitempty"`
	Option    RecordingOption `json:"option"`
}

// NewRecordingPlan returns an enabled plan for url with the given stream hint.
func NewRecordingPlan(url string, protocol StreamingProtocol, resolution string, opt RecordingOption) *RecordingPlan {
	return &RecordingPlan{
		URL:              url,
		StreamProtocol:   protocol,
		StreamResolution: resolution,
		Enabled:          true,
		CreatedAt:        time.Now().UnixMilli(),
		Option:           opt,
	}
}

// RecordingHistory is one row per capture attempt.
// FileSize and Deleted are volatile: recomputed from the filesystem on
// every read and never persisted.
type RecordingHistory struct {
	URL       string          `json:"url"`
	Status    RecordStatus    `json:"status"`
	StartTime int64           `json:"startTime"` // unix milliseconds
	EndTime   int64           `json:"endTime"`   // 0 while recording
	Path      string          `json:"path"`
	FileSize  int64           `json:"fileSize"`
	Deleted   bool            `json:"deleted"`
	LiveInfo  *LiveDescriptor `json:"liveInfo,omitempty"`
}

// NewRecordingHistory returns an open (Recording) history row starting now.
func NewRecordingHistory(url, path string) *RecordingHistory {
	return &RecordingHistory{
		URL:       url,
		Status:    StatusRecording,
		StartTime: time.Now().UnixMilli(),
		Path:      path,
	}
}

// AppConfig is the process-wide configuration persisted in the store.
// It is mutated only through explicit config set calls.
type AppConfig struct {
	FFmpegPath string `json:"ffmpegPath"`
	SavePath   string `json:"savePath"`
	// Seconds between plan poller cycles; read fresh every cycle.
	LiveCheckInterval uint64 `json:"liveCheckInterval"`
}

// DefaultAppConfig is used until the user stores an explicit config.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		FFmpegPath:        "ffmpeg",
		SavePath:          "./recordings",
		LiveCheckInterval: 60,
	}
}
