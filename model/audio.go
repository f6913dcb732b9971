package model

// AudioTrack identifies a playable unit of meditation audio.
// The URL may point at a remote file, a local path, or a
// cache-issued generated-audio reference.
type AudioTrack struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Duration int64  `json:"duration,omitempty"` // milliseconds, 0 until known
}

// PlaybackState is the observable snapshot of the playback session.
// Exactly one exists per process; only the session manager mutates it.
type PlaybackState struct {
	IsLoaded      bool    `json:"isLoaded"`
	IsPlaying     bool    `json:"isPlaying"`
	Position      int64   `json:"position"` // milliseconds
	Duration      int64   `json:"duration"` // milliseconds, 0 until known
	PlaybackSpeed float64 `json:"playbackSpeed"`
	IsLoading     bool    `json:"isLoading"`
	Error         string  `json:"error,omitempty"`
}
