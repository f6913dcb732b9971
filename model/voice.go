package model

// VoiceOptions tune a synthesis request. Zero values fall back to
// meditation defaults (slow rate, slightly lowered pitch).
type VoiceOptions struct {
	Rate      float64 `json:"rate,omitempty"`   // 0.1 to 10, default 0.7
	Pitch     float64 `json:"pitch,omitempty"`  // 0 to 2, default 0.9
	Volume    float64 `json:"volume,omitempty"` // 0 to 1, default 0.9
	VoiceName string  `json:"voiceName,omitempty"`
}

// GeneratedAudio is the result of one synthesis call.
type GeneratedAudio struct {
	Payload   []byte `json:"-"`
	Duration  int    `json:"duration"` // estimated seconds
	VoiceUsed string `json:"voiceUsed"`
}

// Voice describes one synthesis voice available on this host.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"lang"`
	Quality  string `json:"quality"`
}
