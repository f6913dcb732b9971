package model

import "time"

// CachedAudioEntry is one durable generated-audio artifact.
// ID is unique per generation, not per meditation; MeditationID is the
// lookup index. PlayableRef is session scoped and must be re-minted from
// Payload on every cold load — stale references are silently unusable.
type CachedAudioEntry struct {
	ID           string    `json:"id"`
	MeditationID string    `json:"meditationId"`
	Payload      []byte    `json:"-"`
	PlayableRef  string    `json:"playableRef"`
	Duration     int       `json:"duration"` // estimated seconds
	VoiceUsed    string    `json:"voiceUsed"`
	GeneratedAt  time.Time `json:"generatedAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}
