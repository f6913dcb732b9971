package playback

import "Bt1Zen/model"

// Player is the audio handle primitive the session manager drives. The
// primitive speaks seconds; the session adapts to millisecond state. It
// exposes no readiness or position-change callbacks, which is why the
// session polls it.
type Player interface {
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	SetPlaybackRate(rate float64) error

	CurrentTime() float64 // seconds
	Duration() float64    // seconds, 0 until known
	Playing() bool
	IsLoaded() bool
}

// PlayerFactory constructs a Player bound to a track's source URL. The
// track's duration field is a hint; implementations may ignore it once the
// handle knows better.
type PlayerFactory func(track model.AudioTrack) (Player, error)
