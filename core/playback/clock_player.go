package playback

import (
	"sync"
	"time"
)

// ClockPlayer is a headless Player whose position advances with wall-clock
// time while playing, scaled by the playback rate. The service uses it to
// track the session timeline while actual sound rendering happens on the
// client device.
type ClockPlayer struct {
	mu       sync.Mutex
	duration float64 // seconds
	offset   float64 // accumulated position at last transition, seconds
	rate     float64
	playing  bool
	playedAt time.Time
}

// NewClockPlayer creates a loaded clock player with a known duration in
// seconds. A zero duration means unknown.
func NewClockPlayer(durationSeconds float64) *ClockPlayer {
	return &ClockPlayer{duration: durationSeconds, rate: 1.0}
}

// position returns the current position without clamping races; callers
// hold mu.
func (p *ClockPlayer) position(now time.Time) float64 {
	pos := p.offset
	if p.playing {
		pos += now.Sub(p.playedAt).Seconds() * p.rate
	}
	if p.duration > 0 && pos > p.duration {
		pos = p.duration
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

func (p *ClockPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return nil
	}
	p.playing = true
	p.playedAt = time.Now()
	return nil
}

func (p *ClockPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return nil
	}
	p.offset = p.position(time.Now())
	p.playing = false
	return nil
}

func (p *ClockPlayer) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if p.duration > 0 && seconds > p.duration {
		seconds = p.duration
	}
	p.offset = seconds
	p.playedAt = time.Now()
	return nil
}

func (p *ClockPlayer) SetPlaybackRate(rate float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	// Fold elapsed time at the old rate into the offset first.
	now := time.Now()
	p.offset = p.position(now)
	p.playedAt = now
	p.rate = rate
	return nil
}

func (p *ClockPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position(time.Now())
}

func (p *ClockPlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *ClockPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing && p.duration > 0 && p.position(time.Now()) >= p.duration {
		return false
	}
	return p.playing
}

func (p *ClockPlayer) IsLoaded() bool {
	return true
}
