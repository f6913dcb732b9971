package progress

import (
	"context"
	"sync"
	"time"

	"Bt1Zen/logger"
	"Bt1Zen/model"
)

// Reporter receives listening intervals derived from playback state. The
// tracker reports every interval; whether an interval counts toward
// completions is the reporter's call.
type Reporter interface {
	RecordListeningTime(ctx context.Context, elapsedMs int64) error
	RecordCompletion(ctx context.Context, meditationID string, elapsedMs int64) error
}

// Tracker derives listening intervals from the playback state stream by
// edge detection. A play edge starts a wall-clock timer; a stop edge
// reports the elapsed interval and, when the final position qualifies, a
// completion. Switching tracks mid-play discards the running timer, so
// partial listening on the abandoned track earns no credit.
type Tracker struct {
	mu          sync.Mutex
	reporter    Reporter
	startedAt   time.Time // zero when no timer is running
	lastTrackID string
	hasTrack    bool

	nowFunc func() time.Time
}

// NewTracker creates a tracker reporting to the given reporter.
func NewTracker(reporter Reporter) *Tracker {
	return &Tracker{reporter: reporter, nowFunc: time.Now}
}

// Observe consumes one playback state change together with the track it
// belongs to. It is safe to call from the session's notification path.
func (t *Tracker) Observe(ctx context.Context, state model.PlaybackState, track *model.AudioTrack) {
	t.mu.Lock()
	now := t.nowFunc()

	// Track switch first: a timer still running against the old track is
	// forfeited rather than credited to either track. This must precede
	// the stop edge, because replacing the track mid-play emits a
	// non-playing state carrying the new track's identity.
	var curID string
	hasCur := track != nil
	if track != nil {
		curID = track.ID
	}
	if curID != t.lastTrackID || hasCur != t.hasTrack {
		t.startedAt = time.Time{}
		t.lastTrackID = curID
		t.hasTrack = hasCur
	}

	// Play edge: start the timer against the pinned track.
	if state.IsPlaying && t.startedAt.IsZero() {
		t.startedAt = now
	}

	// Stop edge: report the interval that just ended.
	var (
		report       bool
		completed    bool
		elapsedMs    int64
		meditationID string
	)
	if !state.IsPlaying && !t.startedAt.IsZero() && t.hasTrack {
		elapsedMs = now.Sub(t.startedAt).Milliseconds()
		meditationID = t.lastTrackID
		report = true

		// A zero duration means the length never became known; such an
		// interval can accumulate time but never complete.
		if state.Duration > 0 {
			ratio := float64(state.Position) / float64(state.Duration)
			completed = ratio >= 0.8 || state.Position >= state.Duration-1000
		}

		t.startedAt = time.Time{}
	}
	t.mu.Unlock()

	if !report {
		return
	}

	if err := t.reporter.RecordListeningTime(ctx, elapsedMs); err != nil {
		logger.Warn("Failed to record listening time",
			logger.Int64("elapsedMs", elapsedMs),
			logger.ErrorField(err))
	}
	if completed {
		if err := t.reporter.RecordCompletion(ctx, meditationID, elapsedMs); err != nil {
			logger.Warn("Failed to record completion",
				logger.String("meditationId", meditationID),
				logger.ErrorField(err))
		}
	}
}
