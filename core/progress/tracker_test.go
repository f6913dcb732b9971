package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"Bt1Zen/model"
)

type reportedInterval struct {
	meditationID string
	elapsedMs    int64
	completed    bool
}

type fakeReporter struct {
	mu        sync.Mutex
	intervals []reportedInterval
}

func (r *fakeReporter) RecordListeningTime(_ context.Context, elapsedMs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intervals = append(r.intervals, reportedInterval{elapsedMs: elapsedMs})
	return nil
}

func (r *fakeReporter) RecordCompletion(_ context.Context, meditationID string, elapsedMs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intervals = append(r.intervals, reportedInterval{meditationID: meditationID, elapsedMs: elapsedMs, completed: true})
	return nil
}

func (r *fakeReporter) all() []reportedInterval {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reportedInterval(nil), r.intervals...)
}

// trackerClock drives the tracker's notion of time.
type trackerClock struct {
	now time.Time
}

func (c *trackerClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker() (*Tracker, *fakeReporter, *trackerClock) {
	reporter := &fakeReporter{}
	clock := &trackerClock{now: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
	tracker := NewTracker(reporter)
	tracker.nowFunc = func() time.Time { return clock.now }
	return tracker, reporter, clock
}

func playing(position, duration int64) model.PlaybackState {
	return model.PlaybackState{IsPlaying: true, IsLoaded: true, Position: position, Duration: duration, PlaybackSpeed: 1.0}
}

func paused(position, duration int64) model.PlaybackState {
	return model.PlaybackState{IsPlaying: false, IsLoaded: true, Position: position, Duration: duration, PlaybackSpeed: 1.0}
}

func TestTrackerReportsElapsedOnPause(t *testing.T) {
	tracker, reporter, clock := newTestTracker()
	ctx := context.Background()
	track := &model.AudioTrack{ID: "med-1"}

	tracker.Observe(ctx, playing(0, 600000), track)
	clock.advance(45 * time.Second)
	tracker.Observe(ctx, paused(45000, 600000), track)

	got := reporter.all()
	if len(got) != 1 {
		t.Fatalf("reported %d intervals, want 1 (time only)", len(got))
	}
	if got[0].elapsedMs != 45000 || got[0].completed {
		t.Errorf("interval = %+v, want 45000ms non-completion", got[0])
	}
}

func TestTrackerCompletionByRatio(t *testing.T) {
	tracker, reporter, clock := newTestTracker()
	ctx := context.Background()
	track := &model.AudioTrack{ID: "med-1"}

	// 80% of a 10-minute track is nowhere near the final second, so this
	// exercises the ratio clause alone.
	tracker.Observe(ctx, playing(0, 600000), track)
	clock.advance(8 * time.Minute)
	tracker.Observe(ctx, paused(480000, 600000), track)

	got := reporter.all()
	if len(got) != 2 {
		t.Fatalf("reported %d intervals, want time + completion", len(got))
	}
	if !got[1].completed || got[1].meditationID != "med-1" {
		t.Errorf("completion = %+v", got[1])
	}
}

func TestTrackerCompletionByEndProximity(t *testing.T) {
	tracker, reporter, clock := newTestTracker()
	ctx := context.Background()
	track := &model.AudioTrack{ID: "med-1"}

	// 3000ms into a 4000ms track is only 75% but within one second of the
	// end, so this exercises the proximity clause alone.
	tracker.Observe(ctx, playing(0, 4000), track)
	clock.advance(3 * time.Second)
	tracker.Observe(ctx, paused(3000, 4000), track)

	got := reporter.all()
	if len(got) != 2 || !got[1].completed {
		t.Fatalf("proximity clause did not complete: %+v", got)
	}
}

func TestTrackerBelowBothClausesNoCompletion(t *testing.T) {
	tracker, reporter, clock := newTestTracker()
	ctx := context.Background()
	track := &model.AudioTrack{ID: "med-1"}

	tracker.Observe(ctx, playing(0, 600000), track)
	clock.advance(time.Minute)
	tracker.Observe(ctx, paused(477000, 600000), track) // 79.5%, 123s from end

	got := reporter.all()
	if len(got) != 1 || got[0].completed {
		t.Fatalf("expected time-only report, got %+v", got)
	}
}

func TestTrackerUnknownDurationNeverCompletes(t *testing.T) {
	tracker, reporter, clock := newTestTracker()
	ctx := context.Background()
	track := &model.AudioTrack{ID: "med-1"}

	tracker.Observe(ctx, playing(0, 0), track)
	clock.advance(time.Minute)
	tracker.Observe(ctx, paused(60000, 0), track)

	got := reporter.all()
	if len(got) != 1 {
		t.Fatalf("reported %d intervals, want 1", len(got))
	}
	if got[0].completed {
		t.Error("a track of unknown length must not complete")
	}
}

func TestTrackerSwitchForfeitsPartialCredit(t *testing.T) {
	tracker, reporter, clock := newTestTracker()
	ctx := context.Background()
	trackA := &model.AudioTrack{ID: "med-a"}
	trackB := &model.AudioTrack{ID: "med-b"}

	tracker.Observe(ctx, playing(0, 600000), trackA)
	clock.advance(10 * time.Second)

	// Loading track B mid-play emits a non-playing state already carrying
	// B's identity. A's 10 seconds must vanish, not be reported.
	tracker.Observe(ctx, model.PlaybackState{IsLoading: true, PlaybackSpeed: 1.0}, trackB)

	if got := reporter.all(); len(got) != 0 {
		t.Fatalf("track switch reported %+v, want nothing", got)
	}

	// The timer restarts cleanly for B.
	tracker.Observe(ctx, playing(0, 300000), trackB)
	clock.advance(40 * time.Second)
	tracker.Observe(ctx, paused(40000, 300000), trackB)

	got := reporter.all()
	if len(got) != 1 || got[0].elapsedMs != 40000 {
		t.Fatalf("after switch, intervals = %+v, want one 40000ms report", got)
	}
}

func TestTrackerIdleStatesReportNothing(t *testing.T) {
	tracker, reporter, _ := newTestTracker()
	ctx := context.Background()

	tracker.Observe(ctx, model.PlaybackState{PlaybackSpeed: 1.0}, nil)
	tracker.Observe(ctx, paused(0, 600000), &model.AudioTrack{ID: "med-1"})
	tracker.Observe(ctx, model.PlaybackState{IsLoading: true, PlaybackSpeed: 1.0}, &model.AudioTrack{ID: "med-1"})

	if got := reporter.all(); len(got) != 0 {
		t.Fatalf("idle states reported %+v", got)
	}
}

func TestTrackerRepeatedPositionUpdatesKeepOneTimer(t *testing.T) {
	tracker, reporter, clock := newTestTracker()
	ctx := context.Background()
	track := &model.AudioTrack{ID: "med-1"}

	tracker.Observe(ctx, playing(0, 600000), track)
	for i := 1; i <= 10; i++ {
		clock.advance(250 * time.Millisecond)
		tracker.Observe(ctx, playing(int64(i)*250, 600000), track)
	}
	clock.advance(500 * time.Millisecond)
	tracker.Observe(ctx, paused(3000, 600000), track)

	got := reporter.all()
	if len(got) != 1 {
		t.Fatalf("reported %d intervals, want 1", len(got))
	}
	if got[0].elapsedMs != 3000 {
		t.Errorf("elapsed = %dms, want 3000 (timer must not restart on poll ticks)", got[0].elapsedMs)
	}
}
