package playback

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Bt1Zen/model"
)

// fakePlayer is a scriptable Player for session tests.
type fakePlayer struct {
	mu       sync.Mutex
	playing  bool
	position float64
	duration float64
	rate     float64

	playErr  error
	pauseErr error
	seekErr  error
	rateErr  error
}

func newFakePlayer(duration float64) *fakePlayer {
	return &fakePlayer{duration: duration, rate: 1.0}
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	p.playing = true
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pauseErr != nil {
		return p.pauseErr
	}
	p.playing = false
	return nil
}

func (p *fakePlayer) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seekErr != nil {
		return p.seekErr
	}
	p.position = seconds
	return nil
}

func (p *fakePlayer) SetPlaybackRate(rate float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rateErr != nil {
		return p.rateErr
	}
	p.rate = rate
	return nil
}

func (p *fakePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) IsLoaded() bool { return true }

func testOptions() Options {
	return Options{
		PollInterval: 10 * time.Millisecond,
		SettleDelay:  5 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func polls(s *Session) int32 {
	return atomic.LoadInt32(&s.activePolls)
}

func TestSubscribeReplaysCurrentState(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) { return newFakePlayer(10), nil }, testOptions())

	var got []model.PlaybackState
	var mu sync.Mutex
	unsub := s.Subscribe(func(st model.PlaybackState) {
		mu.Lock()
		got = append(got, st)
		mu.Unlock()
	})

	mu.Lock()
	if len(got) != 1 {
		t.Fatalf("expected one replayed state, got %d", len(got))
	}
	if got[0].PlaybackSpeed != 1.0 {
		t.Errorf("replayed speed = %v, want 1.0", got[0].PlaybackSpeed)
	}
	if got[0].IsPlaying || got[0].IsLoaded || got[0].IsLoading {
		t.Errorf("replayed state should be idle, got %+v", got[0])
	}
	mu.Unlock()

	unsub()
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	if len(got) != 1 {
		t.Errorf("listener received %d states after unsubscribe, want 1", len(got))
	}
	mu.Unlock()
}

func TestLoadTrackSettlesIntoLoadedState(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) { return newFakePlayer(600), nil }, testOptions())

	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u", Duration: 600000})

	waitFor(t, func() bool {
		st := s.State()
		return !st.IsLoading && st.IsLoaded
	}, "settle")

	st := s.State()
	if st.Duration != 600000 {
		t.Errorf("Duration = %d, want 600000", st.Duration)
	}
	if st.IsPlaying {
		t.Error("freshly loaded track should not be playing")
	}
	if s.CurrentTrack() == nil || s.CurrentTrack().ID != "m1" {
		t.Errorf("CurrentTrack = %+v, want m1", s.CurrentTrack())
	}
}

func TestLoadTrackFactoryErrorSurfacesInState(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) {
		return nil, errors.New("bad source")
	}, testOptions())

	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})

	waitFor(t, func() bool { return s.State().Error != "" }, "load error")

	st := s.State()
	if st.IsLoading || st.IsLoaded {
		t.Errorf("failed load should leave an unloaded, non-loading state, got %+v", st)
	}

	// Play on a session without a handle is a no-op, not a panic.
	s.Play()
	if polls(s) != 0 {
		t.Errorf("activePolls = %d after no-op play, want 0", polls(s))
	}
}

func TestPlayRunsExactlyOnePollLoop(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) { return newFakePlayer(600), nil }, testOptions())
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")

	s.Play()
	s.Play()
	s.Play()

	if got := polls(s); got != 1 {
		t.Fatalf("activePolls = %d after repeated play, want 1", got)
	}
	if !s.State().IsPlaying {
		t.Error("state should be playing")
	}

	s.Pause()
	if s.State().IsPlaying {
		t.Error("state should not be playing after pause")
	}
	waitFor(t, func() bool { return polls(s) == 0 }, "poll loop shutdown")
}

func TestLoadTrackCancelsPreviousPollLoop(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) { return newFakePlayer(600), nil }, testOptions())
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")
	s.Play()
	if polls(s) != 1 {
		t.Fatalf("activePolls = %d, want 1", polls(s))
	}

	s.LoadTrack(model.AudioTrack{ID: "m2", URL: "u2"})

	waitFor(t, func() bool { return polls(s) == 0 }, "old poll loop shutdown")
	st := s.State()
	if st.IsPlaying {
		t.Error("loading a new track must not inherit the playing flag")
	}
	if s.CurrentTrack() == nil || s.CurrentTrack().ID != "m2" {
		t.Errorf("CurrentTrack = %+v, want m2", s.CurrentTrack())
	}
}

func TestPlayErrorKeepsPollLoopStopped(t *testing.T) {
	player := newFakePlayer(600)
	player.playErr = errors.New("device busy")
	s := NewSession(func(model.AudioTrack) (Player, error) { return player, nil }, testOptions())
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")

	s.Play()

	st := s.State()
	if st.Error == "" {
		t.Error("play failure should surface in state.Error")
	}
	if st.IsPlaying {
		t.Error("play failure must not mark state as playing")
	}
	if polls(s) != 0 {
		t.Errorf("activePolls = %d after failed play, want 0", polls(s))
	}
}

func TestSetPlaybackSpeedValidatesRange(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) { return newFakePlayer(600), nil }, testOptions())
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")

	for _, speed := range []float64{0.1, 4.5, -1, 0} {
		if err := s.SetPlaybackSpeed(speed); !errors.Is(err, ErrSpeedOutOfRange) {
			t.Errorf("SetPlaybackSpeed(%v) = %v, want ErrSpeedOutOfRange", speed, err)
		}
	}
	if got := s.State().PlaybackSpeed; got != 1.0 {
		t.Errorf("rejected speed leaked into state: %v", got)
	}

	for _, speed := range []float64{0.25, 1.5, 4.0} {
		if err := s.SetPlaybackSpeed(speed); err != nil {
			t.Errorf("SetPlaybackSpeed(%v) = %v, want nil", speed, err)
		}
		if got := s.State().PlaybackSpeed; got != speed {
			t.Errorf("state speed = %v, want %v", got, speed)
		}
	}
}

func TestSkipClampsToTrackBounds(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) { return newFakePlayer(600), nil }, testOptions())
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")

	s.SeekTo(590000)
	s.SkipForward(30)
	if got := s.State().Position; got != 600000 {
		t.Errorf("forward skip past the end: position = %d, want 600000", got)
	}

	s.SeekTo(5000)
	s.SkipBackward(30)
	if got := s.State().Position; got != 0 {
		t.Errorf("backward skip past the start: position = %d, want 0", got)
	}

	s.SeekTo(100000)
	s.SkipForward(0) // default distance
	if got := s.State().Position; got != 115000 {
		t.Errorf("default forward skip: position = %d, want 115000", got)
	}
}

func TestStopRewindsButKeepsHandle(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) { return newFakePlayer(600), nil }, testOptions())
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")

	s.Play()
	s.SeekTo(42000)
	s.Stop()

	st := s.State()
	if st.IsPlaying || st.Position != 0 {
		t.Errorf("after stop: playing=%v position=%d, want stopped at 0", st.IsPlaying, st.Position)
	}
	waitFor(t, func() bool { return polls(s) == 0 }, "poll loop shutdown")

	// Handle survives a stop: play resumes without reloading.
	s.Play()
	if !s.State().IsPlaying {
		t.Error("play after stop should work on the retained handle")
	}
	if polls(s) != 1 {
		t.Errorf("activePolls = %d, want 1", polls(s))
	}
	s.Cleanup()
}

func TestReplayRestartsFromZero(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) { return newFakePlayer(600), nil }, testOptions())
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")

	s.SeekTo(300000)
	s.Replay()

	st := s.State()
	if st.Position != 0 {
		t.Errorf("replay position = %d, want 0", st.Position)
	}
	if !st.IsPlaying {
		t.Error("replay should start playback")
	}
	s.Cleanup()
}

func TestStaleSettleFromSupersededLoadIsDropped(t *testing.T) {
	durations := map[string]float64{"a": 100, "b": 200}
	s := NewSession(func(track model.AudioTrack) (Player, error) {
		return newFakePlayer(durations[track.URL]), nil
	}, Options{PollInterval: 10 * time.Millisecond, SettleDelay: 20 * time.Millisecond})

	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "a"})
	s.LoadTrack(model.AudioTrack{ID: "m2", URL: "b"})

	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")
	time.Sleep(40 * time.Millisecond) // let the first settle timer fire too

	if got := s.State().Duration; got != 200000 {
		t.Errorf("state duration = %d, want the second track's 200000", got)
	}
	if s.CurrentTrack().ID != "m2" {
		t.Errorf("CurrentTrack = %s, want m2", s.CurrentTrack().ID)
	}
}

func TestPlayDuringSettleWindowEndsLoadTransition(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) { return newFakePlayer(600), nil },
		Options{PollInterval: 10 * time.Millisecond, SettleDelay: 200 * time.Millisecond})

	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	s.Play() // settle timer has not fired yet

	st := s.State()
	if st.IsLoading {
		t.Error("successful play must end the load transition")
	}
	if !st.IsPlaying || !st.IsLoaded {
		t.Errorf("state after early play = %+v, want playing and loaded", st)
	}

	// The settle callback still lands and must not regress the state.
	waitFor(t, func() bool { return s.State().Duration == 600000 }, "settle")
	st = s.State()
	if !st.IsPlaying || st.IsLoading {
		t.Errorf("state after settle = %+v, want still playing", st)
	}
	s.Cleanup()
}

func TestPollPublishesPositionWhilePlaying(t *testing.T) {
	player := newFakePlayer(600)
	s := NewSession(func(model.AudioTrack) (Player, error) { return player, nil }, testOptions())
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")

	s.Play()
	player.mu.Lock()
	player.position = 123
	player.mu.Unlock()

	waitFor(t, func() bool { return s.State().Position == 123000 }, "poll to publish position")
	s.Cleanup()
}

func TestPollStopsWhenPlaybackEnds(t *testing.T) {
	player := newFakePlayer(600)
	s := NewSession(func(model.AudioTrack) (Player, error) { return player, nil }, testOptions())
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")

	s.Play()
	player.mu.Lock()
	player.playing = false
	player.position = 600
	player.mu.Unlock()

	waitFor(t, func() bool { return polls(s) == 0 }, "poll loop to stop itself")
	if s.State().IsPlaying {
		t.Error("state should reflect that playback ended")
	}
}

func TestCleanupResetsSession(t *testing.T) {
	s := NewSession(func(model.AudioTrack) (Player, error) { return newFakePlayer(600), nil }, testOptions())
	s.LoadTrack(model.AudioTrack{ID: "m1", URL: "u"})
	waitFor(t, func() bool { return s.State().IsLoaded }, "settle")
	s.Play()

	s.Cleanup()

	waitFor(t, func() bool { return polls(s) == 0 }, "poll loop shutdown")
	st := s.State()
	if st.IsLoaded || st.IsPlaying || st.IsLoading || st.Position != 0 || st.Duration != 0 {
		t.Errorf("cleanup left residual state: %+v", st)
	}
	if st.PlaybackSpeed != 1.0 {
		t.Errorf("cleanup speed = %v, want 1.0", st.PlaybackSpeed)
	}
	if s.CurrentTrack() != nil {
		t.Error("cleanup should drop the current track")
	}
}
