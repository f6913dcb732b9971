package playback

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"Bt1Zen/logger"
	"Bt1Zen/model"
)

// Playback speed bounds. The audio primitive itself accepts anything, so
// the session validates before passing a rate through.
const (
	MinPlaybackSpeed = 0.25
	MaxPlaybackSpeed = 4.0
)

// ErrSpeedOutOfRange is returned when a requested playback speed falls
// outside [MinPlaybackSpeed, MaxPlaybackSpeed].
var ErrSpeedOutOfRange = errors.New("playback speed out of range")

// DefaultSkipSeconds is the skip distance when none is given.
const DefaultSkipSeconds = 15

// Listener receives every playback state change, synchronously.
type Listener func(model.PlaybackState)

// Options tune a Session. Zero values fall back to production defaults.
type Options struct {
	PollInterval time.Duration // position poll cadence while playing
	SettleDelay  time.Duration // wait before sampling a freshly built handle
}

// Session owns the zero-or-one active playback handle for the process and
// translates imperative commands into a polled observable state. Commands
// never return handle errors; failures surface through PlaybackState.Error
// on the subscription stream.
type Session struct {
	mu        sync.Mutex
	factory   PlayerFactory
	player    Player
	track     *model.AudioTrack
	state     model.PlaybackState
	listeners map[int]Listener
	nextID    int

	pollInterval time.Duration
	settleDelay  time.Duration

	// generation is bumped on every handle replacement or teardown so
	// stale poll ticks and settle callbacks from a superseded load can
	// never clobber fresh state.
	generation uint64
	pollStop   chan struct{}

	activePolls int32 // poll loops currently running
}

// NewSession creates a session producing players from the given factory.
func NewSession(factory PlayerFactory, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 500 * time.Millisecond
	}
	return &Session{
		factory:      factory,
		listeners:    make(map[int]Listener),
		state:        model.PlaybackState{PlaybackSpeed: 1.0},
		pollInterval: opts.PollInterval,
		settleDelay:  opts.SettleDelay,
	}
}

// snapshotLocked copies the current state and listener set; callers hold mu
// and notify after unlocking.
func (s *Session) snapshotLocked() (model.PlaybackState, []Listener) {
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	return s.state, listeners
}

func notify(state model.PlaybackState, listeners []Listener) {
	for _, l := range listeners {
		l(state)
	}
}

// Subscribe registers a state listener. The listener is immediately invoked
// once with the current state. The returned function removes the listener.
func (s *Session) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	state := s.state
	s.mu.Unlock()

	l(state)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// State returns the current playback state snapshot.
func (s *Session) State() model.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentTrack returns the loaded track, or nil.
func (s *Session) CurrentTrack() *model.AudioTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// LoadTrack replaces any existing handle with one bound to the track. The
// old poll loop is cancelled before the new handle is installed. Handle
// readiness is not directly observable, so the session samples the handle
// after a settle delay; a settle callback from a superseded load is dropped.
func (s *Session) LoadTrack(track model.AudioTrack) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.stopPollLocked()
	s.player = nil
	s.track = &track
	s.state.IsLoading = true
	s.state.IsPlaying = false
	s.state.Error = ""
	state, listeners := s.snapshotLocked()
	s.mu.Unlock()
	notify(state, listeners)

	player, err := s.factory(track)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return // superseded by a newer load or teardown
	}
	if err != nil {
		logger.Error("Failed to load track",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
		s.state.Error = fmt.Sprintf("Failed to load audio: %v", err)
		s.state.IsLoading = false
		s.state.IsLoaded = false
		state, listeners = s.snapshotLocked()
		s.mu.Unlock()
		notify(state, listeners)
		return
	}
	s.player = player
	s.mu.Unlock()

	time.AfterFunc(s.settleDelay, func() {
		s.applySettle(gen)
	})
}

// applySettle samples the handle once the settle delay has elapsed.
func (s *Session) applySettle(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.player == nil {
		s.mu.Unlock()
		return
	}
	s.state.IsLoaded = s.player.IsLoaded()
	s.state.IsPlaying = s.player.Playing()
	s.state.Position = int64(s.player.CurrentTime() * 1000)
	s.state.Duration = int64(s.player.Duration() * 1000)
	s.state.IsLoading = false
	state, listeners := s.snapshotLocked()
	s.mu.Unlock()
	notify(state, listeners)
}

// Play starts playback and the position poll loop. With no track loaded it
// is a silent no-op.
func (s *Session) Play() {
	s.mu.Lock()
	if s.player == nil {
		s.mu.Unlock()
		logger.Debug("Play requested with no track loaded")
		return
	}
	if err := s.player.Play(); err != nil {
		s.state.Error = fmt.Sprintf("Failed to play: %v", err)
		state, listeners := s.snapshotLocked()
		s.mu.Unlock()
		notify(state, listeners)
		return
	}
	s.state.IsPlaying = true
	// A play that lands inside the settle window ends the load transition
	// early; the handle just proved it is usable.
	s.state.IsLoading = false
	s.state.IsLoaded = s.player.IsLoaded()
	s.startPollLocked()
	state, listeners := s.snapshotLocked()
	s.mu.Unlock()
	notify(state, listeners)
}

// Pause stops playback and tears the poll loop down.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.player == nil {
		s.mu.Unlock()
		return
	}
	if err := s.player.Pause(); err != nil {
		s.state.Error = fmt.Sprintf("Failed to pause: %v", err)
		state, listeners := s.snapshotLocked()
		s.mu.Unlock()
		notify(state, listeners)
		return
	}
	s.state.IsPlaying = false
	s.stopPollLocked()
	state, listeners := s.snapshotLocked()
	s.mu.Unlock()
	notify(state, listeners)
}

// Stop pauses and rewinds to the start. The handle is kept; only a new
// LoadTrack or Cleanup discards it.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.player == nil {
		s.mu.Unlock()
		return
	}
	if err := s.player.Pause(); err != nil {
		s.state.Error = fmt.Sprintf("Failed to stop: %v", err)
		state, listeners := s.snapshotLocked()
		s.mu.Unlock()
		notify(state, listeners)
		return
	}
	if err := s.player.SeekTo(0); err != nil {
		s.state.Error = fmt.Sprintf("Failed to stop: %v", err)
	}
	s.state.IsPlaying = false
	s.state.Position = 0
	s.stopPollLocked()
	state, listeners := s.snapshotLocked()
	s.mu.Unlock()
	notify(state, listeners)
}

// SeekTo moves playback to the given position in milliseconds. The state
// reflects the requested position immediately rather than waiting for the
// next poll tick to confirm.
func (s *Session) SeekTo(positionMs int64) {
	s.mu.Lock()
	if s.player == nil {
		s.mu.Unlock()
		return
	}
	if err := s.player.SeekTo(float64(positionMs) / 1000); err != nil {
		s.state.Error = fmt.Sprintf("Failed to seek: %v", err)
		state, listeners := s.snapshotLocked()
		s.mu.Unlock()
		notify(state, listeners)
		return
	}
	s.state.Position = positionMs
	state, listeners := s.snapshotLocked()
	s.mu.Unlock()
	notify(state, listeners)
}

// SetPlaybackSpeed changes the playback rate. Speeds outside the supported
// range are rejected with ErrSpeedOutOfRange before touching the handle.
func (s *Session) SetPlaybackSpeed(speed float64) error {
	if speed < MinPlaybackSpeed || speed > MaxPlaybackSpeed {
		return fmt.Errorf("%w: %v", ErrSpeedOutOfRange, speed)
	}

	s.mu.Lock()
	if s.player == nil {
		s.mu.Unlock()
		return nil
	}
	if err := s.player.SetPlaybackRate(speed); err != nil {
		s.state.Error = fmt.Sprintf("Failed to set speed: %v", err)
		state, listeners := s.snapshotLocked()
		s.mu.Unlock()
		notify(state, listeners)
		return nil
	}
	s.state.PlaybackSpeed = speed
	state, listeners := s.snapshotLocked()
	s.mu.Unlock()
	notify(state, listeners)
	return nil
}

// SkipForward seeks ahead by the given number of seconds, clamped to the
// track duration.
func (s *Session) SkipForward(seconds int64) {
	if seconds <= 0 {
		seconds = DefaultSkipSeconds
	}
	s.mu.Lock()
	target := s.state.Position + seconds*1000
	if target > s.state.Duration {
		target = s.state.Duration
	}
	s.mu.Unlock()
	s.SeekTo(target)
}

// SkipBackward seeks back by the given number of seconds, clamped to zero.
func (s *Session) SkipBackward(seconds int64) {
	if seconds <= 0 {
		seconds = DefaultSkipSeconds
	}
	s.mu.Lock()
	target := s.state.Position - seconds*1000
	if target < 0 {
		target = 0
	}
	s.mu.Unlock()
	s.SeekTo(target)
}

// Replay rewinds to the start and begins playback if not already playing.
func (s *Session) Replay() {
	s.SeekTo(0)
	s.mu.Lock()
	playing := s.state.IsPlaying
	s.mu.Unlock()
	if !playing {
		s.Play()
	}
}

// Cleanup tears the session down: the poll loop is cancelled, the handle
// and listeners dropped, and the state reset.
func (s *Session) Cleanup() {
	s.mu.Lock()
	s.generation++
	s.stopPollLocked()
	s.player = nil
	s.track = nil
	s.listeners = make(map[int]Listener)
	s.state = model.PlaybackState{PlaybackSpeed: 1.0}
	s.mu.Unlock()
}

// startPollLocked launches the poll loop if one is not already running;
// callers hold mu.
func (s *Session) startPollLocked() {
	if s.pollStop != nil {
		return
	}
	stop := make(chan struct{})
	s.pollStop = stop
	gen := s.generation
	atomic.AddInt32(&s.activePolls, 1)
	go s.pollLoop(stop, gen)
}

// stopPollLocked cancels the poll loop synchronously with the state change
// that leaves "playing"; callers hold mu. A tick already blocked on mu will
// observe the cleared channel or bumped generation and drop its sample.
func (s *Session) stopPollLocked() {
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
}

func (s *Session) pollLoop(stop chan struct{}, gen uint64) {
	defer atomic.AddInt32(&s.activePolls, -1)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.pollTick(gen)
		}
	}
}

// pollTick samples the handle and publishes position/duration/play-flag.
func (s *Session) pollTick(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.pollStop == nil || s.player == nil || !s.state.IsPlaying {
		s.mu.Unlock()
		return
	}
	s.state.Position = int64(s.player.CurrentTime() * 1000)
	s.state.Duration = int64(s.player.Duration() * 1000)
	s.state.IsPlaying = s.player.Playing()
	if !s.state.IsPlaying {
		s.stopPollLocked()
	}
	state, listeners := s.snapshotLocked()
	s.mu.Unlock()
	notify(state, listeners)
}
