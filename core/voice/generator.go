package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Bt1Zen/core/audiocache"
	"Bt1Zen/logger"
	"Bt1Zen/model"
)

// DefaultSynthesisTimeout bounds one synthesis run.
const DefaultSynthesisTimeout = 30 * time.Second

// ErrSynthesisTimeout is returned when synthesis does not finish within the
// configured timeout.
var ErrSynthesisTimeout = errors.New("audio synthesis timed out")

// inflightGeneration lets concurrent requests for the same meditation share
// one synthesis run.
type inflightGeneration struct {
	done chan struct{}
	ref  string
	err  error
}

// Generator resolves meditation audio: cached reference if present,
// otherwise one synthesis run shared by all concurrent callers.
type Generator struct {
	cache   *audiocache.AudioCache
	synth   Synthesizer
	timeout time.Duration

	mu       sync.Mutex
	inflight map[string]*inflightGeneration
}

// NewGenerator creates a generator over the cache and synthesizer. A
// non-positive timeout falls back to DefaultSynthesisTimeout.
func NewGenerator(cache *audiocache.AudioCache, synth Synthesizer, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultSynthesisTimeout
	}
	return &Generator{
		cache:    cache,
		synth:    synth,
		timeout:  timeout,
		inflight: make(map[string]*inflightGeneration),
	}
}

// GetOrGenerate returns a playable reference for the meditation's audio,
// synthesizing and caching it on a miss. Concurrent calls for the same
// meditation id join the in-flight run instead of starting another.
func (g *Generator) GetOrGenerate(ctx context.Context, meditationID, text string, opts model.VoiceOptions) (string, error) {
	if ref, ok := g.cache.GetCachedAudio(ctx, meditationID); ok {
		return ref, nil
	}

	g.mu.Lock()
	if running, ok := g.inflight[meditationID]; ok {
		g.mu.Unlock()
		select {
		case <-running.done:
			return running.ref, running.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	run := &inflightGeneration{done: make(chan struct{})}
	g.inflight[meditationID] = run
	g.mu.Unlock()

	run.ref, run.err = g.generate(ctx, meditationID, text, opts)

	g.mu.Lock()
	delete(g.inflight, meditationID)
	g.mu.Unlock()
	close(run.done)

	return run.ref, run.err
}

func (g *Generator) generate(ctx context.Context, meditationID, text string, opts model.VoiceOptions) (string, error) {
	start := time.Now()

	synthCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	generated, err := g.synth.Synthesize(synthCtx, text, opts)
	if err != nil {
		if errors.Is(synthCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrSynthesisTimeout, g.timeout)
		}
		return "", fmt.Errorf("failed to synthesize meditation %s: %w", meditationID, err)
	}

	ref := g.cache.CacheAudio(ctx, meditationID, generated)

	logger.Info("Generated meditation audio",
		logger.String("meditationId", meditationID),
		logger.String("voice", generated.VoiceUsed),
		logger.Duration("took", time.Since(start)))

	return ref, nil
}
