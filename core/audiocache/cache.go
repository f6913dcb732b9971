package audiocache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Bt1Zen/logger"
	"Bt1Zen/model"
)

// DurableStore is the persistence tier behind the generated-audio cache.
// Entries are keyed by generation id and indexed by meditation id; writes
// are upserts (last-write-wins).
type DurableStore interface {
	Put(ctx context.Context, entry *model.CachedAudioEntry) error
	GetByMeditationID(ctx context.Context, meditationID string) (*model.CachedAudioEntry, error)
	Has(ctx context.Context, meditationID string) (bool, error)
	Touch(ctx context.Context, entryID string, accessedAt time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Clear(ctx context.Context) error
}

// DefaultMaxAgeDays is the retention period for generated audio, measured
// against generation time. Access recency never extends retention: old TTS
// renders are meant to age out and be refreshed.
const DefaultMaxAgeDays = 7

// AudioCache stores synthesized meditation audio in a fast in-memory tier
// and a durable tier, hiding the cost of re-synthesis behind a cache check.
type AudioCache struct {
	mu     sync.RWMutex
	memory map[string]*model.CachedAudioEntry // keyed by meditation id
	store  DurableStore
	refs   *ReferenceRegistry

	nowFunc func() time.Time
}

// NewAudioCache creates a cache over the given durable store.
func NewAudioCache(store DurableStore) *AudioCache {
	return &AudioCache{
		memory:  make(map[string]*model.CachedAudioEntry),
		store:   store,
		refs:    NewReferenceRegistry(),
		nowFunc: time.Now,
	}
}

// Refs exposes the reference registry so the serving layer can resolve
// minted references.
func (c *AudioCache) Refs() *ReferenceRegistry {
	return c.refs
}

// CacheAudio stores a freshly synthesized payload in both tiers and returns
// a playable reference. The memory tier is updated unconditionally; the
// durable write is best-effort — it is retried once, and a second failure is
// logged as a warning since the audio stays usable for this session.
func (c *AudioCache) CacheAudio(ctx context.Context, meditationID string, generated *model.GeneratedAudio) string {
	now := c.nowFunc()
	entry := &model.CachedAudioEntry{
		ID:           fmt.Sprintf("meditation_%s_%d", meditationID, now.UnixMilli()),
		MeditationID: meditationID,
		Payload:      generated.Payload,
		PlayableRef:  c.refs.Mint(generated.Payload),
		Duration:     generated.Duration,
		VoiceUsed:    generated.VoiceUsed,
		GeneratedAt:  now,
		LastAccessed: now,
	}

	c.mu.Lock()
	if prev, ok := c.memory[meditationID]; ok {
		c.refs.Revoke(prev.PlayableRef)
	}
	c.memory[meditationID] = entry
	c.mu.Unlock()

	if err := c.store.Put(ctx, entry); err != nil {
		logger.Warn("Durable cache write failed, retrying once",
			logger.String("meditationId", meditationID),
			logger.ErrorField(err))
		if err := c.store.Put(ctx, entry); err != nil {
			logger.Warn("Durable cache write failed; entry is memory-only this session",
				logger.String("meditationId", meditationID),
				logger.ErrorField(err))
		}
	}

	return entry.PlayableRef
}

// GetCachedAudio returns a playable reference for previously generated
// audio. The memory tier is checked first without any I/O; on a miss the
// durable tier is consulted and, on a hit, a new session-scoped reference
// is minted and the memory tier repopulated. A false return means "must
// synthesize" — durable-store failures are treated as misses, not errors.
func (c *AudioCache) GetCachedAudio(ctx context.Context, meditationID string) (string, bool) {
	now := c.nowFunc()

	c.mu.Lock()
	if entry, ok := c.memory[meditationID]; ok {
		entry.LastAccessed = now
		ref := entry.PlayableRef
		c.mu.Unlock()
		return ref, true
	}
	c.mu.Unlock()

	entry, err := c.store.GetByMeditationID(ctx, meditationID)
	if err != nil {
		logger.Warn("Durable cache read failed, treating as miss",
			logger.String("meditationId", meditationID),
			logger.ErrorField(err))
		return "", false
	}
	if entry == nil {
		return "", false
	}

	// Stored references never survive a restart; mint a fresh one.
	entry.PlayableRef = c.refs.Mint(entry.Payload)
	entry.LastAccessed = now

	c.mu.Lock()
	if existing, ok := c.memory[meditationID]; ok {
		// A concurrent cold read repopulated first. Keep its entry and
		// release ours, or the losing reference would stay pinned in the
		// registry with nothing left to revoke it.
		c.refs.Revoke(entry.PlayableRef)
		existing.LastAccessed = now
		ref := existing.PlayableRef
		c.mu.Unlock()
		return ref, true
	}
	c.memory[meditationID] = entry
	c.mu.Unlock()

	if err := c.store.Touch(ctx, entry.ID, now); err != nil {
		logger.Warn("Failed to refresh access time in durable cache",
			logger.String("entryId", entry.ID),
			logger.ErrorField(err))
	}

	return entry.PlayableRef, true
}

// HasCachedAudio reports whether generated audio exists in either tier.
// It never mutates access times.
func (c *AudioCache) HasCachedAudio(ctx context.Context, meditationID string) bool {
	c.mu.RLock()
	_, ok := c.memory[meditationID]
	c.mu.RUnlock()
	if ok {
		return true
	}

	has, err := c.store.Has(ctx, meditationID)
	if err != nil {
		logger.Warn("Durable cache existence check failed",
			logger.String("meditationId", meditationID),
			logger.ErrorField(err))
		return false
	}
	return has
}

// ClearCache empties both tiers, revoking every minted reference before
// dropping the entries that back them.
func (c *AudioCache) ClearCache(ctx context.Context) error {
	c.mu.Lock()
	for _, entry := range c.memory {
		c.refs.Revoke(entry.PlayableRef)
	}
	c.memory = make(map[string]*model.CachedAudioEntry)
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear durable cache: %w", err)
	}

	logger.Info("Generated-audio cache cleared")
	return nil
}

// CleanupOldCache removes entries generated before the cutoff from both
// tiers. Eviction is keyed on GeneratedAt: an entry accessed a minute ago
// but generated beyond the cutoff is still evicted.
func (c *AudioCache) CleanupOldCache(ctx context.Context, maxAgeDays int) error {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultMaxAgeDays
	}
	cutoff := c.nowFunc().AddDate(0, 0, -maxAgeDays)

	c.mu.Lock()
	for meditationID, entry := range c.memory {
		if entry.GeneratedAt.Before(cutoff) {
			c.refs.Revoke(entry.PlayableRef)
			delete(c.memory, meditationID)
		}
	}
	c.mu.Unlock()

	removed, err := c.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up durable cache: %w", err)
	}

	logger.Info("Old generated-audio entries cleaned up",
		logger.Int64("durableRemoved", removed),
		logger.String("cutoff", cutoff.Format(time.RFC3339)))
	return nil
}

// GetCacheSize sums payload sizes resident in the memory tier. Durable-tier
// size is not tracked.
func (c *AudioCache) GetCacheSize() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, entry := range c.memory {
		total += int64(len(entry.Payload))
	}
	return total
}
