package audiocache

import (
	"context"
	"fmt"
	"time"

	"Bt1Zen/logger"
	"Bt1Zen/model"
	"Bt1Zen/repository"
	"Bt1Zen/storage"
)

// mysqlMinioStore is the production DurableStore: metadata rows in MySQL,
// payload bytes in MinIO.
type mysqlMinioStore struct {
	repo    repository.AudioCacheRepository
	objects *storage.AudioObjectStore
}

// NewMySQLMinioStore composes the metadata repository and the object store
// into a DurableStore.
func NewMySQLMinioStore(repo repository.AudioCacheRepository, objects *storage.AudioObjectStore) DurableStore {
	return &mysqlMinioStore{repo: repo, objects: objects}
}

func (s *mysqlMinioStore) Put(ctx context.Context, entry *model.CachedAudioEntry) error {
	objectKey := storage.AudioObjectKey(entry.ID)

	if err := s.objects.PutAudio(ctx, objectKey, entry.Payload); err != nil {
		return fmt.Errorf("failed to store payload for %s: %w", entry.ID, err)
	}

	record := &repository.AudioCacheRecord{
		ID:           entry.ID,
		MeditationID: entry.MeditationID,
		ObjectKey:    objectKey,
		Duration:     entry.Duration,
		VoiceUsed:    entry.VoiceUsed,
		PayloadSize:  int64(len(entry.Payload)),
		GeneratedAt:  entry.GeneratedAt,
		LastAccessed: entry.LastAccessed,
	}
	if err := s.repo.PutRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to store metadata for %s: %w", entry.ID, err)
	}
	return nil
}

func (s *mysqlMinioStore) GetByMeditationID(ctx context.Context, meditationID string) (*model.CachedAudioEntry, error) {
	record, err := s.repo.GetLatestByMeditationID(ctx, meditationID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	payload, err := s.objects.GetAudio(ctx, record.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load payload for %s: %w", record.ID, err)
	}

	return &model.CachedAudioEntry{
		ID:           record.ID,
		MeditationID: record.MeditationID,
		Payload:      payload,
		Duration:     record.Duration,
		VoiceUsed:    record.VoiceUsed,
		GeneratedAt:  record.GeneratedAt,
		LastAccessed: record.LastAccessed,
	}, nil
}

func (s *mysqlMinioStore) Has(ctx context.Context, meditationID string) (bool, error) {
	return s.repo.HasMeditation(ctx, meditationID)
}

func (s *mysqlMinioStore) Touch(ctx context.Context, entryID string, accessedAt time.Time) error {
	return s.repo.TouchAccess(ctx, entryID, accessedAt)
}

func (s *mysqlMinioStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	records, err := s.repo.RecordsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		if err := s.objects.RemoveAudio(ctx, record.ObjectKey); err != nil {
			// Orphaned objects are reclaimed on the next cleanup run.
			logger.Warn("Failed to remove expired audio object",
				logger.String("objectKey", record.ObjectKey),
				logger.ErrorField(err))
		}
	}

	return s.repo.DeleteOlderThan(ctx, cutoff)
}

func (s *mysqlMinioStore) Clear(ctx context.Context) error {
	keys, err := s.repo.AllObjectKeys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.objects.RemoveAudio(ctx, key); err != nil {
			logger.Warn("Failed to remove audio object during clear",
				logger.String("objectKey", key),
				logger.ErrorField(err))
		}
	}

	return s.repo.Clear(ctx)
}
