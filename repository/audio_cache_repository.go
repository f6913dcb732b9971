package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Bt1Zen/db"
)

// AudioCacheRecord is the durable metadata row for one generated-audio
// entry. The payload itself lives in object storage under ObjectKey.
type AudioCacheRecord struct {
	ID           string
	MeditationID string
	ObjectKey    string
	Duration     int
	VoiceUsed    string
	PayloadSize  int64
	GeneratedAt  time.Time
	LastAccessed time.Time
}

// AudioCacheRepository defines the durable metadata operations backing the
// generated-audio cache.
type AudioCacheRepository interface {
	PutRecord(ctx context.Context, record *AudioCacheRecord) error
	GetLatestByMeditationID(ctx context.Context, meditationID string) (*AudioCacheRecord, error)
	HasMeditation(ctx context.Context, meditationID string) (bool, error)
	TouchAccess(ctx context.Context, id string, accessedAt time.Time) error
	RecordsOlderThan(ctx context.Context, cutoff time.Time) ([]*AudioCacheRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	AllObjectKeys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// mysqlAudioCacheRepository implements AudioCacheRepository for MySQL.
type mysqlAudioCacheRepository struct {
	DB *sql.DB
}

// NewMySQLAudioCacheRepository creates a new instance of mysqlAudioCacheRepository.
func NewMySQLAudioCacheRepository() AudioCacheRepository {
	return &mysqlAudioCacheRepository{DB: db.DB}
}

// PutRecord inserts or replaces a metadata row. Writes are last-write-wins
// per id so concurrent populates for the same generation never duplicate.
func (r *mysqlAudioCacheRepository) PutRecord(ctx context.Context, record *AudioCacheRecord) error {
	query := `INSERT INTO generated_audio (id, meditation_id, object_key, duration, voice_used, payload_size, generated_at, last_accessed)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE object_key = VALUES(object_key), duration = VALUES(duration),
	           voice_used = VALUES(voice_used), payload_size = VALUES(payload_size), last_accessed = VALUES(last_accessed)`
	stmt, err := r.DB.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for PutRecord: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, record.ID, record.MeditationID, record.ObjectKey,
		record.Duration, record.VoiceUsed, record.PayloadSize, record.GeneratedAt, record.LastAccessed)
	if err != nil {
		return fmt.Errorf("failed to execute PutRecord: %w", err)
	}
	return nil
}

// GetLatestByMeditationID retrieves the most recent generation for a
// meditation, or nil when none exists.
func (r *mysqlAudioCacheRepository) GetLatestByMeditationID(ctx context.Context, meditationID string) (*AudioCacheRecord, error) {
	query := `SELECT id, meditation_id, object_key, duration, voice_used, payload_size, generated_at, last_accessed
	           FROM generated_audio WHERE meditation_id = ? ORDER BY generated_at DESC LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, meditationID)

	record := &AudioCacheRecord{}
	err := row.Scan(&record.ID, &record.MeditationID, &record.ObjectKey, &record.Duration,
		&record.VoiceUsed, &record.PayloadSize, &record.GeneratedAt, &record.LastAccessed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // no generation cached
		}
		return nil, fmt.Errorf("failed to scan record for meditation %s: %w", meditationID, err)
	}
	return record, nil
}

// HasMeditation reports whether any generation exists for a meditation
// without touching access times.
func (r *mysqlAudioCacheRepository) HasMeditation(ctx context.Context, meditationID string) (bool, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generated_audio WHERE meditation_id = ?`, meditationID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count records for meditation %s: %w", meditationID, err)
	}
	return count > 0, nil
}

// TouchAccess refreshes last_accessed for a single entry.
func (r *mysqlAudioCacheRepository) TouchAccess(ctx context.Context, id string, accessedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE generated_audio SET last_accessed = ? WHERE id = ?`, accessedAt, id)
	if err != nil {
		return fmt.Errorf("failed to touch access time for %s: %w", id, err)
	}
	return nil
}

// RecordsOlderThan lists entries whose generated_at predates the cutoff.
// Eviction is keyed on creation age, never on access recency.
func (r *mysqlAudioCacheRepository) RecordsOlderThan(ctx context.Context, cutoff time.Time) ([]*AudioCacheRecord, error) {
	query := `SELECT id, meditation_id, object_key, duration, voice_used, payload_size, generated_at, last_accessed
	           FROM generated_audio WHERE generated_at < ?`
	rows, err := r.DB.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query records older than %s: %w", cutoff, err)
	}
	defer rows.Close()

	records := make([]*AudioCacheRecord, 0)
	for rows.Next() {
		record := &AudioCacheRecord{}
		err := rows.Scan(&record.ID, &record.MeditationID, &record.ObjectKey, &record.Duration,
			&record.VoiceUsed, &record.PayloadSize, &record.GeneratedAt, &record.LastAccessed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record in RecordsOlderThan: %w", err)
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in RecordsOlderThan: %w", err)
	}
	return records, nil
}

// DeleteOlderThan removes entries whose generated_at predates the cutoff
// and returns the number of rows removed.
func (r *mysqlAudioCacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM generated_audio WHERE generated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records older than %s: %w", cutoff, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows for DeleteOlderThan: %w", err)
	}
	return affected, nil
}

// AllObjectKeys lists every stored object key, used when clearing the cache
// so payload objects can be released alongside their metadata.
func (r *mysqlAudioCacheRepository) AllObjectKeys(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT object_key FROM generated_audio`)
	if err != nil {
		return nil, fmt.Errorf("failed to query object keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan object key: %w", err)
		}
		keys = append(keys, key)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in AllObjectKeys: %w", err)
	}
	return keys, nil
}

// Clear removes every metadata row.
func (r *mysqlAudioCacheRepository) Clear(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM generated_audio`); err != nil {
		return fmt.Errorf("failed to clear generated_audio table: %w", err)
	}
	return nil
}
