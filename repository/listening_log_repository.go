package repository

import (
	"context"
	"fmt"

	"Bt1Zen/db"
	"Bt1Zen/model"

	"gorm.io/gorm"
)

// ListeningLogRepository appends reported listening intervals. The log is
// append-only; the progress aggregate itself lives in the progress cache.
type ListeningLogRepository interface {
	Append(ctx context.Context, session *model.ListeningSession) error
	RecentByUser(ctx context.Context, userID int64, limit int) ([]model.ListeningSession, error)
}

// gormListeningLogRepository implements ListeningLogRepository with GORM.
type gormListeningLogRepository struct {
	DB *gorm.DB
}

// NewGormListeningLogRepository creates a new instance of gormListeningLogRepository.
func NewGormListeningLogRepository() ListeningLogRepository {
	return &gormListeningLogRepository{DB: db.GormDB}
}

// Append inserts one listening-session row.
func (r *gormListeningLogRepository) Append(ctx context.Context, session *model.ListeningSession) error {
	if err := r.DB.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to append listening session: %w", err)
	}
	return nil
}

// RecentByUser returns the most recent listening sessions for a user.
func (r *gormListeningLogRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]model.ListeningSession, error) {
	var sessions []model.ListeningSession
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query listening sessions for user %d: %w", userID, err)
	}
	return sessions, nil
}
