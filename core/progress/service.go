package progress

import (
	"context"
	"fmt"
	"time"

	"Bt1Zen/logger"
	"Bt1Zen/model"
	"Bt1Zen/repository"
)

// MinimumListeningTime is the admissibility gate for completions, in
// milliseconds. Intervals of exactly this length count; anything shorter is
// silently dropped here, never by the tracker.
const MinimumListeningTime = 30000

// MinutesPerLevel drives the level curve: one level per hour listened.
const MinutesPerLevel = 60

const dateLayout = "2006-01-02"

// Store persists the per-user progress aggregate.
type Store interface {
	Get(ctx context.Context, userID int64) (*model.UserProgress, error)
	Set(ctx context.Context, userID int64, progress *model.UserProgress) error
	Delete(ctx context.Context, userID int64) error
}

// Service owns the per-user progress aggregate: listening minutes,
// completion counts and day streaks. It is the collaborator the tracker
// reports into.
type Service struct {
	store  Store
	log    repository.ListeningLogRepository
	userID int64

	nowFunc func() time.Time
}

// NewService creates a progress service for one user. The listening log is
// optional; with a nil log only the aggregate is maintained.
func NewService(store Store, log repository.ListeningLogRepository, userID int64) *Service {
	return &Service{store: store, log: log, userID: userID, nowFunc: time.Now}
}

// loadOrInit returns the stored aggregate, or a fresh zero aggregate when
// none exists yet.
func (s *Service) loadOrInit(ctx context.Context) (*model.UserProgress, error) {
	progress, err := s.store.Get(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress for user %d: %w", s.userID, err)
	}
	if progress == nil {
		progress = &model.UserProgress{}
	}
	return progress, nil
}

// appendLog writes one row to the listening log, best-effort.
func (s *Service) appendLog(ctx context.Context, meditationID string, elapsedMs int64, completed bool) {
	if s.log == nil {
		return
	}
	err := s.log.Append(ctx, &model.ListeningSession{
		UserID:       s.userID,
		MeditationID: meditationID,
		DurationMs:   elapsedMs,
		Completed:    completed,
		CreatedAt:    s.nowFunc(),
	})
	if err != nil {
		logger.Warn("Failed to append listening log entry",
			logger.Int64("userId", s.userID),
			logger.ErrorField(err))
	}
}

// RecordListeningTime adds a listening interval to the aggregate. Time
// accumulates in whole minutes; the sub-minute remainder is discarded.
func (s *Service) RecordListeningTime(ctx context.Context, elapsedMs int64) error {
	progress, err := s.loadOrInit(ctx)
	if err != nil {
		return err
	}

	progress.TotalListeningTime += elapsedMs / 60000
	if err := s.store.Set(ctx, s.userID, progress); err != nil {
		return fmt.Errorf("failed to save progress for user %d: %w", s.userID, err)
	}

	s.appendLog(ctx, "", elapsedMs, false)
	return nil
}

// RecordCompletion counts a finished meditation and advances the day
// streak. Intervals under MinimumListeningTime are dropped without error.
func (s *Service) RecordCompletion(ctx context.Context, meditationID string, elapsedMs int64) error {
	if elapsedMs < MinimumListeningTime {
		logger.Debug("Completion below admissibility threshold, dropped",
			logger.String("meditationId", meditationID),
			logger.Int64("elapsedMs", elapsedMs))
		return nil
	}

	progress, err := s.loadOrInit(ctx)
	if err != nil {
		return err
	}

	today := s.nowFunc().Format(dateLayout)

	progress.MeditationsCompleted++
	progress.TotalListeningTime += elapsedMs / 60000

	switch daysBetween(progress.LastMeditationDate, today) {
	case 0:
		// Same day, streak unchanged.
	case 1:
		progress.CurrentStreak++
	default:
		progress.CurrentStreak = 1
	}
	if progress.CurrentStreak > progress.LongestStreak {
		progress.LongestStreak = progress.CurrentStreak
	}
	progress.LastMeditationDate = today

	if err := s.store.Set(ctx, s.userID, progress); err != nil {
		return fmt.Errorf("failed to save progress for user %d: %w", s.userID, err)
	}

	s.appendLog(ctx, meditationID, elapsedMs, true)

	logger.Info("Meditation completed",
		logger.String("meditationId", meditationID),
		logger.Int("streak", progress.CurrentStreak))
	return nil
}

// daysBetween returns whole days from last to today, both YYYY-MM-DD.
// An empty or malformed last date reads as "long ago".
func daysBetween(last, today string) int {
	if last == "" {
		return 1 << 30
	}
	lastDate, err := time.Parse(dateLayout, last)
	if err != nil {
		return 1 << 30
	}
	todayDate, err := time.Parse(dateLayout, today)
	if err != nil {
		return 1 << 30
	}
	return int(todayDate.Sub(lastDate).Hours() / 24)
}

// GetProgress returns the aggregate, first expiring a streak the user has
// let lapse for more than a day.
func (s *Service) GetProgress(ctx context.Context) (*model.UserProgress, error) {
	progress, err := s.loadOrInit(ctx)
	if err != nil {
		return nil, err
	}

	if progress.LastMeditationDate != "" && progress.CurrentStreak > 0 {
		today := s.nowFunc().Format(dateLayout)
		if daysBetween(progress.LastMeditationDate, today) > 1 {
			progress.CurrentStreak = 0
			if err := s.store.Set(ctx, s.userID, progress); err != nil {
				return nil, fmt.Errorf("failed to save progress for user %d: %w", s.userID, err)
			}
		}
	}

	return progress, nil
}

// RecentSessions returns the newest listening-log entries for this user,
// most recent first. With no log configured it returns nothing.
func (s *Service) RecentSessions(ctx context.Context, limit int) ([]model.ListeningSession, error) {
	if s.log == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	sessions, err := s.log.RecentByUser(ctx, s.userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load listening history for user %d: %w", s.userID, err)
	}
	return sessions, nil
}

// ResetProgress clears the aggregate back to zero.
func (s *Service) ResetProgress(ctx context.Context) error {
	if err := s.store.Set(ctx, s.userID, &model.UserProgress{}); err != nil {
		return fmt.Errorf("failed to reset progress for user %d: %w", s.userID, err)
	}
	return nil
}

// StreakMessage returns the encouragement line shown for a streak length.
func StreakMessage(streak int) string {
	switch {
	case streak == 0:
		return "Start your meditation journey today!"
	case streak == 1:
		return "Great start! Keep it up!"
	case streak < 7:
		return fmt.Sprintf("%d days strong! You're building a habit!", streak)
	case streak < 30:
		return fmt.Sprintf("%d days in a row! Excellent consistency!", streak)
	default:
		return fmt.Sprintf("%d days streak! You're a meditation master!", streak)
	}
}

// CalculateLevel maps total listening minutes to a level and the minute
// count needed for the next one.
func CalculateLevel(totalMinutes int64) (level int, nextLevelMinutes int64) {
	level = int(totalMinutes/MinutesPerLevel) + 1
	nextLevelMinutes = int64(level) * MinutesPerLevel
	return level, nextLevelMinutes
}
