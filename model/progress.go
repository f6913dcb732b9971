package model

import "time"

// UserProgress is the per-user listening aggregate.
// TotalListeningTime is stored in whole minutes.
type UserProgress struct {
	TotalListeningTime   int64  `json:"totalListeningTime"`
	MeditationsCompleted int    `json:"meditationsCompleted"`
	CurrentStreak        int    `json:"currentStreak"`
	LongestStreak        int    `json:"longestStreak"`
	LastMeditationDate   string `json:"lastMeditationDate,omitempty"` // YYYY-MM-DD
}

// ListeningSession is one reported listening interval, appended to the
// listening log for history and diagnostics.
type ListeningSession struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       int64     `json:"userId" gorm:"index"`
	MeditationID string    `json:"meditationId,omitempty" gorm:"size:64;index"`
	DurationMs   int64     `json:"durationMs"`
	Completed    bool      `json:"completed"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName overrides the default pluralization.
func (ListeningSession) TableName() string {
	return "listening_sessions"
}
