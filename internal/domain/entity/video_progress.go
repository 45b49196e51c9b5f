package entity

import (
	"time"
)

// VideoProgress представляет прогресс пользователя по видеоуроку.
// Запись уникальна по (user, video) и обновляется через upsert.
type VideoProgress struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;index;uniqueIndex:idx_progress_user_video" json:"user_id"`
	VideoID            uint      `gorm:"not null;index;uniqueIndex:idx_progress_user_video" json:"video_id"`
	QuizTaken          bool      `gorm:"not null;default:false" json:"quiz_taken"`
	ProgressPercentage int       `gorm:"not null;default:0" json:"progress_percentage"`
	WatchedAt          time.Time `gorm:"not null" json:"watched_at"`
}

// TableName определяет имя таблицы для GORM
func (VideoProgress) TableName() string {
	return "video_watched"
}
