package entity

import (
	"time"
)

// VideoQuizAnswer представляет ответ пользователя на вопрос видео-квиза.
// Видео-квизы проходятся без попыток и таймера, поэтому ответы привязаны
// напрямую к пользователю и видео.
type VideoQuizAnswer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	VideoID          uint      `gorm:"not null;index" json:"video_id"`
	QuestionID       uint      `gorm:"not null" json:"question_id"`
	SelectedOptionID *uint     `json:"selected_option_id,omitempty"`
	IsCorrect        bool      `gorm:"not null;default:false" json:"is_correct"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (VideoQuizAnswer) TableName() string {
	return "video_quiz_answers"
}
