package entity

import (
	"time"
)

// Константы статусов попытки
const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusCompleted  = "completed"
)

// Attempt представляет одну попытку прохождения теста пользователем.
// AttemptNumber монотонно растёт в рамках пары (user, assessment), начиная с 1.
type Attempt struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index;uniqueIndex:idx_attempt_user_assessment_num" json:"user_id"`
	AssessmentID  uint       `gorm:"not null;index;uniqueIndex:idx_attempt_user_assessment_num" json:"assessment_id"`
	AttemptNumber int        `gorm:"not null;uniqueIndex:idx_attempt_user_assessment_num" json:"attempt_number"`
	Status        string     `gorm:"size:20;not null;default:'in_progress';index" json:"status"`
	StartedAt     time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	// Score — процент правильных ответов на вопросы с вариантами.
	// NULL, если в попытке не было ни одного такого вопроса.
	Score     *int      `json:"score,omitempty"`
	Passed    *bool     `json:"passed,omitempty"`
	TimeUp    bool      `gorm:"not null;default:false" json:"time_up"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Attempt) TableName() string {
	return "attempts"
}

// IsCompleted проверяет, завершена ли попытка
func (a *Attempt) IsCompleted() bool {
	return a.Status == AttemptStatusCompleted
}

// ElapsedTime возвращает длительность попытки.
// Для незавершённой попытки считается от StartedAt до текущего момента.
func (a *Attempt) ElapsedTime() time.Duration {
	if a.FinishedAt != nil {
		return a.FinishedAt.Sub(a.StartedAt)
	}
	return time.Since(a.StartedAt)
}
