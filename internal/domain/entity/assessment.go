package entity

import (
	"time"
)

// DefaultPassingPercentage — порог прохождения теста, если он не задан явно.
// Применяется единообразно во всех местах, где определяется pass/fail.
const DefaultPassingPercentage = 50

// Assessment представляет итоговый тест курса
type Assessment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	CourseID          uint       `gorm:"not null;index" json:"course_id"`
	Title             string     `gorm:"size:150;not null" json:"title"`
	Description       string     `gorm:"size:1000;not null;default:''" json:"description"`
	TimeLimitMinutes  int        `gorm:"not null;default:0" json:"time_limit_minutes"` // 0 = без ограничения времени
	PassingPercentage int        `gorm:"not null;default:50" json:"passing_percentage"`
	Questions         []Question `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Assessment) TableName() string {
	return "assessments"
}

// IsTimed проверяет, ограничен ли тест по времени
func (a *Assessment) IsTimed() bool {
	return a.TimeLimitMinutes > 0
}

// PassThreshold возвращает порог прохождения в процентах
func (a *Assessment) PassThreshold() int {
	if a.PassingPercentage <= 0 {
		return DefaultPassingPercentage
	}
	return a.PassingPercentage
}
