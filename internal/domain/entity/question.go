package entity

import (
	"time"
)

// Типы вопросов
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeEssay          = "essay"
	QuestionTypeShortAnswer    = "short_answer"
)

// Question представляет вопрос видео-квиза или итогового теста
type Question struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	VideoID      *uint     `gorm:"index" json:"video_id,omitempty"`
	AssessmentID *uint     `gorm:"index" json:"assessment_id,omitempty"`
	Text         string    `gorm:"size:500;not null" json:"text"`
	Type         string    `gorm:"size:20;not null;default:'multiple_choice'" json:"type"`
	Position     int       `gorm:"not null;default:0;index" json:"position"`
	Options      []Option  `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsMultipleChoice проверяет, является ли вопрос вопросом с вариантами ответа
func (q *Question) IsMultipleChoice() bool {
	return q.Type == QuestionTypeMultipleChoice
}

// IsFreeText проверяет, является ли вопрос вопросом со свободным ответом
func (q *Question) IsFreeText() bool {
	return q.Type == QuestionTypeEssay || q.Type == QuestionTypeShortAnswer
}

// CorrectOptionID возвращает ID правильного варианта ответа.
// Возвращает false, если правильный вариант не задан (например, опции не загружены).
func (q *Question) CorrectOptionID() (uint, bool) {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o.ID, true
		}
	}
	return 0, false
}

// IsValidOption проверяет, принадлежит ли вариант ответа этому вопросу
func (q *Question) IsValidOption(optionID uint) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// Option представляет вариант ответа на вопрос.
// Флаг IsCorrect никогда не сериализуется клиенту — он нужен только для подсчёта очков.
type Option struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	Text       string    `gorm:"size:500;not null" json:"text"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"-"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Option) TableName() string {
	return "question_options"
}
