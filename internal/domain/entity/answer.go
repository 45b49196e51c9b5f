package entity

import (
	"time"
)

// Answer представляет ответ пользователя на вопрос в рамках попытки.
// Заполнено ровно одно из полей: SelectedOptionID (вопрос с вариантами)
// или AnswerText (свободный ответ). Уникальность по (attempt, question):
// повторная запись перезаписывает значение, а не создаёт дубликат.
type Answer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AttemptID        uint      `gorm:"not null;index;uniqueIndex:idx_answer_attempt_question" json:"attempt_id"`
	QuestionID       uint      `gorm:"not null;uniqueIndex:idx_answer_attempt_question" json:"question_id"`
	SelectedOptionID *uint     `json:"selected_option_id,omitempty"`
	AnswerText       string    `gorm:"type:text;not null;default:''" json:"answer_text,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Answer) TableName() string {
	return "answers"
}

// IsOptionAnswer проверяет, является ли ответ выбором варианта
func (a *Answer) IsOptionAnswer() bool {
	return a.SelectedOptionID != nil
}
