package entity

import (
	"time"
)

// Course представляет учебный курс
type Course struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"size:150;not null" json:"title"`
	Description string       `gorm:"size:1000;not null;default:''" json:"description"`
	Thumbnail   string       `gorm:"size:255;not null;default:''" json:"thumbnail"`
	Videos      []Video      `gorm:"foreignKey:CourseID" json:"videos,omitempty"`
	Assessments []Assessment `gorm:"foreignKey:CourseID" json:"assessments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Course) TableName() string {
	return "courses"
}
