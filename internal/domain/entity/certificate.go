package entity

import (
	"time"
)

// Certificate представляет сертификат о прохождении курса.
// Выдаётся один раз на пару (user, course) после полного прохождения
// всех видео и всех итоговых тестов курса.
type Certificate struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index;uniqueIndex:idx_certificate_user_course" json:"user_id"`
	CourseID          uint      `gorm:"not null;index;uniqueIndex:idx_certificate_user_course" json:"course_id"`
	CertificateNumber string    `gorm:"size:36;not null;uniqueIndex" json:"certificate_number"`
	IssuedAt          time.Time `gorm:"not null" json:"issued_at"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Certificate) TableName() string {
	return "certificates"
}
