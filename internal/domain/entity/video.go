package entity

import (
	"time"
)

// Video представляет видеоурок курса
type Video struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CourseID       uint      `gorm:"not null;index" json:"course_id"`
	Title          string    `gorm:"size:150;not null" json:"title"`
	YouTubeVideoID string    `gorm:"size:20;not null" json:"youtube_video_id"`
	About          string    `gorm:"size:1000;not null;default:''" json:"about"`
	Thumbnail      string    `gorm:"size:255;not null;default:''" json:"thumbnail"`
	Position       int       `gorm:"not null;default:0;index" json:"position"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Video) TableName() string {
	return "videos"
}
