package entity

import (
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Роли пользователей
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет пользователя в системе
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email          string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password       string    `gorm:"size:100;not null" json:"-"`
	FullName       string    `gorm:"size:150;not null;default:''" json:"full_name"`
	ProfilePicture string    `gorm:"size:255;not null;default:''" json:"profile_picture"`
	Role           string    `gorm:"size:20;not null;default:'user'" json:"-"` // "user" или "admin"
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// IsAdmin проверяет, является ли пользователь администратором
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeSave хеширует пароль перед сохранением, только если он не является bcrypt-хешем
func (u *User) BeforeSave(tx *gorm.DB) error {
	// bcrypt-хеш всегда начинается с "$2a$", "$2b$" или "$2y$"
	if len(u.Password) > 0 && !isBcryptHash(u.Password) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[User] Ошибка хеширования пароля для пользователя %s: %v", u.Username, err)
			return err
		}
		u.Password = string(hashed)
	}
	return nil
}

// CheckPassword проверяет соответствие пароля хешу
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && s[0] == '$' && (s[1] == '2') &&
		(s[2] == 'a' || s[2] == 'b' || s[2] == 'y') && s[3] == '$'
}
