package dto

import (
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// UserResponse представляет пользователя в ответах API
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse строит ответ из сущности пользователя
func NewUserResponse(user *entity.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		IsAdmin:   user.IsAdmin(),
		CreatedAt: user.CreatedAt,
	}
}

// AuthResponse представляет результат входа: токен и данные пользователя
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}
