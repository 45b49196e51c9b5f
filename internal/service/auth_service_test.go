package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/pkg/auth"
)

// ============================================================================
// Тесты регистрации и входа
// ============================================================================

func newAuthService(t *testing.T, userRepo *MockUserRepository) *AuthService {
	t.Helper()
	jwtService, err := auth.NewJWTService("test-secret-key", 1)
	require.NoError(t, err)
	return NewAuthService(userRepo, jwtService)
}

func TestAuthService_Register_NormalizesEmailAndCreatesUser(t *testing.T) {
	userRepo := new(MockUserRepository)
	service := newAuthService(t, userRepo)

	userRepo.On("GetByEmail", "student@example.com").Return(nil, apperrors.ErrNotFound)
	userRepo.On("GetByUsername", "student").Return(nil, apperrors.ErrNotFound)
	userRepo.On("Create", mock.MatchedBy(func(u *entity.User) bool {
		return u.Email == "student@example.com" && u.Username == "student" && u.Role == entity.RoleUser
	})).Return(nil)

	user, err := service.Register("student", "  Student@Example.COM ", "password123", "Иван Иванов")
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", user.Email)
	userRepo.AssertExpectations(t)
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	userRepo := new(MockUserRepository)
	service := newAuthService(t, userRepo)

	userRepo.On("GetByEmail", "student@example.com").Return(&entity.User{ID: 1}, nil)

	_, err := service.Register("student", "student@example.com", "password123", "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	userRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	userRepo := new(MockUserRepository)
	service := newAuthService(t, userRepo)

	userRepo.On("GetByEmail", "new@example.com").Return(nil, apperrors.ErrNotFound)
	userRepo.On("GetByUsername", "student").Return(&entity.User{ID: 1}, nil)

	_, err := service.Register("student", "new@example.com", "password123", "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	userRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAuthService_Login_Success(t *testing.T) {
	userRepo := new(MockUserRepository)
	service := newAuthService(t, userRepo)

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	userRepo.On("GetByEmail", "student@example.com").Return(&entity.User{
		ID: 1, Username: "student", Email: "student@example.com", Password: string(hashed),
	}, nil)

	token, user, err := service.Login("student@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, uint(1), user.ID)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	userRepo := new(MockUserRepository)
	service := newAuthService(t, userRepo)

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	userRepo.On("GetByEmail", "student@example.com").Return(&entity.User{
		ID: 1, Email: "student@example.com", Password: string(hashed),
	}, nil)

	_, _, err = service.Login("student@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	userRepo := new(MockUserRepository)
	service := newAuthService(t, userRepo)

	userRepo.On("GetByEmail", "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	_, _, err := service.Login("ghost@example.com", "password123")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
