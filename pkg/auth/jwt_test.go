package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

func TestJWTService_GenerateAndParse(t *testing.T) {
	service, err := NewJWTService("test-secret-key", 1)
	require.NoError(t, err)

	user := &entity.User{ID: 42, Email: "student@example.com", Role: entity.RoleUser}

	token, err := service.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ParseToken(token)
	require.NoError(t, err)

	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "student@example.com", claims.Email)
	assert.Equal(t, entity.RoleUser, claims.Role)
}

func TestJWTService_ParseToken_WrongSecret(t *testing.T) {
	issuer, err := NewJWTService("secret-one", 1)
	require.NoError(t, err)
	verifier, err := NewJWTService("secret-two", 1)
	require.NoError(t, err)

	token, err := issuer.GenerateToken(&entity.User{ID: 1})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err, "токен с чужой подписью должен отклоняться")
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService("", 1)
	assert.Error(t, err)
}
