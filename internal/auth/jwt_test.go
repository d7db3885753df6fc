package auth_test

import (
	"testing"
	"time"

	"pmdashboard/internal/auth"
	"pmdashboard/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func testUser() *model.User {
	return &model.User{ID: uuid.New(), Username: "chef.projet", Role: model.RoleProjectManager, IsActive: true}
}

func TestIssueAndParseToken(t *testing.T) {
	// Arrange
	tokens := auth.NewTokenManager(testSecret, 24*time.Hour)
	user := testUser()

	// Act
	issued, err := tokens.Issue(user)
	require.NoError(t, err)
	claims, err := tokens.Parse(issued.Token)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, "project_manager", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	require.NotNil(t, issued.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *issued.ExpiresAt, time.Minute)
}

func TestIssueToken_WithoutExpiry(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, 0)

	issued, err := tokens.Issue(testUser())
	require.NoError(t, err)
	claims, err := tokens.Parse(issued.Token)

	assert.NoError(t, err)
	assert.Nil(t, issued.ExpiresAt)
	assert.Nil(t, claims.ExpiresAt)
}

func TestParseToken_InvalidToken(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)

	_, err := tokens.Parse("invalid-token")

	assert.Error(t, err)
	assert.Equal(t, "invalid token", err.Error())
}

func TestParseToken_WrongSecret(t *testing.T) {
	issued, err := auth.NewTokenManager("other-secret", time.Hour).Issue(testUser())
	require.NoError(t, err)

	_, err = auth.NewTokenManager(testSecret, time.Hour).Parse(issued.Token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_ExpiredToken(t *testing.T) {
	// Arrange
	claims := jwt.MapClaims{
		"user_id": "test-user-id",
		"exp":     time.Now().Add(-1 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expiredToken, _ := token.SignedString([]byte(testSecret))

	// Act
	_, err := auth.NewTokenManager(testSecret, time.Hour).Parse(expiredToken)

	// Assert
	assert.Error(t, err)
	assert.Equal(t, "invalid token", err.Error())
}

func TestParseToken_MissingClaims(t *testing.T) {
	// Arrange
	claims := jwt.MapClaims{
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenWithoutUserID, _ := token.SignedString([]byte(testSecret))

	// Act
	_, err := auth.NewTokenManager(testSecret, time.Hour).Parse(tokenWithoutUserID)

	// Assert
	assert.Error(t, err)
	assert.Equal(t, "invalid claims", err.Error())
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"user_id": uuid.NewString()})
	signed, _ := token.SignedString([]byte(testSecret))

	_, err := auth.NewTokenManager(testSecret, time.Hour).Parse(signed)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
