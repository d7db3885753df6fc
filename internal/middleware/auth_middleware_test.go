package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pmdashboard/internal/access"
	"pmdashboard/internal/auth"
	"pmdashboard/internal/middleware"
	"pmdashboard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "test-secret-key"

func setupRouter(revoked auth.RevocationStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	verifier := auth.NewVerifier(auth.NewTokenManager(jwtSecret, time.Hour), revoked)

	// Защищенный маршрут
	protected := r.Group("/protected")
	protected.Use(middleware.JWTAuthMiddleware(verifier))

	// Обработчик для проверки middleware
	protected.GET("/resource", func(c *gin.Context) {
		userID, exists := c.Get(middleware.UserIDKey)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "User ID not found in context"})
			return
		}
		p, ok := access.FromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Principal not found in request context"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Access granted",
			"user_id": userID,
			"role":    p.Role,
		})
	})

	admin := protected.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome admin"})
	})

	return r
}

func issueToken(t *testing.T, user *model.User) auth.IssuedToken {
	t.Helper()
	issued, err := auth.NewTokenManager(jwtSecret, time.Hour).Issue(user)
	require.NoError(t, err)
	return issued
}

func testUser(role model.Role) *model.User {
	return &model.User{ID: uuid.New(), Username: "jean.dupont", Role: role}
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	// Arrange
	router := setupRouter(nil)
	user := testUser(model.RoleMember)
	token := issueToken(t, user)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)

	// Act
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Access granted")
	assert.Contains(t, resp.Body.String(), user.ID.String())
	assert.Contains(t, resp.Body.String(), "member")
}

func TestJWTAuthMiddleware_NoAuthHeader(t *testing.T) {
	router := setupRouter(nil)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Authorization header is required")
}

func TestJWTAuthMiddleware_InvalidAuthFormat(t *testing.T) {
	router := setupRouter(nil)

	// Создаем запрос с неверным форматом заголовка
	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "InvalidFormat token123")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Authorization header format must be Bearer {token}")
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	router := setupRouter(nil)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid or expired token")
}

func TestJWTAuthMiddleware_TokenWithInvalidUserID(t *testing.T) {
	router := setupRouter(nil)

	// Создаем токен с недействительным форматом ID пользователя
	claims := jwt.MapClaims{
		"user_id": "not-a-valid-uuid",
		"exp":     jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(jwtSecret))

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid user ID in token")
}

func TestJWTAuthMiddleware_RevokedToken(t *testing.T) {
	store := auth.NewMemoryRevocationStore()
	router := setupRouter(store)
	token := issueToken(t, testUser(model.RoleMember))
	require.NoError(t, store.Revoke(context.Background(), token.ID, token.ExpiresAt))

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Token has been revoked")
}

func TestRequireRole(t *testing.T) {
	router := setupRouter(nil)

	tests := []struct {
		name string
		role model.Role
		code int
	}{
		{"администратор", model.RoleAdmin, http.StatusOK},
		{"руководитель проекта", model.RoleProjectManager, http.StatusForbidden},
		{"участник", model.RoleMember, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := issueToken(t, testUser(tt.role))
			req, _ := http.NewRequest("GET", "/protected/admin", nil)
			req.Header.Set("Authorization", "Bearer "+token.Token)

			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, tt.code, resp.Code)
			if tt.code == http.StatusForbidden {
				assert.Contains(t, resp.Body.String(), "requires role admin")
			}
		})
	}
}
