package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pmdashboard/internal/access"
	"pmdashboard/internal/auth"
	"pmdashboard/internal/handler"
	"pmdashboard/internal/middleware"
	"pmdashboard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Мок хранилища пользователей для входа
type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	args := m.Called(ctx, identifier)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*model.User), args.Error(1)
}

func (m *MockUserLookup) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*model.User), args.Error(1)
}

type nopActivity struct{}

func (nopActivity) Record(ctx context.Context, entry *model.ActivityLog) bool { return true }

func setupAuthTest() (*gin.Engine, *MockUserLookup) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mockRepo := new(MockUserLookup)
	svc := auth.NewService(mockRepo, nopActivity{}, auth.NewTokenManager("test-secret", time.Hour),
		auth.NewMemoryRevocationStore(), nil, zap.NewNop())
	authHandler := handler.NewAuthHandler(svc, zap.NewNop())

	r.POST("/auth/login", authHandler.Login)
	protected := r.Group("/auth", middleware.JWTAuthMiddleware(svc))
	protected.POST("/logout", authHandler.Logout)
	protected.GET("/me", authHandler.Me)
	return r, mockRepo
}

func testAccount(t *testing.T, password string, active bool) *model.User {
	t.Helper()
	// Создаем хешированный пароль для тестового пользователя
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &model.User{
		ID:             uuid.New(),
		Username:       "jean.dupont",
		Email:          "jean@test.com",
		HashedPassword: string(hashedPassword),
		Role:           model.RoleMember,
		FullName:       "Jean Dupont",
		IsActive:       active,
	}
}

func postLogin(router *gin.Engine, identifier, password string) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(handler.LoginRequest{Identifier: identifier, Password: password})
	req, _ := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestLogin_Success(t *testing.T) {
	// Arrange
	router, mockRepo := setupAuthTest()
	testUser := testAccount(t, "membre123", true)
	mockRepo.On("FindByIdentifier", mock.Anything, "jean@test.com").Return(testUser, nil)

	// Act
	resp := postLogin(router, "jean@test.com", "membre123")

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)

	var response auth.Session
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.NotEmpty(t, response.Token)
	assert.NotNil(t, response.ExpiresAt)
	assert.Equal(t, testUser.ID, response.User.ID)
	assert.Equal(t, testUser.Email, response.User.Email)
	assert.NotContains(t, resp.Body.String(), "hashed_password")

	mockRepo.AssertExpectations(t)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	router, mockRepo := setupAuthTest()
	testUser := testAccount(t, "correct_password", true)
	mockRepo.On("FindByIdentifier", mock.Anything, "jean.dupont").Return(testUser, nil)

	// Запрос с неверным паролем
	resp := postLogin(router, "jean.dupont", "wrong_password")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	var response map[string]string
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Invalid credentials", response["error"])

	mockRepo.AssertExpectations(t)
}

func TestLogin_UserNotFound(t *testing.T) {
	router, mockRepo := setupAuthTest()

	// Пользователь не найден: ответ такой же, как при неверном пароле
	mockRepo.On("FindByIdentifier", mock.Anything, "nonexistent@example.com").Return(nil, nil)

	resp := postLogin(router, "nonexistent@example.com", "password123")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	var response map[string]string
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Invalid credentials", response["error"])

	mockRepo.AssertExpectations(t)
}

func TestLogin_DisabledAccount(t *testing.T) {
	router, mockRepo := setupAuthTest()
	mockRepo.On("FindByIdentifier", mock.Anything, "jean.dupont").Return(testAccount(t, "membre123", false), nil)

	resp := postLogin(router, "jean.dupont", "membre123")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Account is disabled")
}

func TestLogin_MissingFields(t *testing.T) {
	router, mockRepo := setupAuthTest()

	resp := postLogin(router, "", "")

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	mockRepo.AssertNotCalled(t, "FindByIdentifier", mock.Anything, mock.Anything)
}

func TestLogoutRevokesToken(t *testing.T) {
	router, mockRepo := setupAuthTest()
	testUser := testAccount(t, "membre123", true)
	mockRepo.On("FindByIdentifier", mock.Anything, "jean.dupont").Return(testUser, nil)
	mockRepo.On("GetByID", mock.Anything, testUser.ID).Return(testUser, nil)

	var session auth.Session
	require.NoError(t, json.Unmarshal(postLogin(router, "jean.dupont", "membre123").Body.Bytes(), &session))

	call := func(method, path string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	me := call("GET", "/auth/me")
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "jean.dupont")

	assert.Equal(t, http.StatusNoContent, call("POST", "/auth/logout").Code)

	// После выхода токен больше не принимается
	after := call("GET", "/auth/me")
	assert.Equal(t, http.StatusUnauthorized, after.Code)
	assert.Contains(t, after.Body.String(), "Token has been revoked")
}

// withPrincipal подставляет участника запроса без выпуска токена
func withPrincipal(p access.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p.Authenticated() {
			c.Set(middleware.UserIDKey, p.UserID)
			c.Set(middleware.PrincipalKey, p)
			c.Request = c.Request.WithContext(access.WithPrincipal(c.Request.Context(), p))
		}
		c.Next()
	}
}
