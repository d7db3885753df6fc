package handler

import (
	"context"
	"net/http"

	"pmdashboard/internal/access"
	"pmdashboard/internal/middleware"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"
	"pmdashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserHandler struct {
	users  *service.UserService
	logger *zap.Logger
}

func NewUserHandler(users *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type CreateUserRequest struct {
	Username string     `json:"username" binding:"required"`
	Email    string     `json:"email" binding:"required"`
	Password string     `json:"password" binding:"required"`
	FullName string     `json:"full_name"`
	Role     model.Role `json:"role"`
}

// Create создает учетную запись (только администратор)
// @Summary      Create user
// @Tags         Users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body CreateUserRequest true "User"
// @Success      201 {object} model.User
// @Router       /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Role == "" {
		req.Role = model.RoleMember
	}

	user, err := h.users.Create(c.Request.Context(), middleware.CurrentPrincipal(c), service.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// List возвращает пользователей, фильтры role и active=true
// @Summary      List users
// @Tags         Users
// @Security     BearerAuth
// @Produce      json
// @Param        role   query string false "Role filter"
// @Param        active query bool   false "Active accounts only"
// @Success      200 {array} model.User
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter := repository.UserFilter{
		Role:       model.Role(c.Query("role")),
		ActiveOnly: c.Query("active") == "true",
	}
	users, err := h.users.List(c.Request.Context(), middleware.CurrentPrincipal(c), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetByID
// @Summary      Get user
// @Tags         Users
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} model.User
// @Router       /users/{id} [get]
func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update применяет частичное обновление, отсутствующие поля не меняются
// @Summary      Update user
// @Tags         Users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string              true "User ID"
// @Param        request body service.UserChanges true "Changes"
// @Success      200 {object} model.User
// @Router       /users/{id} [patch]
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req service.UserChanges
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.users.Update(c.Request.Context(), middleware.CurrentPrincipal(c), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Deactivate
// @Summary      Deactivate user
// @Tags         Users
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      204
// @Router       /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.users.Deactivate)
}

// Activate
// @Summary      Activate user
// @Tags         Users
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      204
// @Router       /users/{id}/activate [post]
func (h *UserHandler) Activate(c *gin.Context) {
	h.toggle(c, h.users.Activate)
}

func (h *UserHandler) toggle(c *gin.Context, fn func(context.Context, access.Principal, uuid.UUID) error) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), middleware.CurrentPrincipal(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Workload возвращает нагрузку пользователя: задачи по статусам и приоритетам
// @Summary      User workload
// @Tags         Users
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} model.MemberWorkload
// @Router       /users/{id}/workload [get]
func (h *UserHandler) Workload(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	workload, err := h.users.Workload(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, workload)
}
