package v1

import (
	"context"
	"net/http"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/middleware"
	"github.com/defect-tracker/models"
	"github.com/gin-gonic/gin"
)

// AccountService administers users and roles
type AccountService interface {
	ListUsers(ctx context.Context) ([]dto.UserResponse, error)
	GetUser(ctx context.Context, id string) (*dto.EditUserResponse, error)
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	EditUser(ctx context.Context, id string, req dto.EditUserRequest) (*dto.UserResponse, error)
	DeleteUser(ctx context.Context, caller models.Caller, id string) error
	ListRoles(ctx context.Context) ([]dto.RoleResponse, error)
	CreateRole(ctx context.Context, name string) (*dto.RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error
}

// AccountHandler serves the /account endpoints
type AccountHandler struct {
	accounts AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// ListUsers returns every user with role names
func (h *AccountHandler) ListUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to retrieve users", err)
		return
	}
	respondOK(c, http.StatusOK, users)
}

// GetUser returns a user together with every assignable role
func (h *AccountHandler) GetUser(c *gin.Context) {
	user, err := h.accounts.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to retrieve user", err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// CreateUser registers a new account
func (h *AccountHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.accounts.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to create user", err)
		return
	}
	respondOK(c, http.StatusCreated, user)
}

// EditUser replaces the email and role set of a user
func (h *AccountHandler) EditUser(c *gin.Context) {
	var req dto.EditUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.accounts.EditUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Failed to update user", err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// DeleteUser removes an account other than the caller's own
func (h *AccountHandler) DeleteUser(c *gin.Context) {
	caller, _ := middleware.CallerFrom(c)
	if err := h.accounts.DeleteUser(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, "Failed to delete user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "User deleted successfully",
	})
}

// ListRoles returns every role with its member count
func (h *AccountHandler) ListRoles(c *gin.Context) {
	roles, err := h.accounts.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to retrieve roles", err)
		return
	}
	respondOK(c, http.StatusOK, roles)
}

// CreateRole adds a role
func (h *AccountHandler) CreateRole(c *gin.Context) {
	var req dto.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	role, err := h.accounts.CreateRole(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, "Failed to create role", err)
		return
	}
	respondOK(c, http.StatusCreated, role)
}

// DeleteRole removes a role nobody holds
func (h *AccountHandler) DeleteRole(c *gin.Context) {
	if err := h.accounts.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to delete role", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Role deleted successfully",
	})
}
