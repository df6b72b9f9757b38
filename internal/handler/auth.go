package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/osvitahub/backend/internal/middleware"
	"github.com/osvitahub/backend/internal/model"
	"github.com/osvitahub/backend/internal/ratelimit"
	"github.com/osvitahub/backend/internal/service"
)

// AuthHandler serves the account endpoints of the user service.
type AuthHandler struct {
	svc          *service.AuthService
	loginLimiter *ratelimit.Limiter
}

// NewAuthHandler wires the account endpoints. loginLimiter may be nil; it
// is only consulted for the reset-on-successful-login policy.
func NewAuthHandler(svc *service.AuthService, loginLimiter *ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{svc: svc, loginLimiter: loginLimiter}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	FirstName string `json:"firstName" binding:"omitempty,min=2,max=100"`
	LastName  string `json:"lastName" binding:"omitempty,min=2,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type updateProfileRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"firstName" binding:"omitempty,min=2,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,min=2,max=100"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=128"`
}

type authPayload struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}
	if !strongPassword(req.Password) {
		passwordPolicyError(c)
		return
	}

	user, signed, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.OKMessage("User registered successfully", authPayload{User: user, Token: signed}))
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	user, signed, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	// Forgive earlier failed attempts from this address so a few typos do
	// not lock a legitimate user out for the rest of the window.
	if h.loginLimiter != nil {
		_ = h.loginLimiter.Reset(c.Request.Context(), middleware.KeyByIP(c))
	}

	c.JSON(http.StatusOK, model.OKMessage("Login successful", authPayload{User: user, Token: signed}))
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, model.Fail("Unauthorized"))
		return
	}

	if err := h.svc.Logout(c.Request.Context(), p.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Response{Success: true, Message: "Logout successful"})
}

// Profile handles GET /profile.
func (h *AuthHandler) Profile(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, model.Fail("Unauthorized"))
		return
	}

	user, err := h.svc.Profile(c.Request.Context(), p.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OK(gin.H{"user": user}))
}

// UpdateProfile handles PUT /profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, model.Fail("Unauthorized"))
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), p.ID, service.ProfileUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OKMessage("Profile updated successfully", gin.H{"user": user}))
}

// ChangePassword handles POST /change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, model.Fail("Unauthorized"))
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}
	if !strongPassword(req.NewPassword) {
		passwordPolicyError(c)
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), p.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Response{Success: true, Message: "Password changed successfully"})
}

// ListUsers handles GET /admin/users.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	users, pagination, err := h.svc.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}

	c.JSON(http.StatusOK, model.Response{
		Success:    true,
		Data:       gin.H{"users": users},
		Pagination: pagination,
	})
}
