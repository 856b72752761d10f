package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/response"
	"github.com/harentsoaR/clinic-api/internal/services"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// Register creates an account together with its role profile.
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	account, profile, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"account": account, "profile": profile})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Me returns the caller's account and profile as loaded by the auth middleware.
func (h *Handler) Me(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"account": p.Account, "profile": p.Profile})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	p, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req changePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.Auth.ChangePassword(c.Request.Context(), p.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "Password updated successfully")
}
