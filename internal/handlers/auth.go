package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/auth"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
)

type passwordResetRequest struct {
	Email string `json:"email"`
}

// SignUp handles POST /api/v1/auth/signup
func (h *Handlers) SignUp(c *gin.Context) {
	var req auth.SignUpRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.auth.SignUp(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// SignIn handles POST /api/v1/auth/signin
func (h *Handlers) SignIn(c *gin.Context) {
	var req auth.SignInRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.auth.SignIn(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// SignOut handles POST /api/v1/auth/signout
func (h *Handlers) SignOut(c *gin.Context) {
	if err := h.auth.SignOut(c.Request.Context(), middleware.CurrentSession(c)); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RequestPasswordReset handles POST /api/v1/auth/password-reset
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Password reset email sent. Please check your inbox."})
}

// ResetPassword handles POST /api/v1/auth/password-reset/confirm
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req auth.ResetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), &req); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated. Please sign in."})
}

// Me handles GET /api/v1/me
func (h *Handlers) Me(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
