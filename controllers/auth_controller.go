package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
	"bulk-order-service/services"
)

type AuthController struct {
	users *services.UserService
	log   zerolog.Logger
}

func NewAuthController(users *services.UserService, log zerolog.Logger) *AuthController {
	return &AuthController{users: users, log: log}
}

func (ac *AuthController) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, valid email and password are required"})
		return
	}
	u, err := ac.users.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered", "user": u})
}

// Login reports bad credentials under "message" rather than "error".
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}
	resp, err := ac.users.Login(c.Request.Context(), req)
	if apperrors.Is(err, apperrors.KindUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": apperrors.Message(err)})
		return
	}
	if err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}
	if err := ac.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If that email is registered, a password reset link has been sent"})
}

func (ac *AuthController) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := ac.users.ResetPassword(c.Request.Context(), req); err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully"})
}
