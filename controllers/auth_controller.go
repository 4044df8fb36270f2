package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marketinni/backend/middleware"
	"github.com/marketinni/backend/models"
	"github.com/marketinni/backend/services"
)

// AuthController handles signup and signin
type AuthController struct{}

// NewAuthController creates a new auth controller
func NewAuthController() *AuthController {
	return &AuthController{}
}

// SignUpRequest is the POST body for registration
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Country  string `json:"country"`
}

// SignInRequest is the POST body for login
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignUp registers a new user and issues a session token
// POST /api/v1/auth/signup
func (ctrl *AuthController) SignUp(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
		return
	}

	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := models.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Country:      req.Country,
		CreatedAt:    time.Now(),
	}

	if err := services.GlobalMongoClient.CreateUser(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	token, err := middleware.IssueToken(user.ID.Hex(), user.Email, user.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  user,
	})
}

// SignIn authenticates a user and issues a session token
// POST /api/v1/auth/signin
func (ctrl *AuthController) SignIn(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
		return
	}

	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := services.GlobalMongoClient.FindUserByEmail(c.Request.Context(), email)
	if err != nil || !user.CheckPassword(req.Password) {
		middleware.RecordLoginFailure(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	middleware.RecordLoginSuccess(c)

	token, err := middleware.IssueToken(user.ID.Hex(), user.Email, user.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}
