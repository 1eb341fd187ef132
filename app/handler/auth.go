package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"downpour/app/auth"
	"downpour/app/config"
	"downpour/app/database"
	"downpour/app/model"
	"downpour/app/utils"
)

// AuthHandler serves login and token refresh.
type AuthHandler struct {
	config     *config.Config
	jwtService *auth.JWTService
}

// NewAuthHandler creates the auth endpoints.
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		config:     cfg,
		jwtService: auth.NewJWTService(cfg),
	}
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token    string      `json:"token"`
	User     *model.User `json:"user"`
	ExpireAt int64       `json:"expire_at"`
}

// Login verifies credentials and issues a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	var user model.User
	if err := database.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		fail(c, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if !utils.VerifyPassword(req.Password, user.Password) {
		fail(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Username)
	if err != nil {
		fail(c, http.StatusInternalServerError, "token generation failed")
		return
	}

	user.Password = ""
	success(c, LoginResponse{
		Token:    token,
		User:     &user,
		ExpireAt: time.Now().Add(time.Duration(h.config.JWT.ExpireTime) * time.Hour).Unix(),
	}, "login successful")
}

// RefreshToken exchanges a valid or recently expired token for a new one.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		fail(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	refreshed, err := h.jwtService.RefreshToken(token)
	if err != nil {
		fail(c, http.StatusUnauthorized, "token refresh failed")
		return
	}
	success(c, gin.H{"token": refreshed}, "token refreshed")
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user model.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	user.Password = ""
	success(c, &user, "")
}
