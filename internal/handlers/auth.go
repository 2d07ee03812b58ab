package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"relaychat/internal/database"
	"relaychat/internal/handlers/dto"
	"relaychat/internal/middleware"
	"relaychat/internal/models"
	"relaychat/pkg/auth"
)

type AuthHandler struct {
	db       *database.Database
	sessions *auth.SessionManager
	log      zerolog.Logger
}

func NewAuthHandler(db *database.Database, sessions *auth.SessionManager, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{db: db, sessions: sessions, log: log.With().Str("handler", "auth").Logger()}
}

// Register creates a user and immediately issues a session for it.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if _, err := h.db.FindUserByEmail(req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"message": "email already in use"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := h.db.SaveUser(user); err != nil {
		// The unique index is the authority under concurrent registration.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"message": "email already in use"})
			return
		}
		h.log.Error().Err(err).Msg("create user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	h.issueSession(c, user, http.StatusCreated)
}

// Login checks credentials and issues a fresh session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.db.FindUserByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid email or password"})
		return
	}

	h.issueSession(c, user, http.StatusOK)
}

// Logout revokes the current session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := auth.ExtractToken(c.Request)
	if token != "" {
		if err := h.sessions.Revoke(token); err != nil {
			h.log.Error().Err(err).Msg("revoke session failed")
		}
	}

	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	user, err := h.db.GetUser(userID)
	if err != nil {
		c.SetCookie(auth.SessionCookieName, "", -1, "/", "", false, true)
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.UserResponseFrom(user)})
}

// UpdateProfile changes display name and avatar. Only the provided
// fields change.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.db.GetUser(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Avatar != "" {
		user.AvatarURL = req.Avatar
	}

	if err := h.db.UpdateUser(user); err != nil {
		h.log.Error().Err(err).Msg("update user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.UserResponseFrom(user)})
}

func (h *AuthHandler) issueSession(c *gin.Context, user *models.User, status int) {
	token, expiresAt, err := h.sessions.Issue(user.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("issue session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetCookie(auth.SessionCookieName, token, maxAge, "/", "", false, true)

	c.JSON(status, dto.AuthResponse{
		User:  dto.UserResponseFrom(user),
		Token: token,
	})
}
