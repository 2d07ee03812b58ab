package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"relaychat/internal/database"
	"relaychat/internal/middleware"
	"relaychat/internal/models"
)

const (
	searchMinQueryLen = 2
	searchMaxResults  = 10
)

type UserHandler struct {
	db  *database.Database
	log zerolog.Logger
}

func NewUserHandler(db *database.Database, log zerolog.Logger) *UserHandler {
	return &UserHandler{db: db, log: log.With().Str("handler", "user").Logger()}
}

// SearchUsers matches display names, excluding the searcher. Queries
// shorter than two characters return an empty result, not an error.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	query := c.Query("q")
	if len(query) < searchMinQueryLen {
		c.JSON(http.StatusOK, gin.H{"users": []gin.H{}})
		return
	}

	users, err := h.db.SearchUsersByName(query, userID, searchMaxResults)
	if err != nil {
		h.log.Error().Err(err).Msg("user search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	results := lo.Map(users, func(u models.User, _ int) gin.H {
		return gin.H{
			"id":     u.ID,
			"name":   u.Name,
			"email":  u.Email,
			"avatar": u.AvatarURL,
		}
	})

	c.JSON(http.StatusOK, gin.H{"users": results})
}
