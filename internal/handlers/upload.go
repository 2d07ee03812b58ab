package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"relaychat/internal/media"
)

type UploadHandler struct {
	store *media.Store
	log   zerolog.Logger
}

func NewUploadHandler(store *media.Store, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{store: store, log: log.With().Str("handler", "upload").Logger()}
}

// Upload accepts one multipart file and stores it through the media
// store. Size and type limits are enforced there.
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "no file uploaded"})
		return
	}

	if fileHeader.Size > media.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"message": media.ErrTooLarge.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("open upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}
	defer file.Close()

	upload, err := h.store.Save(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, media.ErrTooLarge) || errors.Is(err, media.ErrUnsupportedType) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("store upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, upload)
}
