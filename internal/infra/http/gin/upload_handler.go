package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"talentsync/internal/app/dto"
	"talentsync/internal/infra/storage/s3"
)

const maxAttachmentSize = 25 << 20

// UploadHTTP exposes attachment upload.
type UploadHTTP interface {
	UploadAttachment(c *gin.Context)
}

type UploadHandler struct {
	Uploader s3.Uploader
	Logger   *slog.Logger
}

// UploadAttachment stores the file and returns the attachment descriptor the
// client embeds in its send request.
func (h UploadHandler) UploadAttachment(c *gin.Context) {
	if _, ok := requireRole(c, ""); !ok {
		return
	}
	if h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads unavailable"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > maxAttachmentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	defer src.Close()

	name := filepath.Base(strings.TrimSpace(file.Filename))
	key := fmt.Sprintf("attachments/%s/%s-%s", c.Param("id"), uuid.NewString(), name)
	contentType := file.Header.Get("Content-Type")

	url, err := h.Uploader.Upload(c.Request.Context(), key, src, contentType)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("attachment upload failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, dto.Attachment{
		URL:         url,
		Name:        name,
		Size:        file.Size,
		ContentType: contentType,
	})
}

var _ UploadHTTP = (*UploadHandler)(nil)
