package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"chat-backend/internal/api/middleware"
	"chat-backend/internal/models"
	"chat-backend/internal/services"
	ws "chat-backend/internal/websocket"
)

const maxUploadSize = 10 << 20 // 10 MiB

// attachmentURLPrefix is the download path stored in messages. The bucket is
// private, so attachments are served through the authenticated Download
// endpoint instead of a direct bucket URL.
const attachmentURLPrefix = "/api/v1/files/"

// ObjectStore reads and writes stored attachment objects.
type ObjectStore interface {
	UploadFile(ctx context.Context, file *multipart.FileHeader) (string, error)
	DownloadFile(ctx context.Context, objectName string) (io.ReadCloser, minio.ObjectInfo, error)
}

// FileHandler uploads an attachment and posts it to the chat in one step,
// and serves the stored bytes back to authenticated users.
type FileHandler struct {
	store    ObjectStore
	pipeline *ws.Pipeline
}

func NewFileHandler(store ObjectStore, pipeline *ws.Pipeline) *FileHandler {
	return &FileHandler{store: store, pipeline: pipeline}
}

// UploadAttachment godoc
// @Summary Send a file to a chat
// @Description Upload a file and deliver it as a message to the chat members
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param file formData file true "File to upload"
// @Param text formData string false "Optional caption"
// @Success 201 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse "Bad request"
// @Failure 403 {object} models.ErrorResponse "Not a member"
// @Failure 413 {object} models.ErrorResponse "File too large"
// @Router /chats/{id}/attachments [post]
func (h *FileHandler) UploadAttachment(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "A file is required",
		})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Code:    http.StatusRequestEntityTooLarge,
			Message: "File exceeds the 10MB limit",
		})
		return
	}

	objectName, err := h.store.UploadFile(c.Request.Context(), file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to store file",
		})
		return
	}

	url := attachmentURLPrefix + objectName
	message, err := h.pipeline.SendAttachment(c.Request.Context(), userID, chatID, c.PostForm("text"), url, file.Filename)
	if err != nil {
		switch {
		case errors.Is(err, ws.ErrNotMember):
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "You are not a member of this chat",
			})
		case errors.Is(err, services.ErrChatNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Chat not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to send attachment",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, message.ToResponse())
}

// Download godoc
// @Summary Download an attachment
// @Description Stream a stored attachment to an authenticated user
// @Tags files
// @Produce octet-stream
// @Security BearerAuth
// @Param object path string true "Object name"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse "Attachment not found"
// @Router /files/{object} [get]
func (h *FileHandler) Download(c *gin.Context) {
	objectName := strings.TrimPrefix(c.Param("object"), "/")
	// Uploads all live under attachments/, so anything else is not ours.
	if !strings.HasPrefix(objectName, "attachments/") || strings.Contains(objectName, "..") {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "Attachment not found",
		})
		return
	}

	reader, info, err := h.store.DownloadFile(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "Attachment not found",
		})
		return
	}
	defer reader.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := path.Base(objectName)
	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, reader, extraHeaders)
}
