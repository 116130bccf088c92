package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/api/middleware"
	"chat-backend/internal/models"
	"chat-backend/internal/services"
	ws "chat-backend/internal/websocket"
)

// AttachmentStore deletes stored attachment objects.
type AttachmentStore interface {
	RemoveFile(ctx context.Context, objectName string) error
}

// MessageHandler serves the REST message operations. Edits and deletions go
// through the same pipeline live traffic uses, so connected members see them
// in real time regardless of which surface made the change.
type MessageHandler struct {
	pipeline *ws.Pipeline
	files    AttachmentStore
}

// NewMessageHandler builds the handler. files may be nil when attachment
// storage is not configured.
func NewMessageHandler(pipeline *ws.Pipeline, files AttachmentStore) *MessageHandler {
	return &MessageHandler{pipeline: pipeline, files: files}
}

func messageIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid message id",
		})
		return 0, false
	}
	return uint(id), true
}

// UpdateMessage godoc
// @Summary Edit a message
// @Description Edit a message's text. Only the original sender may edit.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Param request body models.UpdateMessageRequest true "New text"
// @Success 200 {object} models.MessageResponse
// @Failure 403 {object} models.ErrorResponse "Not the sender"
// @Failure 404 {object} models.ErrorResponse "Message not found"
// @Router /messages/{id} [put]
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	message, err := h.pipeline.EditMessage(c.Request.Context(), userID, messageID, req.Text)
	if err != nil {
		h.writeMessageError(c, err)
		return
	}

	c.JSON(http.StatusOK, message.ToResponse())
}

// DeleteMessage godoc
// @Summary Delete a message
// @Description Soft-delete a message. Only the original sender may delete.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 204 "Message deleted"
// @Failure 403 {object} models.ErrorResponse "Not the sender"
// @Failure 404 {object} models.ErrorResponse "Message not found"
// @Router /messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	deleted, err := h.pipeline.DeleteMessage(c.Request.Context(), userID, messageID)
	if err != nil {
		h.writeMessageError(c, err)
		return
	}

	// Deleting an attachment message also drops the stored object. The
	// message is already gone, so a storage failure is only logged.
	if h.files != nil && deleted.URL != nil {
		objectName := strings.TrimPrefix(*deleted.URL, attachmentURLPrefix)
		if objectName != *deleted.URL {
			if err := h.files.RemoveFile(c.Request.Context(), objectName); err != nil {
				slog.Error("Failed to remove attachment object", "object", objectName, "error", err)
			}
		}
	}

	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) writeMessageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "Message not found",
		})
	case errors.Is(err, ws.ErrNotOwner):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "The message does not belong to you",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to update message",
		})
	}
}
