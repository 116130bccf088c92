package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/models"
	"chat-backend/internal/services"
)

// PresenceHandler exposes the Redis-backed online status.
type PresenceHandler struct {
	redisService *services.RedisService
}

func NewPresenceHandler(redisService *services.RedisService) *PresenceHandler {
	return &PresenceHandler{redisService: redisService}
}

// OnlineUsers godoc
// @Summary List online users
// @Description User ids that currently hold at least one live connection
// @Tags presence
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /users/online [get]
func (h *PresenceHandler) OnlineUsers(c *gin.Context) {
	ids, err := h.redisService.GetOnlineUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to load online users",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"online": ids})
}

// UserOnline godoc
// @Summary Check if a user is online
// @Tags presence
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /users/{id}/online [get]
func (h *PresenceHandler) UserOnline(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid user id",
		})
		return
	}

	online, err := h.redisService.IsUserOnline(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to check user status",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": uint(id), "online": online})
}
