package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/api/middleware"
	"chat-backend/internal/models"
	"chat-backend/internal/services"
	ws "chat-backend/internal/websocket"
)

type ChatHandler struct {
	chatService    *services.ChatService
	messageService *services.MessageService
	pipeline       *ws.Pipeline
}

func NewChatHandler(chatService *services.ChatService, messageService *services.MessageService, pipeline *ws.Pipeline) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		messageService: messageService,
		pipeline:       pipeline,
	}
}

func chatIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid chat id",
		})
		return 0, false
	}
	return uint(id), true
}

// CreateChat godoc
// @Summary Create a chat
// @Description Create a private or group chat. The creator joins automatically.
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateChatRequest true "Chat to create"
// @Success 201 {object} models.ChatResponse
// @Failure 400 {object} models.ErrorResponse "Bad request"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /chats [post]
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req models.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	chat, err := h.chatService.CreateChat(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrPeerRequired) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "A private chat needs a peer",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to create chat",
		})
		return
	}

	c.JSON(http.StatusCreated, chat.ToResponse())
}

// ListChats godoc
// @Summary List my chats
// @Description List every chat the authenticated user participates in
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ChatResponse
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /chats [get]
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	chats, err := h.chatService.ChatsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to list chats",
		})
		return
	}

	responses := make([]models.ChatResponse, 0, len(chats))
	for i := range chats {
		responses = append(responses, chats[i].ToResponse())
	}
	c.JSON(http.StatusOK, responses)
}

// ListMembers godoc
// @Summary List chat members
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Success 200 {array} models.UserResponse
// @Failure 403 {object} models.ErrorResponse "Not a member"
// @Failure 404 {object} models.ErrorResponse "Chat not found"
// @Router /chats/{id}/members [get]
func (h *ChatHandler) ListMembers(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	member, err := h.chatService.IsMember(c.Request.Context(), userID, chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to list members",
		})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "You are not a member of this chat",
		})
		return
	}

	users, err := h.chatService.Members(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to list members",
		})
		return
	}

	responses := make([]models.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, users[i].ToResponse())
	}
	c.JSON(http.StatusOK, responses)
}

// AddMember godoc
// @Summary Add a member to a chat
// @Description Add a user to a group chat and notify the members
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param request body models.AddMemberRequest true "User to add"
// @Success 204 "Member added"
// @Failure 403 {object} models.ErrorResponse "Not a member"
// @Failure 404 {object} models.ErrorResponse "Chat not found"
// @Failure 409 {object} models.ErrorResponse "Already a member"
// @Router /chats/{id}/members [post]
func (h *ChatHandler) AddMember(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	if err := h.chatService.AddMember(c.Request.Context(), userID, chatID, req.UserID); err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Chat not found",
			})
		case errors.Is(err, services.ErrNotMember):
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "You are not a member of this chat",
			})
		case errors.Is(err, services.ErrAlreadyMember):
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Code:    http.StatusConflict,
				Message: "User is already a member",
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to add member",
			})
		}
		return
	}

	h.pipeline.Announce(c.Request.Context(), ws.MembershipChanged{
		ChatID: chatID,
		UserID: req.UserID,
		Action: "joined",
	})

	c.Status(http.StatusNoContent)
}

// LeaveChat godoc
// @Summary Leave a chat
// @Description Remove the authenticated user from the chat and notify the members
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Success 204 "Left the chat"
// @Failure 404 {object} models.ErrorResponse "Chat not found"
// @Router /chats/{id}/members/me [delete]
func (h *ChatHandler) LeaveChat(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	if err := h.chatService.RemoveMember(c.Request.Context(), userID, chatID, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Chat not found",
			})
		case errors.Is(err, services.ErrNotMember):
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "You are not a member of this chat",
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to leave chat",
			})
		}
		return
	}

	// The departing user already left; remaining members get the event.
	h.pipeline.Announce(c.Request.Context(), ws.MembershipChanged{
		ChatID: chatID,
		UserID: userID,
		Action: "left",
	})

	c.Status(http.StatusNoContent)
}

// History godoc
// @Summary Chat message history
// @Description Page through a chat's messages in chronological order
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param limit query int false "Page size (max 100, default 50)"
// @Param before query int false "Unix timestamp; only messages older than this"
// @Success 200 {array} models.MessageResponse
// @Failure 403 {object} models.ErrorResponse "Not a member"
// @Router /chats/{id}/messages [get]
func (h *ChatHandler) History(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	member, err := h.chatService.IsMember(c.Request.Context(), userID, chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to load history",
		})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "You are not a member of this chat",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	var before *int64
	if raw := c.Query("before"); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "Invalid before timestamp",
			})
			return
		}
		before = &ts
	}

	messages, err := h.messageService.History(c.Request.Context(), chatID, limit, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to load history",
		})
		return
	}

	responses := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messages[i].ToResponse())
	}
	c.JSON(http.StatusOK, responses)
}
