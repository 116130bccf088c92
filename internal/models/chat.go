package models

import (
	"time"

	"gorm.io/gorm"
)

// enum
type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
)

/** --------------------ENTITIES-------------------- */
// Chat represents a conversation between two or more users.
type Chat struct {
	gorm.Model

	Type      ChatType `gorm:"not null" json:"type"`
	Title     string   `json:"title,omitempty"`
	CreatedBy uint     `gorm:"not null" json:"createdBy"`

	Creator      User              `gorm:"foreignKey:CreatedBy" json:"-"`
	Participants []ChatParticipant `gorm:"foreignKey:ChatID" json:"-"`
}

// ChatParticipant links a user to a chat. One row per (chat, user) pair.
// Rows are deleted outright when a user leaves, so the unique index stays
// free for a later rejoin.
type ChatParticipant struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	ChatID uint   `gorm:"not null;uniqueIndex:idx_chat_user" json:"chatId"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_chat_user" json:"userId"`
	Role   string `gorm:"default:member" json:"role"`

	Chat Chat `gorm:"foreignKey:ChatID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}

/** -------------------- DTOs -------------------- */
// Request
type CreateChatRequest struct {
	Type  ChatType `json:"type" binding:"required,oneof=private group"`
	Title string   `json:"title"`
	// PeerID names the second participant of a private chat.
	PeerID *uint `json:"peerId,omitempty"`
}

type AddMemberRequest struct {
	UserID uint `json:"userId" binding:"required"`
}

// Response
type ChatResponse struct {
	ID        uint      `json:"id"`
	Type      ChatType  `json:"type"`
	Title     string    `json:"title,omitempty"`
	CreatedBy uint      `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Chat) ToResponse() ChatResponse {
	return ChatResponse{
		ID:        c.ID,
		Type:      c.Type,
		Title:     c.Title,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
	}
}
