package models

import (
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// Message represents one persisted chat message. SenderID is nil for
// system-generated messages.
type Message struct {
	gorm.Model

	ChatID    uint    `gorm:"not null;index" json:"chatId"`
	SenderID  *uint   `gorm:"index" json:"senderId,omitempty"`
	Text      string  `json:"text"`
	URL       *string `json:"url,omitempty"`      // attachment URL, if any
	FileName  *string `json:"fileName,omitempty"` // attachment file name
	IsDeleted bool    `gorm:"default:false" json:"isDeleted"`

	Chat   Chat  `gorm:"foreignKey:ChatID" json:"-"`
	Sender *User `gorm:"foreignKey:SenderID" json:"-"`
}

/** -------------------- DTOs -------------------- */
// Request
type UpdateMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// Response
type MessageResponse struct {
	ID        uint      `json:"id"`
	ChatID    uint      `json:"chatId"`
	SenderID  *uint     `json:"senderId,omitempty"`
	Text      string    `json:"text"`
	URL       *string   `json:"url,omitempty"`
	FileName  *string   `json:"fileName,omitempty"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		URL:       m.URL,
		FileName:  m.FileName,
		IsDeleted: m.IsDeleted,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
