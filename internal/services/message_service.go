package services

import (
	"context"
	"errors"
	"fmt"

	"chat-backend/internal/models"
	"chat-backend/internal/repositories/postgres"

	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageService is the storage collaborator: it durably records message
// events and hands back server-assigned attributes (id, timestamps). It does
// not retry failed writes; the caller surfaces the error and lets the client
// resubmit.
type MessageService struct {
	messages *postgres.MessageRepository
	chats    *postgres.ChatRepository
}

func NewMessageService(messages *postgres.MessageRepository, chats *postgres.ChatRepository) *MessageService {
	return &MessageService{
		messages: messages,
		chats:    chats,
	}
}

// Create persists one message. The referenced chat must still exist; sender
// membership is the caller's concern (the pipeline authorizes before it
// persists).
func (s *MessageService) Create(ctx context.Context, chatID uint, senderID *uint, text string) (*models.Message, error) {
	if _, err := s.chats.FindByID(chatID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to look up chat: %w", err)
	}

	message := models.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Text:     text,
	}
	if err := s.messages.Create(&message); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	return &message, nil
}

// CreateWithAttachment persists one message carrying an uploaded file.
func (s *MessageService) CreateWithAttachment(ctx context.Context, chatID uint, senderID *uint, text string, url, fileName *string) (*models.Message, error) {
	if _, err := s.chats.FindByID(chatID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to look up chat: %w", err)
	}

	message := models.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Text:     text,
		URL:      url,
		FileName: fileName,
	}
	if err := s.messages.Create(&message); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	return &message, nil
}

func (s *MessageService) Get(ctx context.Context, messageID uint) (*models.Message, error) {
	message, err := s.messages.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return message, nil
}

func (s *MessageService) UpdateText(ctx context.Context, messageID uint, text string) (*models.Message, error) {
	message, err := s.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}

	message.Text = text
	if err := s.messages.Update(message); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	return message, nil
}

// SoftDelete marks the message deleted but keeps the row so history renders
// a tombstone.
func (s *MessageService) SoftDelete(ctx context.Context, messageID uint) (*models.Message, error) {
	message, err := s.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}

	message.IsDeleted = true
	if err := s.messages.Update(message); err != nil {
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}

	return message, nil
}

// History returns persisted messages for a chat in creation order.
func (s *MessageService) History(ctx context.Context, chatID uint, limit int, before *int64) ([]models.Message, error) {
	return s.messages.FindForChat(chatID, limit, before)
}
