package postgres

import (
	"chat-backend/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	return &message, err
}

func (r *MessageRepository) Update(message *models.Message) error {
	return r.db.Save(message).Error
}

// FindForChat returns chat history in creation order. When before is set,
// only messages created earlier than that timestamp (unix seconds) are
// returned, which the frontend uses for infinite scroll.
func (r *MessageRepository) FindForChat(chatID uint, limit int, before *int64) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	db := r.db.Where("chat_id = ?", chatID)
	if before != nil {
		db = db.Where("created_at < to_timestamp(?)", *before)
	}

	var messages []models.Message
	err := db.Order("created_at DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse so the caller always sees chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
