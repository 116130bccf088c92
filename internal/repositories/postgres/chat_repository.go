package postgres

import (
	"chat-backend/internal/models"

	"gorm.io/gorm"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db}
}

func (r *ChatRepository) Create(chat *models.Chat) error {
	return r.db.Create(chat).Error
}

func (r *ChatRepository) FindByID(id uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.First(&chat, id).Error
	return &chat, err
}

func (r *ChatRepository) FindAllForUser(userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.
		Joins("JOIN chat_participants ON chat_participants.chat_id = chats.id").
		Where("chat_participants.user_id = ?", userID).
		Find(&chats).Error
	return chats, err
}

// FindPrivateBetween returns the private chat shared by both users, if one
// exists.
func (r *ChatRepository) FindPrivateBetween(userA, userB uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.
		Joins("JOIN chat_participants pa ON pa.chat_id = chats.id AND pa.user_id = ?", userA).
		Joins("JOIN chat_participants pb ON pb.chat_id = chats.id AND pb.user_id = ?", userB).
		Where("chats.type = ?", models.ChatTypePrivate).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) AddParticipant(chatID, userID uint) error {
	return r.db.Create(&models.ChatParticipant{ChatID: chatID, UserID: userID}).Error
}

// RemoveParticipant deletes the membership row outright. A tombstone would
// keep occupying the (chat_id, user_id) unique index and block rejoining.
func (r *ChatRepository) RemoveParticipant(chatID, userID uint) error {
	return r.db.
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Delete(&models.ChatParticipant{}).Error
}

func (r *ChatRepository) IsParticipant(chatID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ChatRepository) ParticipantIDs(chatID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ChatParticipant{}).
		Where("chat_id = ?", chatID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *ChatRepository) Participants(chatID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Joins("JOIN chat_participants ON chat_participants.user_id = users.id").
		Where("chat_participants.chat_id = ?", chatID).
		Find(&users).Error
	return users, err
}
