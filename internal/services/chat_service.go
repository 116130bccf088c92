package services

import (
	"context"
	"errors"
	"fmt"

	"chat-backend/internal/models"
	"chat-backend/internal/repositories/postgres"

	"gorm.io/gorm"
)

var (
	ErrChatNotFound  = errors.New("chat not found")
	ErrNotMember     = errors.New("user is not a member of the chat")
	ErrAlreadyMember = errors.New("user already in chat")
	ErrPeerRequired  = errors.New("private chat requires a peer")
)

// ChatService owns chat and membership state. It is the membership
// collaborator the realtime core resolves recipients through.
type ChatService struct {
	chats *postgres.ChatRepository
	users *postgres.UserRepository
}

func NewChatService(chats *postgres.ChatRepository, users *postgres.UserRepository) *ChatService {
	return &ChatService{
		chats: chats,
		users: users,
	}
}

// CreateChat creates a chat with the creator as first participant. Private
// chats get the peer added as well.
func (s *ChatService) CreateChat(ctx context.Context, creatorID uint, req *models.CreateChatRequest) (*models.Chat, error) {
	if req.Type == models.ChatTypePrivate {
		if req.PeerID == nil {
			return nil, ErrPeerRequired
		}
		// One private chat per pair: creating it again returns the
		// existing one.
		if existing, err := s.chats.FindPrivateBetween(creatorID, *req.PeerID); err == nil {
			return existing, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up private chat: %w", err)
		}
	}

	chat := models.Chat{
		Type:      req.Type,
		Title:     req.Title,
		CreatedBy: creatorID,
	}
	if err := s.chats.Create(&chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	if err := s.chats.AddParticipant(chat.ID, creatorID); err != nil {
		return nil, fmt.Errorf("failed to add creator to chat: %w", err)
	}

	if req.Type == models.ChatTypePrivate && *req.PeerID != creatorID {
		if err := s.chats.AddParticipant(chat.ID, *req.PeerID); err != nil {
			return nil, fmt.Errorf("failed to add peer to chat: %w", err)
		}
	}

	return &chat, nil
}

// AddMember adds userID to the chat. The actor must already be a member.
func (s *ChatService) AddMember(ctx context.Context, actorID, chatID, userID uint) error {
	if _, err := s.chats.FindByID(chatID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return err
	}

	actorIsMember, err := s.chats.IsParticipant(chatID, actorID)
	if err != nil {
		return err
	}
	if !actorIsMember {
		return ErrNotMember
	}

	exists, err := s.chats.IsParticipant(chatID, userID)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyMember
	}

	return s.chats.AddParticipant(chatID, userID)
}

// RemoveMember removes userID from the chat. Users may remove themselves;
// anyone else doing the removing must be a member.
func (s *ChatService) RemoveMember(ctx context.Context, actorID, chatID, userID uint) error {
	if actorID != userID {
		actorIsMember, err := s.chats.IsParticipant(chatID, actorID)
		if err != nil {
			return err
		}
		if !actorIsMember {
			return ErrNotMember
		}
	}

	isMember, err := s.chats.IsParticipant(chatID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotMember
	}

	return s.chats.RemoveParticipant(chatID, userID)
}

func (s *ChatService) IsMember(ctx context.Context, userID, chatID uint) (bool, error) {
	return s.chats.IsParticipant(chatID, userID)
}

// MemberIDs resolves the current member list. The realtime core calls this
// fresh per event and must never cache the result.
func (s *ChatService) MemberIDs(ctx context.Context, chatID uint) ([]uint, error) {
	return s.chats.ParticipantIDs(chatID)
}

func (s *ChatService) Members(ctx context.Context, chatID uint) ([]models.User, error) {
	return s.chats.Participants(chatID)
}

func (s *ChatService) ChatsForUser(ctx context.Context, userID uint) ([]models.Chat, error) {
	return s.chats.FindAllForUser(userID)
}
