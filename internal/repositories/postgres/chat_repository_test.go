package postgres

import (
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chat-backend/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A second pooled connection would see a different in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Chat{}, &models.ChatParticipant{}, &models.Message{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func TestParticipantLeaveThenRejoin(t *testing.T) {
	repo := NewChatRepository(openTestDB(t))

	chat := models.Chat{Type: models.ChatTypeGroup, Title: "general", CreatedBy: 1}
	if err := repo.Create(&chat); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}

	if err := repo.AddParticipant(chat.ID, 3); err != nil {
		t.Fatalf("failed to add participant: %v", err)
	}
	if err := repo.RemoveParticipant(chat.ID, 3); err != nil {
		t.Fatalf("failed to remove participant: %v", err)
	}

	member, err := repo.IsParticipant(chat.ID, 3)
	if err != nil {
		t.Fatalf("membership check failed: %v", err)
	}
	if member {
		t.Fatal("expected the user to be gone after leaving")
	}

	// The unique (chat_id, user_id) index must not still hold the departed
	// row.
	if err := repo.AddParticipant(chat.ID, 3); err != nil {
		t.Fatalf("rejoining after leaving must succeed: %v", err)
	}

	member, err = repo.IsParticipant(chat.ID, 3)
	if err != nil {
		t.Fatalf("membership check failed: %v", err)
	}
	if !member {
		t.Fatal("expected the user to be a member again after rejoining")
	}

	ids, err := repo.ParticipantIDs(chat.ID)
	if err != nil {
		t.Fatalf("failed to list participant ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != 3 {
		t.Fatalf("expected exactly one membership row, got %v", ids)
	}
}

func TestFindPrivateBetween(t *testing.T) {
	repo := NewChatRepository(openTestDB(t))

	chat := models.Chat{Type: models.ChatTypePrivate, CreatedBy: 1}
	if err := repo.Create(&chat); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}
	if err := repo.AddParticipant(chat.ID, 1); err != nil {
		t.Fatalf("failed to add creator: %v", err)
	}
	if err := repo.AddParticipant(chat.ID, 2); err != nil {
		t.Fatalf("failed to add peer: %v", err)
	}

	found, err := repo.FindPrivateBetween(1, 2)
	if err != nil {
		t.Fatalf("failed to find private chat: %v", err)
	}
	if found.ID != chat.ID {
		t.Fatalf("expected chat %d, got %d", chat.ID, found.ID)
	}
}

func TestFindPrivateBetweenIgnoresDepartedPairs(t *testing.T) {
	repo := NewChatRepository(openTestDB(t))

	chat := models.Chat{Type: models.ChatTypePrivate, CreatedBy: 1}
	if err := repo.Create(&chat); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}
	if err := repo.AddParticipant(chat.ID, 1); err != nil {
		t.Fatalf("failed to add creator: %v", err)
	}
	if err := repo.AddParticipant(chat.ID, 2); err != nil {
		t.Fatalf("failed to add peer: %v", err)
	}
	if err := repo.RemoveParticipant(chat.ID, 2); err != nil {
		t.Fatalf("failed to remove peer: %v", err)
	}

	// The pair no longer shares the chat, so dedup must not resurface it.
	if _, err := repo.FindPrivateBetween(1, 2); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected no shared private chat, got err=%v", err)
	}
}
