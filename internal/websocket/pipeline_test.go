package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"chat-backend/internal/models"
	"chat-backend/internal/services"
)

type fakeMemberships struct {
	members map[uint][]uint // chatID -> member user IDs
	err     error
}

func (f *fakeMemberships) IsMember(_ context.Context, userID, chatID uint) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.members[chatID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMemberships) MemberIDs(_ context.Context, chatID uint) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.members[chatID], nil
}

type fakeStore struct {
	messages map[uint]*models.Message
	nextID   uint

	createCalls int
	updateCalls int
	deleteCalls int

	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: make(map[uint]*models.Message), nextID: 1}
}

func (f *fakeStore) Create(_ context.Context, chatID uint, senderID *uint, text string) (*models.Message, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	m := &models.Message{
		Model:    gorm.Model{ID: f.nextID, CreatedAt: time.Now(), UpdatedAt: time.Now()},
		ChatID:   chatID,
		SenderID: senderID,
		Text:     text,
	}
	f.messages[f.nextID] = m
	f.nextID++
	return m, nil
}

func (f *fakeStore) CreateWithAttachment(_ context.Context, chatID uint, senderID *uint, text string, url, fileName *string) (*models.Message, error) {
	m, err := f.Create(nil, chatID, senderID, text)
	if err != nil {
		return nil, err
	}
	m.URL = url
	m.FileName = fileName
	return m, nil
}

func (f *fakeStore) Get(_ context.Context, messageID uint) (*models.Message, error) {
	m, ok := f.messages[messageID]
	if !ok {
		return nil, services.ErrMessageNotFound
	}
	return m, nil
}

func (f *fakeStore) UpdateText(_ context.Context, messageID uint, text string) (*models.Message, error) {
	f.updateCalls++
	m, ok := f.messages[messageID]
	if !ok {
		return nil, services.ErrMessageNotFound
	}
	m.Text = text
	m.UpdatedAt = time.Now()
	return m, nil
}

func (f *fakeStore) SoftDelete(_ context.Context, messageID uint) (*models.Message, error) {
	f.deleteCalls++
	m, ok := f.messages[messageID]
	if !ok {
		return nil, services.ErrMessageNotFound
	}
	m.IsDeleted = true
	m.UpdatedAt = time.Now()
	return m, nil
}

// pipelineFixture wires a pipeline with in-memory fakes and two connected
// members (users 1 and 2) of chat 42.
type pipelineFixture struct {
	pipeline *Pipeline
	registry *Registry
	store    *fakeStore
	members  *fakeMemberships
	user1    *Client
	user2    *Client
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	registry := NewRegistry()
	store := newFakeStore()
	members := &fakeMemberships{members: map[uint][]uint{42: {1, 2}}}
	pipeline := NewPipeline(store, members, NewDispatcher(registry, nil))

	user1 := newTestClient(1)
	user2 := newTestClient(2)
	registry.Add(1, user1)
	registry.Add(2, user2)

	return &pipelineFixture{
		pipeline: pipeline,
		registry: registry,
		store:    store,
		members:  members,
		user1:    user1,
		user2:    user2,
	}
}

func receiveError(t *testing.T, c *Client) errorFrame {
	t.Helper()
	select {
	case data := <-c.send:
		var f errorFrame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("failed to decode error frame: %v", err)
		}
		if f.EventType != EventError {
			t.Fatalf("expected an error frame, got %s", f.EventType)
		}
		return f
	case <-time.After(time.Second):
		t.Fatal("no error frame delivered")
	}
	return errorFrame{}
}

func TestHandleFrameSendMessage(t *testing.T) {
	fx := newPipelineFixture(t)

	raw := []byte(`{"chat_id":42,"text":"hi"}`)
	fx.pipeline.HandleFrame(context.Background(), fx.user1, raw)

	if fx.store.createCalls != 1 {
		t.Fatalf("expected exactly one persisted message, got %d", fx.store.createCalls)
	}

	echo := receiveFrame(t, fx.user1)
	if !echo.IsSelf || echo.Text != "hi" || echo.ChatID != 42 {
		t.Errorf("unexpected sender echo: %+v", echo)
	}
	if echo.MessageID == nil {
		t.Error("delivered frame must carry the persisted message id")
	}

	delivered := receiveFrame(t, fx.user2)
	if delivered.IsSelf {
		t.Error("recipient frame must carry is_self=false")
	}
	if delivered.EventType != EventMessageCreated {
		t.Errorf("expected %s, got %s", EventMessageCreated, delivered.EventType)
	}
}

func TestHandleFrameMalformedReportsToOriginOnly(t *testing.T) {
	fx := newPipelineFixture(t)

	fx.pipeline.HandleFrame(context.Background(), fx.user1, []byte(`{not json`))

	f := receiveError(t, fx.user1)
	if f.Code != codeInvalidFrame {
		t.Errorf("expected %s, got %s", codeInvalidFrame, f.Code)
	}
	assertNoFrame(t, fx.user2)

	if fx.store.createCalls != 0 {
		t.Error("malformed frames must never reach the store")
	}
}

func TestHandleFrameUnknownAction(t *testing.T) {
	fx := newPipelineFixture(t)

	fx.pipeline.HandleFrame(context.Background(), fx.user1, []byte(`{"action":"dance","chat_id":42}`))

	f := receiveError(t, fx.user1)
	if f.Code != codeUnknownAction {
		t.Errorf("expected %s, got %s", codeUnknownAction, f.Code)
	}
	assertNoFrame(t, fx.user2)
}

func TestSendMessageRejectsNonMember(t *testing.T) {
	fx := newPipelineFixture(t)
	outsider := newTestClient(9)
	fx.registry.Add(9, outsider)

	fx.pipeline.HandleFrame(context.Background(), outsider, []byte(`{"chat_id":42,"text":"let me in"}`))

	f := receiveError(t, outsider)
	if f.Code != codeNotMember {
		t.Errorf("expected %s, got %s", codeNotMember, f.Code)
	}
	if fx.store.createCalls != 0 {
		t.Error("authorization failures must precede persistence")
	}
	assertNoFrame(t, fx.user1)
	assertNoFrame(t, fx.user2)
}

func TestSendMessagePersistFailure(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.store.createErr = errors.New("connection refused")

	fx.pipeline.HandleFrame(context.Background(), fx.user1, []byte(`{"chat_id":42,"text":"hi"}`))

	f := receiveError(t, fx.user1)
	if f.Code != codePersistFailed {
		t.Errorf("expected %s, got %s", codePersistFailed, f.Code)
	}
	assertNoFrame(t, fx.user2)
}

func TestEditMessageByOwner(t *testing.T) {
	fx := newPipelineFixture(t)
	msg, err := fx.pipeline.SendMessage(context.Background(), 1, 42, "before")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	receiveFrame(t, fx.user1)
	receiveFrame(t, fx.user2)

	if _, err := fx.pipeline.EditMessage(context.Background(), 1, msg.ID, "after"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	f := receiveFrame(t, fx.user2)
	if f.EventType != EventMessageEdited || f.Text != "after" {
		t.Errorf("unexpected edit frame: %+v", f)
	}
}

func TestEditMessageRejectsNonOwner(t *testing.T) {
	fx := newPipelineFixture(t)
	msg, err := fx.pipeline.SendMessage(context.Background(), 1, 42, "mine")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	receiveFrame(t, fx.user1)
	receiveFrame(t, fx.user2)

	if _, err := fx.pipeline.EditMessage(context.Background(), 2, msg.ID, "hijacked"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if fx.store.updateCalls != 0 {
		t.Error("ownership failures must never reach the store")
	}
	assertNoFrame(t, fx.user1)
	assertNoFrame(t, fx.user2)
}

func TestDeleteMessageRejectsNonOwner(t *testing.T) {
	fx := newPipelineFixture(t)
	msg, err := fx.pipeline.SendMessage(context.Background(), 1, 42, "mine")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	receiveFrame(t, fx.user1)
	receiveFrame(t, fx.user2)

	if _, err := fx.pipeline.DeleteMessage(context.Background(), 2, msg.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if fx.store.deleteCalls != 0 {
		t.Error("ownership failures must never reach the store")
	}
}

func TestDeleteMessageByOwner(t *testing.T) {
	fx := newPipelineFixture(t)
	msg, err := fx.pipeline.SendMessage(context.Background(), 1, 42, "oops")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	receiveFrame(t, fx.user1)
	receiveFrame(t, fx.user2)

	deleted, err := fx.pipeline.DeleteMessage(context.Background(), 1, msg.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !deleted.IsDeleted {
		t.Error("expected a tombstoned message")
	}

	f := receiveFrame(t, fx.user2)
	if f.EventType != EventMessageDeleted {
		t.Errorf("expected %s, got %s", EventMessageDeleted, f.EventType)
	}
	if f.Text != "" {
		t.Error("deletion frames must not leak the original text")
	}
}

func TestEditMissingMessage(t *testing.T) {
	fx := newPipelineFixture(t)

	fx.pipeline.HandleFrame(context.Background(), fx.user1, []byte(`{"action":"message.edit","message_id":999,"text":"x"}`))

	f := receiveError(t, fx.user1)
	if f.Code != codeNotFound {
		t.Errorf("expected %s, got %s", codeNotFound, f.Code)
	}
}

func TestTypingSkipsPersistence(t *testing.T) {
	fx := newPipelineFixture(t)

	fx.pipeline.HandleFrame(context.Background(), fx.user1, []byte(`{"action":"typing","chat_id":42}`))

	if fx.store.createCalls != 0 {
		t.Error("typing must never be persisted")
	}

	f := receiveFrame(t, fx.user2)
	if f.EventType != EventUserTyping {
		t.Errorf("expected %s, got %s", EventUserTyping, f.EventType)
	}
	if f.SenderID == nil || *f.SenderID != 1 {
		t.Errorf("expected sender_id=1, got %v", f.SenderID)
	}
}

func TestTypingRejectsNonMember(t *testing.T) {
	fx := newPipelineFixture(t)
	outsider := newTestClient(9)
	fx.registry.Add(9, outsider)

	fx.pipeline.HandleFrame(context.Background(), outsider, []byte(`{"action":"typing","chat_id":42}`))

	f := receiveError(t, outsider)
	if f.Code != codeNotMember {
		t.Errorf("expected %s, got %s", codeNotMember, f.Code)
	}
	assertNoFrame(t, fx.user2)
}

func TestAnnounceMembershipChange(t *testing.T) {
	fx := newPipelineFixture(t)

	fx.pipeline.Announce(context.Background(), MembershipChanged{
		ChatID: 42,
		UserID: 2,
		Action: "left",
	})

	for _, c := range []*Client{fx.user1, fx.user2} {
		f := receiveFrame(t, c)
		if f.EventType != EventMembershipChanged || f.Action != "left" {
			t.Errorf("unexpected frame for user %d: %+v", c.UserID(), f)
		}
	}
}

func TestSendAttachment(t *testing.T) {
	fx := newPipelineFixture(t)

	msg, err := fx.pipeline.SendAttachment(context.Background(), 1, 42, "see attached", "http://files/attachments/a.png", "a.png")
	if err != nil {
		t.Fatalf("send attachment failed: %v", err)
	}
	if msg.URL == nil || msg.FileName == nil {
		t.Fatal("expected the persisted message to carry the attachment")
	}

	receiveFrame(t, fx.user1)
	f := receiveFrame(t, fx.user2)
	if f.URL == nil || *f.URL != "http://files/attachments/a.png" {
		t.Errorf("expected the attachment URL in the frame, got %v", f.URL)
	}
	if f.FileName == nil || *f.FileName != "a.png" {
		t.Errorf("expected the attachment file name in the frame, got %v", f.FileName)
	}
}

func TestSendAttachmentRejectsNonMember(t *testing.T) {
	fx := newPipelineFixture(t)

	if _, err := fx.pipeline.SendAttachment(context.Background(), 9, 42, "", "http://files/x", "x"); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if fx.store.createCalls != 0 {
		t.Error("authorization failures must precede persistence")
	}
}

func TestDispatchSurvivesMemberResolutionFailure(t *testing.T) {
	fx := newPipelineFixture(t)

	msg, err := fx.pipeline.SendMessage(context.Background(), 1, 42, "hi")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	receiveFrame(t, fx.user1)
	receiveFrame(t, fx.user2)

	// Member resolution starts failing after the message is durable.
	fx.members.err = errors.New("connection reset")
	if _, err := fx.pipeline.EditMessage(context.Background(), 1, msg.ID, "edited"); err != nil {
		t.Fatalf("edit must succeed even when fan-out is lost: %v", err)
	}
	if fx.store.updateCalls != 1 {
		t.Fatalf("expected one update, got %d", fx.store.updateCalls)
	}
	assertNoFrame(t, fx.user2)
}
