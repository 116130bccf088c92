package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"log/slog"

	"chat-backend/internal/models"
	"chat-backend/internal/services"
)

// Authorization failures surfaced by the pipeline. They are reported to the
// originating connection before any write is attempted.
var (
	ErrNotMember = errors.New("user is not a member of the chat")
	ErrNotOwner  = errors.New("message does not belong to the user")
)

// Memberships is the membership collaborator. The pipeline resolves the
// member list fresh for every event; caching here would leak deliveries to
// removed members or miss new ones.
type Memberships interface {
	IsMember(ctx context.Context, userID, chatID uint) (bool, error)
	MemberIDs(ctx context.Context, chatID uint) ([]uint, error)
}

// MessageStore is the storage collaborator. Writes are at-least single-event
// atomic; the pipeline never retries a failed write.
type MessageStore interface {
	Create(ctx context.Context, chatID uint, senderID *uint, text string) (*models.Message, error)
	CreateWithAttachment(ctx context.Context, chatID uint, senderID *uint, text string, url, fileName *string) (*models.Message, error)
	Get(ctx context.Context, messageID uint) (*models.Message, error)
	UpdateText(ctx context.Context, messageID uint, text string) (*models.Message, error)
	SoftDelete(ctx context.Context, messageID uint) (*models.Message, error)
}

// Inbound client-to-server frame. A frame without an action is a plain
// message send.
type inboundFrame struct {
	Action    string `json:"action,omitempty"`
	ChatID    uint   `json:"chat_id"`
	MessageID uint   `json:"message_id,omitempty"`
	Text      string `json:"text"`
}

const (
	actionSend   = "message.send"
	actionEdit   = "message.edit"
	actionDelete = "message.delete"
	actionTyping = "typing"
)

// Error codes reported on the originating connection.
const (
	codeInvalidFrame  = "INVALID_MESSAGE"
	codeUnknownAction = "UNKNOWN_ACTION"
	codeNotMember     = "NOT_MEMBER"
	codeNotOwner      = "NOT_OWNER"
	codeNotFound      = "NOT_FOUND"
	codePersistFailed = "PERSIST_FAILED"
)

// Pipeline turns one inbound frame into a durable, fanned-out chat event:
// parse, authorize, persist, resolve members, dispatch. REST handlers use the
// same methods to inject server-generated events into the identical dispatch
// path.
type Pipeline struct {
	store      MessageStore
	members    Memberships
	dispatcher *Dispatcher
}

func NewPipeline(store MessageStore, members Memberships, dispatcher *Dispatcher) *Pipeline {
	return &Pipeline{
		store:      store,
		members:    members,
		dispatcher: dispatcher,
	}
}

// HandleFrame runs one inbound frame through the state machine. Failures are
// reported to the originating connection only; the caller's receive loop
// continues regardless of the outcome.
func (p *Pipeline) HandleFrame(ctx context.Context, c *Client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		p.reportError(c, codeInvalidFrame, "invalid frame format")
		return
	}

	var err error
	switch frame.Action {
	case "", actionSend:
		_, err = p.SendMessage(ctx, c.UserID(), frame.ChatID, frame.Text)
	case actionEdit:
		_, err = p.EditMessage(ctx, c.UserID(), frame.MessageID, frame.Text)
	case actionDelete:
		_, err = p.DeleteMessage(ctx, c.UserID(), frame.MessageID)
	case actionTyping:
		err = p.Typing(ctx, c.UserID(), frame.ChatID)
	default:
		p.reportError(c, codeUnknownAction, "unknown action: "+frame.Action)
		return
	}

	if err != nil {
		code, msg := classify(err)
		p.reportError(c, code, msg)
	}
}

// SendMessage authorizes, persists, and fans out a new message. The sender
// is included in the recipients and distinguishes the echo via is_self.
func (p *Pipeline) SendMessage(ctx context.Context, senderID, chatID uint, text string) (*models.Message, error) {
	member, err := p.members.IsMember(ctx, senderID, chatID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotMember
	}

	message, err := p.store.Create(ctx, chatID, &senderID, text)
	if err != nil {
		return nil, err
	}

	p.dispatch(ctx, MessageCreated{
		ChatID:    chatID,
		SenderID:  senderID,
		MessageID: message.ID,
		Text:      message.Text,
		CreatedAt: message.CreatedAt,
	})
	return message, nil
}

// SendAttachment persists and fans out a message carrying an uploaded file.
// It follows the same authorize-then-persist path as a plain send.
func (p *Pipeline) SendAttachment(ctx context.Context, senderID, chatID uint, text string, url, fileName string) (*models.Message, error) {
	member, err := p.members.IsMember(ctx, senderID, chatID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotMember
	}

	message, err := p.store.CreateWithAttachment(ctx, chatID, &senderID, text, &url, &fileName)
	if err != nil {
		return nil, err
	}

	p.dispatch(ctx, MessageCreated{
		ChatID:    chatID,
		SenderID:  senderID,
		MessageID: message.ID,
		Text:      message.Text,
		URL:       message.URL,
		FileName:  message.FileName,
		CreatedAt: message.CreatedAt,
	})
	return message, nil
}

// EditMessage lets the original sender change a message's text. Ownership is
// checked before any write reaches the store.
func (p *Pipeline) EditMessage(ctx context.Context, actorID, messageID uint, text string) (*models.Message, error) {
	message, err := p.store.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID == nil || *message.SenderID != actorID {
		return nil, ErrNotOwner
	}

	updated, err := p.store.UpdateText(ctx, messageID, text)
	if err != nil {
		return nil, err
	}

	p.dispatch(ctx, MessageEdited{
		ChatID:    updated.ChatID,
		SenderID:  actorID,
		MessageID: updated.ID,
		Text:      updated.Text,
		CreatedAt: updated.CreatedAt,
		UpdatedAt: updated.UpdatedAt,
	})
	return updated, nil
}

// DeleteMessage lets the original sender delete a message. Ownership is
// checked before any write reaches the store.
func (p *Pipeline) DeleteMessage(ctx context.Context, actorID, messageID uint) (*models.Message, error) {
	message, err := p.store.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID == nil || *message.SenderID != actorID {
		return nil, ErrNotOwner
	}

	deleted, err := p.store.SoftDelete(ctx, messageID)
	if err != nil {
		return nil, err
	}

	p.dispatch(ctx, MessageDeleted{
		ChatID:    deleted.ChatID,
		SenderID:  actorID,
		MessageID: deleted.ID,
		CreatedAt: deleted.CreatedAt,
		UpdatedAt: deleted.UpdatedAt,
	})
	return deleted, nil
}

// Typing is fire-and-forget: it is never persisted and goes straight from
// the membership check to dispatch.
func (p *Pipeline) Typing(ctx context.Context, userID, chatID uint) error {
	member, err := p.members.IsMember(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}

	p.dispatch(ctx, UserTyping{ChatID: chatID, UserID: userID})
	return nil
}

// Announce injects a server-generated event (e.g. a membership change made
// over REST) into the same dispatch path live messages use.
func (p *Pipeline) Announce(ctx context.Context, event Event) {
	p.dispatch(ctx, event)
}

// dispatch resolves the current member list and hands off to the Dispatcher.
// The event is already durable at this point, so a resolution failure only
// costs the fan-out; it is logged and not surfaced to the sender.
func (p *Pipeline) dispatch(ctx context.Context, event Event) {
	recipients, err := p.members.MemberIDs(ctx, event.Chat())
	if err != nil {
		slog.Error("Failed to resolve chat members", "chatID", event.Chat(), "type", event.Type(), "error", err)
		return
	}

	p.dispatcher.Broadcast(ctx, event, recipients)
}

func (p *Pipeline) reportError(c *Client, code, message string) {
	data, err := json.Marshal(errorFrame{
		EventType: EventError,
		Code:      code,
		Message:   message,
	})
	if err != nil {
		return
	}
	if err := c.Send(data); err != nil {
		slog.Debug("Failed to report error to client", "clientID", c.ID(), "code", code, "error", err)
	}
}

// classify maps a pipeline failure to the code reported on the originating
// connection.
func classify(err error) (code, message string) {
	switch {
	case errors.Is(err, ErrNotMember):
		return codeNotMember, "you are not a member of this chat"
	case errors.Is(err, ErrNotOwner):
		return codeNotOwner, "the message does not belong to you"
	case errors.Is(err, services.ErrChatNotFound):
		return codeNotFound, "chat not found"
	case errors.Is(err, services.ErrMessageNotFound):
		return codeNotFound, "message not found"
	default:
		return codePersistFailed, "could not process the message"
	}
}
