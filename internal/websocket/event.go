package websocket

import "time"

// EventType tags the variant of a chat event using a custom enum type for
// better type safety
type EventType string

const (
	EventMessageCreated    EventType = "message.created"
	EventMessageEdited     EventType = "message.edited"
	EventMessageDeleted    EventType = "message.deleted"
	EventUserTyping        EventType = "user.typing"
	EventMembershipChanged EventType = "membership.changed"

	// Error events
	EventError EventType = "error"
)

// String returns the string representation of the EventType
func (et EventType) String() string {
	return string(et)
}

// Event is one unit of chat activity produced by the pipeline and consumed
// read-only by the Dispatcher. Each variant carries exactly the fields its
// type needs; values are immutable once constructed.
type Event interface {
	Type() EventType
	Chat() uint
	// Sender reports the acting user; ok is false for system-generated
	// events such as membership changes.
	Sender() (id uint, ok bool)
}

type MessageCreated struct {
	ChatID    uint
	SenderID  uint
	MessageID uint
	Text      string
	URL       *string // attachment, if any
	FileName  *string
	CreatedAt time.Time
}

func (e MessageCreated) Type() EventType      { return EventMessageCreated }
func (e MessageCreated) Chat() uint           { return e.ChatID }
func (e MessageCreated) Sender() (uint, bool) { return e.SenderID, true }

type MessageEdited struct {
	ChatID    uint
	SenderID  uint
	MessageID uint
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e MessageEdited) Type() EventType      { return EventMessageEdited }
func (e MessageEdited) Chat() uint           { return e.ChatID }
func (e MessageEdited) Sender() (uint, bool) { return e.SenderID, true }

type MessageDeleted struct {
	ChatID    uint
	SenderID  uint
	MessageID uint
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e MessageDeleted) Type() EventType      { return EventMessageDeleted }
func (e MessageDeleted) Chat() uint           { return e.ChatID }
func (e MessageDeleted) Sender() (uint, bool) { return e.SenderID, true }

type UserTyping struct {
	ChatID uint
	UserID uint
}

func (e UserTyping) Type() EventType      { return EventUserTyping }
func (e UserTyping) Chat() uint           { return e.ChatID }
func (e UserTyping) Sender() (uint, bool) { return e.UserID, true }

// MembershipChanged announces a user joining or leaving a chat. It is
// system-generated and therefore has no sender.
type MembershipChanged struct {
	ChatID uint
	UserID uint
	Action string // "joined" | "left"
}

func (e MembershipChanged) Type() EventType      { return EventMembershipChanged }
func (e MembershipChanged) Chat() uint           { return e.ChatID }
func (e MembershipChanged) Sender() (uint, bool) { return 0, false }

// Frame is the wire shape of a server-to-client event. Optional fields are
// present only for the variants that carry them.
type Frame struct {
	EventType EventType  `json:"event_type"`
	ChatID    uint       `json:"chat_id"`
	MessageID *uint      `json:"message_id,omitempty"`
	Text      string     `json:"text,omitempty"`
	SenderID  *uint      `json:"sender_id,omitempty"`
	URL       *string    `json:"url,omitempty"`
	FileName  *string    `json:"file_name,omitempty"`
	IsSelf    bool       `json:"is_self"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	UserID    *uint      `json:"user_id,omitempty"`
	Action    string     `json:"action,omitempty"`
}

// frameFor flattens an event into its wire shape for one recipient.
func frameFor(event Event, isSelf bool) Frame {
	frame := Frame{
		EventType: event.Type(),
		ChatID:    event.Chat(),
		IsSelf:    isSelf,
	}

	switch e := event.(type) {
	case MessageCreated:
		sender := e.SenderID
		id := e.MessageID
		created := e.CreatedAt
		frame.SenderID = &sender
		frame.MessageID = &id
		frame.Text = e.Text
		frame.URL = e.URL
		frame.FileName = e.FileName
		frame.CreatedAt = &created
	case MessageEdited:
		sender := e.SenderID
		id := e.MessageID
		created := e.CreatedAt
		updated := e.UpdatedAt
		frame.SenderID = &sender
		frame.MessageID = &id
		frame.Text = e.Text
		frame.CreatedAt = &created
		frame.UpdatedAt = &updated
	case MessageDeleted:
		sender := e.SenderID
		id := e.MessageID
		created := e.CreatedAt
		updated := e.UpdatedAt
		frame.SenderID = &sender
		frame.MessageID = &id
		frame.CreatedAt = &created
		frame.UpdatedAt = &updated
	case UserTyping:
		sender := e.UserID
		frame.SenderID = &sender
	case MembershipChanged:
		user := e.UserID
		frame.UserID = &user
		frame.Action = e.Action
	}

	return frame
}

// errorFrame is reported to the originating connection only.
type errorFrame struct {
	EventType EventType `json:"event_type"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
}
