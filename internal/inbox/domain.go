package inbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ConversationStatus tracks where a conversation sits in the support flow.
type ConversationStatus string

const (
	StatusOpen     ConversationStatus = "open"
	StatusPending  ConversationStatus = "pending"
	StatusResolved ConversationStatus = "resolved"
)

// Conversation is a support thread between a contact and the team.
type Conversation struct {
	ID         uuid.UUID
	ContactID  int64
	AssigneeID *int64
	Channel    string
	Subject    string
	Status     ConversationStatus
	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Message is an authoritative, server-assigned record in a conversation.
// Provisional counterparts live only in the optimistic store and never
// reach this table.
type Message struct {
	ID             int64
	ConversationID uuid.UUID
	AuthorID       int64
	Direction      string
	Content        ContentEnvelope
	CreatedAt      time.Time
}

// MessageType discriminates the content union.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeAudio    MessageType = "audio"
	TypeVideo    MessageType = "video"
	TypeDocument MessageType = "document"
)

// TextContent carries a plain text body.
type TextContent struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// MediaContent carries an uploaded image, audio or video attachment.
type MediaContent struct {
	URL       string `json:"url" validate:"required,url"`
	MimeType  string `json:"mime_type" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"gte=0"`
	Caption   string `json:"caption" validate:"max=1000"`
}

// DocumentContent carries a named file attachment.
type DocumentContent struct {
	URL      string `json:"url" validate:"required,url"`
	FileName string `json:"file_name" validate:"required,max=255"`
	MimeType string `json:"mime_type" validate:"required"`
}

// ContentEnvelope is the tagged union for message payloads: exactly the
// variant matching Type must be populated. It is validated at construction
// so an unknown or mismatched payload is rejected before any provisional
// entry exists.
type ContentEnvelope struct {
	Type     MessageType      `json:"message_type"`
	Text     *TextContent     `json:"text,omitempty"`
	Image    *MediaContent    `json:"image,omitempty"`
	Audio    *MediaContent    `json:"audio,omitempty"`
	Video    *MediaContent    `json:"video,omitempty"`
	Document *DocumentContent `json:"document,omitempty"`
}

// ErrUnknownMessageType is returned for a Type outside the known variants.
type ErrUnknownMessageType struct {
	Type MessageType
}

func (e ErrUnknownMessageType) Error() string {
	return fmt.Sprintf("inbox: unknown message type %q", e.Type)
}

// Validate checks that the variant selected by Type is present, well
// formed, and that no stray variant is attached.
func (c ContentEnvelope) Validate(v *validator.Validate) error {
	var variant any
	switch c.Type {
	case TypeText:
		variant = c.Text
	case TypeImage:
		variant = c.Image
	case TypeAudio:
		variant = c.Audio
	case TypeVideo:
		variant = c.Video
	case TypeDocument:
		variant = c.Document
	default:
		return ErrUnknownMessageType{Type: c.Type}
	}
	if variant == nil || isNilPointer(variant) {
		return fmt.Errorf("inbox: message type %s requires a %s payload", c.Type, c.Type)
	}
	if n := c.populatedVariants(); n != 1 {
		return fmt.Errorf("inbox: expected exactly one payload variant, got %d", n)
	}
	return v.Struct(variant)
}

func (c ContentEnvelope) populatedVariants() int {
	n := 0
	if c.Text != nil {
		n++
	}
	if c.Image != nil {
		n++
	}
	if c.Audio != nil {
		n++
	}
	if c.Video != nil {
		n++
	}
	if c.Document != nil {
		n++
	}
	return n
}

func isNilPointer(v any) bool {
	switch t := v.(type) {
	case *TextContent:
		return t == nil
	case *MediaContent:
		return t == nil
	case *DocumentContent:
		return t == nil
	}
	return false
}

// ParseContent decodes and validates a content envelope from a request
// body fragment.
func ParseContent(raw json.RawMessage, v *validator.Validate) (ContentEnvelope, error) {
	var envelope ContentEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ContentEnvelope{}, fmt.Errorf("inbox: decode content: %w", err)
	}
	if err := envelope.Validate(v); err != nil {
		return ContentEnvelope{}, err
	}
	return envelope, nil
}

// MessageScope builds the optimistic scope bucket key for a conversation.
func MessageScope(conversationID uuid.UUID) string {
	return "messages:" + conversationID.String()
}
