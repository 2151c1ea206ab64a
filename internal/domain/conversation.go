package domain

import "time"

// MessageRole distinguishes who produced a chat message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Conversation groups a chat exchange. Title is empty until auto-generated
// after the first completed turn.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single chat turn. Token counters are populated for assistant
// messages only.
type Message struct {
	ID             string
	ConversationID string
	Role           MessageRole
	Content        string
	InputTokens    int
	OutputTokens   int
	Metadata       map[string]string
	CreatedAt      time.Time
}

// ValidateMessage checks required fields before persistence.
func ValidateMessage(m *Message) error {
	if m.ID == "" {
		return NewDomainError(ErrCodeValidation, "message id is required")
	}
	if m.ConversationID == "" {
		return NewDomainError(ErrCodeValidation, "message conversation id is required")
	}
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return ErrInvalidRole
	}
	return nil
}
