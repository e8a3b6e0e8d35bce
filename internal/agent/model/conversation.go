package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// AddMessage appends a message to the session history.
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// LoadHistory retrieves the full session history in insertion order.
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	// RemoveLastMessage drops the newest message only when it equals expected,
	// reporting whether anything was removed.
	RemoveLastMessage(ctx context.Context, sessionID string, expected *schema.Message) (bool, error)

	// ClearHistory removes all history for a session.
	ClearHistory(ctx context.Context, sessionID string) error

	// GetMessageCount returns the number of messages stored for the session.
	GetMessageCount(ctx context.Context, sessionID string) (int, error)
}

// ConversationHistory represents loaded session data.
type ConversationHistory struct {
	SessionID string
	Messages  []*schema.Message
}
