package conversations

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
)

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxMessages      int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	maxMessages := config.History.MaxMessages
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxMessages:      maxMessages,
	}
}

// SaveUserMessage appends the human turn to the session history.
func (cm *MessagesManager) SaveUserMessage(ctx context.Context, sessionID, content string) error {
	return cm.conversationRepo.AddMessage(ctx, sessionID, schema.UserMessage(content))
}

// DiscardUserMessage undoes SaveUserMessage for a turn that produced no reply.
// It is a no-op when anything was appended after the user message.
func (cm *MessagesManager) DiscardUserMessage(ctx context.Context, sessionID, content string) error {
	_, err := cm.conversationRepo.RemoveLastMessage(ctx, sessionID, schema.UserMessage(content))
	return err
}

// ChatHistory renders the last N messages of the session as a buffer string.
// With excludeLast the newest message, the human turn just saved by
// SaveUserMessage, is dropped before the window is applied.
func (cm *MessagesManager) ChatHistory(ctx context.Context, sessionID string, excludeLast bool) (string, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		return "", err
	}

	msgs := history.Messages
	if excludeLast && len(msgs) > 0 {
		msgs = msgs[:len(msgs)-1]
	}
	return BufferString(trimTail(msgs, cm.maxMessages)), nil
}

// SaveResponse appends a final assistant reply. Empty replies are not stored.
func (cm *MessagesManager) SaveResponse(ctx context.Context, sessionID, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return cm.conversationRepo.AddMessage(ctx, sessionID, schema.AssistantMessage(content, nil))
}

// Reset forgets the whole session.
func (cm *MessagesManager) Reset(ctx context.Context, sessionID string) error {
	return cm.conversationRepo.ClearHistory(ctx, sessionID)
}

// BufferString renders messages one per line with a role prefix.
func BufferString(messages []*schema.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		var prefix string
		switch msg.Role {
		case schema.User:
			prefix = "Human"
		case schema.Assistant:
			prefix = "AI"
		case schema.System:
			prefix = "System"
		case schema.Tool:
			prefix = "Tool"
		default:
			prefix = string(msg.Role)
		}
		lines = append(lines, prefix+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxMessages int) []*schema.Message {
	if len(messages) <= maxMessages {
		return messages
	}
	return messages[len(messages)-maxMessages:]
}
