package repo

import (
	"context"
	"reflect"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
)

// MemoryConversationRepository keeps session history in process memory.
// Used when Redis is not configured. maxMessages > 0 caps each session,
// dropping the oldest messages first.
type MemoryConversationRepository struct {
	mu          sync.RWMutex
	sessions    map[string][]*schema.Message
	maxMessages int
}

func NewMemoryConversationRepository(maxMessages int) *MemoryConversationRepository {
	return &MemoryConversationRepository{
		sessions:    make(map[string][]*schema.Message),
		maxMessages: maxMessages,
	}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, sessionID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := append(r.sessions[sessionID], message)
	if r.maxMessages > 0 && len(msgs) > r.maxMessages {
		msgs = append([]*schema.Message(nil), msgs[len(msgs)-r.maxMessages:]...)
	}
	r.sessions[sessionID] = msgs
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, sessionID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := make([]*schema.Message, len(r.sessions[sessionID]))
	copy(msgs, r.sessions[sessionID])
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) RemoveLastMessage(_ context.Context, sessionID string, expected *schema.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.sessions[sessionID]
	if len(msgs) == 0 || !reflect.DeepEqual(msgs[len(msgs)-1], expected) {
		return false, nil
	}
	r.sessions[sessionID] = msgs[:len(msgs)-1]
	return true, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, sessionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[sessionID]), nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
