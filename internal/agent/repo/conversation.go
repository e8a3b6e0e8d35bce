package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
)

// RedisConversationRepository stores each session as a Redis list of
// JSON-encoded messages. The list is trimmed to maxMessages on every append
// and expires ttl after the last one.
type RedisConversationRepository struct {
	rdb         redis.Cmdable
	ttl         time.Duration
	maxMessages int
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)

// NewRedisConversationRepository returns a repository over rdb. maxMessages
// <= 0 keeps every message; ttl <= 0 never expires sessions.
func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration, maxMessages int) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl, maxMessages: maxMessages}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID + ":messages"
}

// AddMessage appends, trims and touches the session list in one MULTI.
func (r *RedisConversationRepository) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", message.Role, err)
	}
	key := sessionKey(sessionID)

	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, key, payload)
	if r.maxMessages > 0 {
		pipe.LTrim(ctx, key, int64(-r.maxMessages), -1)
	}
	var expire *redis.BoolCmd
	if r.ttl > 0 {
		expire = pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("append to session history failed")
		return errx.WrapRedis(err)
	}

	if expire != nil && !expire.Val() {
		logx.Warn().Str("session_id", sessionID).Dur("ttl", r.ttl).Msg("session history ttl not applied")
	}
	return nil
}

// LoadHistory reads at most maxMessages from the tail of the session list.
func (r *RedisConversationRepository) LoadHistory(ctx context.Context, sessionID string) (*model.ConversationHistory, error) {
	start := int64(0)
	if r.maxMessages > 0 {
		start = int64(-r.maxMessages)
	}

	rows, err := r.rdb.LRange(ctx, sessionKey(sessionID), start, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("load session history failed")
		return nil, errx.WrapRedis(err)
	}

	msgs, err := decodeMessages(rows)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("session history is corrupt")
		return nil, err
	}
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

// popIfTail removes the list tail when it is byte-equal to ARGV[1].
var popIfTail = redis.NewScript(`
if redis.call("LINDEX", KEYS[1], -1) == ARGV[1] then
	redis.call("RPOP", KEYS[1])
	return 1
end
return 0
`)

func (r *RedisConversationRepository) RemoveLastMessage(ctx context.Context, sessionID string, expected *schema.Message) (bool, error) {
	payload, err := json.Marshal(expected)
	if err != nil {
		return false, fmt.Errorf("encode %s message: %w", expected.Role, err)
	}
	n, err := popIfTail.Run(ctx, r.rdb, []string{sessionKey(sessionID)}, payload).Int()
	if err != nil {
		return false, errx.WrapRedis(err)
	}
	return n == 1, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) GetMessageCount(ctx context.Context, sessionID string) (int, error) {
	n, err := r.rdb.LLen(ctx, sessionKey(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

func decodeMessages(rows []string) ([]*schema.Message, error) {
	msgs := make([]*schema.Message, 0, len(rows))
	for i, row := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(row), &m); err != nil {
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}
