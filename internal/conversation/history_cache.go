package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const historyTTL = 24 * time.Hour

// HistoryCache keeps the recent turn list (including tool traffic, which the
// durable message log does not carry) in redis. A miss is not an error: the
// caller rebuilds from the database.
type HistoryCache struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewHistoryCache wraps a redis client.
func NewHistoryCache(rdb *redis.Client, tracer trace.Tracer) *HistoryCache {
	if rdb == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("turnero.internal.conversation.history")
	}
	return &HistoryCache{redis: rdb, tracer: tracer}
}

// Save stores the turn list for a sender with a sliding 24h TTL.
func (c *HistoryCache) Save(ctx context.Context, senderID string, turns []Turn) error {
	ctx, span := c.tracer.Start(ctx, "conversation.save_history")
	defer span.End()

	data, err := json.Marshal(turns)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: marshal history: %w", err)
	}
	if err := c.redis.Set(ctx, historyKey(senderID), data, historyTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: persist history: %w", err)
	}
	return nil
}

// Load returns the cached turns, or nil on a miss.
func (c *HistoryCache) Load(ctx context.Context, senderID string) ([]Turn, error) {
	ctx, span := c.tracer.Start(ctx, "conversation.load_history")
	defer span.End()

	data, err := c.redis.Get(ctx, historyKey(senderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load history: %w", err)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: decode history: %w", err)
	}
	return turns, nil
}

func historyKey(senderID string) string {
	return fmt.Sprintf("conversation:%s", senderID)
}
