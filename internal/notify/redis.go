package notify

import (
	"claimed-world/utils"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisChannelPrefix is followed by the item code, e.g. "item_events:FR"
const RedisChannelPrefix = "item_events:"

// RedisPublisher pushes events onto Redis pub/sub so every instance sees every settlement
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisClient connects and pings a Redis server
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// NewRedisPublisher creates a publisher on an existing client
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, RedisChannelPrefix+ev.ItemCode, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event for item %s: %w", ev.ItemCode, err)
	}
	return nil
}

// RelayRedis forwards events published by any instance into the local hub until ctx is done.
// When it runs, the local service should publish only to Redis, otherwise subscribers see events twice.
func RelayRedis(ctx context.Context, client *redis.Client, hub *Hub) error {
	pubsub := client.PSubscribe(ctx, RedisChannelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s*: %w", RedisChannelPrefix, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := decodeRedisMessage(msg)
			if err != nil {
				utils.Warn("Skipping malformed change event", map[string]any{
					"channel": msg.Channel,
					"error":   err.Error(),
				})
				continue
			}
			_ = hub.Publish(ctx, ev)
		}
	}
}

func decodeRedisMessage(msg *redis.Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.ItemCode == "" {
		ev.ItemCode = strings.TrimPrefix(msg.Channel, RedisChannelPrefix)
	}
	return ev, nil
}
