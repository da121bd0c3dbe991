// Package notify is the fire-and-forget fanout channel for chat traffic.
// Delivery is not guaranteed and publish failures never roll back whatever
// was persisted before the publish.
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// ChatTopic is the per-session pub/sub topic subscribers listen on.
func ChatTopic(chatID string) string { return "chat/" + chatID }

type RedisPublisher struct{ Client *redis.Client }

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Client.Publish(ctx, topic, b).Err()
}
