package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StatusCache keeps the latest order status in Redis so status reads skip
// Postgres. Values expire; the ledger stays the source of truth.
type StatusCache struct{ Client *redis.Client }

func (c *StatusCache) SetOrderStatus(ctx context.Context, orderID, status string) error {
	key := fmt.Sprintf(KeyOrderStatus, orderID)
	payload := fmt.Sprintf(`{"status":%q}`, status)
	return c.Client.Set(ctx, key, payload, TTLStatusCache).Err()
}

func (c *StatusCache) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	key := fmt.Sprintf(KeyOrderStatus, orderID)
	return c.Client.Get(ctx, key).Result()
}
