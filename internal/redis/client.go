package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// QRKey holds the currently pending QR payload for a tenant,
// polled by the merchant dashboard.
func QRKey(tenantID string) string {
	return fmt.Sprintf("qr:%s", tenantID)
}

// StatusKey holds the tenant's connection status for dashboard polling.
func StatusKey(tenantID string) string {
	return fmt.Sprintf("connstatus:%s", tenantID)
}

// ReplayKey marks a transport message ID as already processed,
// so history re-replays are dropped.
func ReplayKey(tenantID, messageID string) string {
	return fmt.Sprintf("seen:%s:%s", tenantID, messageID)
}
