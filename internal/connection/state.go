package connection

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/config"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/redis"
)

// redisStateStore keeps connection state in Redis so the dashboard can
// poll QR payloads and status without touching the manager.
type redisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) StateStore {
	return &redisStateStore{client: client}
}

func (s *redisStateStore) SetQR(ctx context.Context, tenantID, qr string) error {
	return s.client.Set(ctx, redis.QRKey(tenantID), qr, config.QRPayloadTTL).Err()
}

func (s *redisStateStore) GetQR(ctx context.Context, tenantID string) (string, error) {
	qr, err := s.client.Get(ctx, redis.QRKey(tenantID)).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return qr, nil
}

func (s *redisStateStore) ClearQR(ctx context.Context, tenantID string) error {
	return s.client.Del(ctx, redis.QRKey(tenantID)).Err()
}

func (s *redisStateStore) SetStatus(ctx context.Context, tenantID string, status model.ConnectionStatus) error {
	return s.client.Set(ctx, redis.StatusKey(tenantID), string(status), 0).Err()
}

func (s *redisStateStore) MarkSeen(ctx context.Context, tenantID, messageID string) (bool, error) {
	return s.client.SetNX(ctx, redis.ReplayKey(tenantID, messageID), "1", config.ReplayDedupeTTL).Result()
}
