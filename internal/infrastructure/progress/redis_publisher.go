package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "profile-import:progress:"
	channelPrefix = "profile-import:progress-events:"
)

// RedisPublisher keeps the latest batch progress of each session under a
// key with a TTL and announces every snapshot on a per-session channel, so
// any API replica can serve progress.
type RedisPublisher struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPublisher(client *redis.Client, ttl time.Duration) *RedisPublisher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisPublisher{client: client, ttl: ttl}
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, sessionID string, progress domain.BatchProgress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, Key(sessionID), payload, p.ttl)
	pipe.Publish(ctx, Channel(sessionID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish progress: %w", err)
	}
	return nil
}

// Expire shortens the lifetime of a session's snapshot; zero deletes it.
func (p *RedisPublisher) Expire(ctx context.Context, sessionID string, after time.Duration) error {
	var err error
	if after <= 0 {
		err = p.client.Del(ctx, Key(sessionID)).Err()
	} else {
		err = p.client.Expire(ctx, Key(sessionID), after).Err()
	}
	if err != nil {
		return fmt.Errorf("expire progress: %w", err)
	}
	return nil
}

// Latest returns the last published snapshot, or false when none is stored.
func (p *RedisPublisher) Latest(ctx context.Context, sessionID string) (domain.BatchProgress, bool, error) {
	payload, err := p.client.Get(ctx, Key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BatchProgress{}, false, nil
	}
	if err != nil {
		return domain.BatchProgress{}, false, fmt.Errorf("read progress: %w", err)
	}
	var progress domain.BatchProgress
	if err := json.Unmarshal(payload, &progress); err != nil {
		return domain.BatchProgress{}, false, fmt.Errorf("decode progress: %w", err)
	}
	return progress, true, nil
}

func Key(sessionID string) string {
	return keyPrefix + sessionID
}

func Channel(sessionID string) string {
	return channelPrefix + sessionID
}
