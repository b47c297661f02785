package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "prizepicks-feed:"

// RefreshTracker keeps refresh markers in Redis so every replica agrees on staleness.
// Markers are written with a TTL and vanish once it elapses.
type RefreshTracker struct {
	client *redis.Client
	prefix string
}

// NewClient parses redisURL and verifies the connection with a ping.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRefreshTracker(client *redis.Client, prefix string) *RefreshTracker {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RefreshTracker{client: client, prefix: prefix}
}

func (t *RefreshTracker) MarkRefreshed(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	if err := t.client.Set(ctx, t.key(key), encodeMarker(at), ttl).Err(); err != nil {
		return fmt.Errorf("set refresh marker key=%s: %w", key, err)
	}
	return nil
}

func (t *RefreshTracker) LastRefreshed(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := t.client.Get(ctx, t.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get refresh marker key=%s: %w", key, err)
	}

	at, err := decodeMarker(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode refresh marker key=%s: %w", key, err)
	}
	return at, true, nil
}

func (t *RefreshTracker) HealthCheck(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *RefreshTracker) key(key string) string {
	return t.prefix + key
}

func encodeMarker(at time.Time) string {
	return strconv.FormatInt(at.UTC().UnixMilli(), 10)
}

func decodeMarker(raw string) (time.Time, error) {
	millis, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis).UTC(), nil
}
