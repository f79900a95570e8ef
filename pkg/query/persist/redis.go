package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/zfogg/threadline/pkg/logger"
	"github.com/zfogg/threadline/pkg/query"
)

const redisKeyPrefix = "threadline:query:"

// Redis keeps snapshots in a Redis database so several clients can share them
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects using a redis:// URL and verifies the connection
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.MaxRetries = 3
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Debug("Redis query cache connected", "address", opts.Addr)
	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Load returns the snapshot for key, or nil if there is none
func (r *Redis) Load(ctx context.Context, key string) (*query.Snapshot, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap query.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", key, err)
	}
	return &snap, nil
}

// Save stores the snapshot with the configured expiry
func (r *Redis) Save(ctx context.Context, snap *query.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return r.client.Set(ctx, redisKeyPrefix+snap.Key, data, r.ttl).Err()
}

// DeletePrefix removes key and every key below it
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+prefix).Err(); err != nil {
		return err
	}
	return r.deleteMatching(ctx, escapeGlob(redisKeyPrefix+prefix+"/")+"*")
}

// Clear removes every snapshot
func (r *Redis) Clear(ctx context.Context) error {
	return r.deleteMatching(ctx, escapeGlob(redisKeyPrefix)+"*")
}

func (r *Redis) deleteMatching(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
