package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

const (
	redisKeyPrefix = "porkbun-dns01:handle:"

	// DefaultHandleTTL bounds how long an uncollected handle stays in Redis.
	DefaultHandleTTL = 24 * time.Hour
)

// RedisStore is a HandleStore shared between processes, e.g. when Perform and
// Cleanup run on different hosts. Entries expire after TTL.
type RedisStore struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis server at url
// (redis://[user:pass@]host:port/db).
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := rueidis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	// Client-side caching is of no use for write-once-read-once entries.
	opt.DisableCache = true

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultHandleTTL
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Put(ctx context.Context, token string, h Handle) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encoding handle: %w", err)
	}
	cmd := s.client.B().Set().Key(redisKeyPrefix + token).Value(string(data)).ExSeconds(int64(s.ttl/time.Second)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("storing handle: %w", err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, token string) (Handle, bool, error) {
	cmd := s.client.B().Getdel().Key(redisKeyPrefix + token).Build()
	data, err := s.client.Do(ctx, cmd).ToString()
	if rueidis.IsRedisNil(err) {
		return Handle{}, false, nil
	}
	if err != nil {
		return Handle{}, false, fmt.Errorf("loading handle: %w", err)
	}

	var h Handle
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return Handle{}, false, fmt.Errorf("decoding handle: %w", err)
	}
	return h, true, nil
}

// Close releases the connection.
func (s *RedisStore) Close() {
	s.client.Close()
}
