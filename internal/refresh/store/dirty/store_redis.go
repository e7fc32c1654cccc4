package dirty

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "clientpulse/pkg/domain"
)

// DefaultKey is the Redis set shared by every process.
const DefaultKey = "clientpulse:refresh:dirty"

// RedisStore keeps the dirty set in Redis so any process's worker can
// drain what another process marked.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key}
}

// MarkDirty adds keys as "<client_id>:<year>" members.
func (s *RedisStore) MarkDirty(ctx context.Context, keys ...id.ClientYear) error {
	members := make([]any, 0, len(keys))
	for _, k := range keys {
		if !k.ClientID.IsNil() {
			members = append(members, k.String())
		}
	}
	if len(members) == 0 {
		return nil
	}
	if err := s.client.SAdd(ctx, s.key, members...).Err(); err != nil {
		return fmt.Errorf("mark clients dirty: %w", err)
	}
	return nil
}

// Drain pops up to limit members. Members that fail to parse are dropped.
func (s *RedisStore) Drain(ctx context.Context, limit int) ([]id.ClientYear, error) {
	if limit <= 0 {
		n, err := s.client.SCard(ctx, s.key).Result()
		if err != nil {
			return nil, fmt.Errorf("count dirty clients: %w", err)
		}
		limit = int(n)
	}
	if limit == 0 {
		return nil, nil
	}
	members, err := s.client.SPopN(ctx, s.key, int64(limit)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("drain dirty clients: %w", err)
	}
	out := make([]id.ClientYear, 0, len(members))
	for _, m := range members {
		k, err := id.ParseClientYear(m)
		if err != nil {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count dirty clients: %w", err)
	}
	return int(n), nil
}
