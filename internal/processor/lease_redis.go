package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"paychain/pkg/domain"
)

// releaseScript deletes the lease key only while it still carries the
// caller's token, so an expired holder cannot evict a successor's claim.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLeaser coordinates rule claims across processes via SET NX with a
// TTL. Required when more than one instance can run due cycles against the
// same database.
type RedisLeaser struct {
	client *redis.Client
	prefix string
}

func NewRedisLeaser(client *redis.Client) *RedisLeaser {
	return &RedisLeaser{client: client, prefix: "paychain:rule-lease:"}
}

func (l *RedisLeaser) key(id domain.RuleID) string {
	return l.prefix + id.String()
}

func (l *RedisLeaser) Acquire(ctx context.Context, id domain.RuleID, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(id), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire rule lease: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisLeaser) Release(ctx context.Context, id domain.RuleID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(id)}, token).Err(); err != nil {
		return fmt.Errorf("release rule lease: %w", err)
	}
	return nil
}

var _ Leaser = (*RedisLeaser)(nil)
