package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	id "vaultgate/pkg/domain"
	"vaultgate/pkg/platform/sentinel"
)

const (
	// Redis key prefix for pending request entries.
	entryKeyPrefix = "vg:pending:"
	// ZSET indexing request ids by dispatch time (unix nanos as score).
	dispatchIndexKey = "vg:pending:by_dispatch"
)

// RedisRegistry is a Redis-backed registry for distributed deployments where
// multiple instances share the pending set. Take relies on GETDEL so an entry
// is consumed at most once even when callbacks race across instances.
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry constructs a Redis-backed pending registry.
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func entryKey(requestID id.RequestID) string {
	return entryKeyPrefix + requestID.String()
}

func (r *RedisRegistry) Insert(ctx context.Context, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal pending request: %w", err)
	}

	set, err := r.client.SetNX(ctx, entryKey(req.RequestID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("insert pending request: %w", err)
	}
	if !set {
		return sentinel.ErrConflict
	}

	score := float64(req.DispatchedAt.UnixNano())
	if err := r.client.ZAdd(ctx, dispatchIndexKey, redis.Z{Score: score, Member: req.RequestID.String()}).Err(); err != nil {
		return fmt.Errorf("index pending request: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Take(ctx context.Context, requestID id.RequestID) (Request, error) {
	raw, err := r.client.GetDel(ctx, entryKey(requestID)).Result()
	if errors.Is(err, redis.Nil) {
		return Request{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Request{}, fmt.Errorf("take pending request: %w", err)
	}

	// Index cleanup is best-effort; a stale index member is skipped by the
	// sweeper when its entry key is gone.
	_ = r.client.ZRem(ctx, dispatchIndexKey, requestID.String()).Err()

	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return Request{}, fmt.Errorf("unmarshal pending request: %w", err)
	}
	return req, nil
}

func (r *RedisRegistry) TakeOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Request, error) {
	rangeBy := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.UnixNano()-1, 10),
	}
	if limit > 0 {
		rangeBy.Count = int64(limit)
	}

	ids, err := r.client.ZRangeByScore(ctx, dispatchIndexKey, rangeBy).Result()
	if err != nil {
		return nil, fmt.Errorf("list expired pending requests: %w", err)
	}

	var expired []Request
	for _, member := range ids {
		req, err := r.Take(ctx, id.RequestID(member))
		if errors.Is(err, sentinel.ErrNotFound) {
			// Lost the race with a callback; drop the stale index member.
			_ = r.client.ZRem(ctx, dispatchIndexKey, member).Err()
			continue
		}
		if err != nil {
			return expired, err
		}
		expired = append(expired, req)
	}
	return expired, nil
}

func (r *RedisRegistry) Count(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, dispatchIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return int(n), nil
}
