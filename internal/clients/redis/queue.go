package redis

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/focushive/buddy-service/internal/logger"
)

const defaultQueueKey = "buddy:matching:queue"

// MatchQueue holds the set of users currently waiting for a buddy match.
// Membership is a set: joining twice is a no-op, leaving is idempotent.
type MatchQueue interface {
	Join(ctx context.Context, userID uuid.UUID) error
	Leave(ctx context.Context, userID uuid.UUID) error
	Contains(ctx context.Context, userID uuid.UUID) (bool, error)
	Members(ctx context.Context) ([]uuid.UUID, error)
	Size(ctx context.Context) (int64, error)
	Close() error
}

type matchQueue struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

func NewMatchQueue(log *logger.Logger) (MatchQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(os.Getenv("REDIS_QUEUE_KEY"))
	if key == "" {
		key = defaultQueueKey
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &matchQueue{
		log: log.With("service", "RedisMatchQueue"),
		rdb: rdb,
		key: key,
	}, nil
}

func (q *matchQueue) Join(ctx context.Context, userID uuid.UUID) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("match queue not initialized")
	}
	return q.rdb.SAdd(ctx, q.key, userID.String()).Err()
}

func (q *matchQueue) Leave(ctx context.Context, userID uuid.UUID) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("match queue not initialized")
	}
	return q.rdb.SRem(ctx, q.key, userID.String()).Err()
}

func (q *matchQueue) Contains(ctx context.Context, userID uuid.UUID) (bool, error) {
	if q == nil || q.rdb == nil {
		return false, fmt.Errorf("match queue not initialized")
	}
	return q.rdb.SIsMember(ctx, q.key, userID.String()).Result()
}

func (q *matchQueue) Members(ctx context.Context) ([]uuid.UUID, error) {
	if q == nil || q.rdb == nil {
		return nil, fmt.Errorf("match queue not initialized")
	}
	raw, err := q.rdb.SMembers(ctx, q.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			q.log.Warn("dropping malformed queue member", "value", s, "error", err)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (q *matchQueue) Size(ctx context.Context) (int64, error) {
	if q == nil || q.rdb == nil {
		return 0, fmt.Errorf("match queue not initialized")
	}
	return q.rdb.SCard(ctx, q.key).Result()
}

func (q *matchQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}

// MemoryMatchQueue is a process-local MatchQueue for tests and for running
// without a Redis instance.
type MemoryMatchQueue struct {
	mu      sync.Mutex
	members map[uuid.UUID]struct{}
}

func NewMemoryMatchQueue() *MemoryMatchQueue {
	return &MemoryMatchQueue{members: map[uuid.UUID]struct{}{}}
}

func (q *MemoryMatchQueue) Join(_ context.Context, userID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.members[userID] = struct{}{}
	return nil
}

func (q *MemoryMatchQueue) Leave(_ context.Context, userID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.members, userID)
	return nil
}

func (q *MemoryMatchQueue) Contains(_ context.Context, userID uuid.UUID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.members[userID]
	return ok, nil
}

func (q *MemoryMatchQueue) Members(_ context.Context) ([]uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]uuid.UUID, 0, len(q.members))
	for id := range q.members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (q *MemoryMatchQueue) Size(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.members)), nil
}

func (q *MemoryMatchQueue) Close() error { return nil }
