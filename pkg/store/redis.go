package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	flowerrors "github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

const redisKeyPrefix = "flowmend:workflow:"

// RedisStore stores workflows as JSON strings under flowmend:workflow:{id}.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// RedisConfig configures a [RedisStore].
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, storageErr(err, "connect to redis at %s", cfg.Addr)
	}
	return &RedisStore{client: client, now: time.Now}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := flowerrors.ValidateWorkflowID(id); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "get workflow %s", id)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, storageErr(err, "parse workflow %s", id)
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, id string, g workflow.Graph) (*Record, error) {
	if err := flowerrors.ValidateWorkflowID(id); err != nil {
		return nil, err
	}
	rec := newRecord(id, g, s.now())
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, storageErr(err, "marshal workflow %s", id)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+id, data, 0).Err(); err != nil {
		return nil, storageErr(err, "put workflow %s", id)
	}
	return rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return storageErr(err, "delete workflow %s", id)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, storageErr(err, "scan workflows")
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, redisKeyPrefix))
		}
		if cursor = next; cursor == 0 {
			break
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
