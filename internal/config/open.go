package config

import (
	"context"

	"github.com/matzehuels/flowmend/pkg/cache"
	"github.com/matzehuels/flowmend/pkg/store"
)

// OpenStore creates the workflow store selected by s.Backend.
func OpenStore(ctx context.Context, s Store) (store.Store, error) {
	switch s.Backend {
	case BackendFile:
		return store.NewFileStore(s.Dir)
	case BackendRedis:
		return store.NewRedisStore(ctx, store.RedisConfig{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
	case BackendMongo:
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:        s.MongoURI,
			Database:   s.MongoDatabase,
			Collection: s.MongoCollection,
		})
	default:
		return store.NewMemoryStore(), nil
	}
}

// OpenCache creates the repair cache described by c: a null cache when
// disabled, Redis when an address is set, and a file cache otherwise.
// Redis keys are scoped under "flowmend:".
func OpenCache(ctx context.Context, c Cache) (cache.Cache, error) {
	switch {
	case !c.On():
		return cache.NewNullCache(), nil
	case c.RedisAddr != "":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.RedisAddr})
		if err != nil {
			return nil, err
		}
		return cache.NewScoped(rc, "flowmend:"), nil
	default:
		return cache.NewFileCache(c.Dir)
	}
}
