package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/compress"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
)

const entityTTL = time.Hour

func entityKey(id string) string {
	return "entity:" + id
}

var _ EntityCache = (*Redis)(nil)

type Redis struct {
	client  *redis.Client
	encoder compress.Compress
}

// NewRedis connects to the redis instance named by REDIS_ADDR, defaulting
// to localhost. Cached payloads run through the given codec.
func NewRedis(encoder compress.Compress) (*Redis, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password set
		DB:       0,  // Use default DB
		Protocol: 2,  // Connection protocol
	})

	return &Redis{client: client, encoder: encoder}, nil
}

func (r *Redis) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	res := r.client.Get(ctx, entityKey(id))
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return nil, nil
		}
		return nil, res.Err()
	}

	buf, err := res.Bytes()
	if err != nil {
		return nil, err
	}

	raw, err := r.encoder.Decode(buf)
	if err != nil {
		return nil, err
	}

	entity := &model.Entity{}
	if err := json.Unmarshal(raw, entity); err != nil {
		return nil, err
	}

	return entity, nil
}

func (r *Redis) SetEntity(ctx context.Context, entity *model.Entity) error {
	raw, err := json.Marshal(entity)
	if err != nil {
		return err
	}

	buf, err := r.encoder.Encode(raw)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, entityKey(entity.ID), buf, entityTTL).Err()
}

func (r *Redis) DeleteEntity(ctx context.Context, id string) error {
	return r.client.Del(ctx, entityKey(id)).Err()
}
