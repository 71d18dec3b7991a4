package preview

import (
	"HawkVision/pkg/log"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/context"
)

const keyPrefix = "hawk:preview:"

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFromEnv(ttl time.Duration) (IPreviewStore, error) {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	log.Info(log.Fields{"address": redisAddr, "db": db}, "Connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error(log.Fields{"address": redisAddr, "error": err.Error()}, "Failed to connect to Redis")
		return nil, err
	}
	log.Info(log.Fields{"address": redisAddr}, "Successfully connected to Redis")

	return NewRedis(client, ttl), nil
}

// NewRedis keeps previews in Redis hashes that expire after ttl even if
// nobody releases them.
func NewRedis(client *redis.Client, ttl time.Duration) IPreviewStore {
	return &redisStore{client: client, ttl: ttl}
}

func (r *redisStore) Put(ctx context.Context, img Image) (string, error) {
	id := uuid.NewString()
	key := keyPrefix + id

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "type", img.ContentType, "data", img.Data)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		log.Error(log.Fields{"preview_id": id, "error": err.Error()}, "Error storing preview")
		return "", err
	}

	log.Debug(log.Fields{"preview_id": id, "bytes": len(img.Data)}, "Stored preview")
	return id, nil
}

func (r *redisStore) Get(ctx context.Context, id string) (Image, error) {
	vals, err := r.client.HGetAll(ctx, keyPrefix+id).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(vals) == 0) {
		return Image{}, ErrNotFound
	} else if err != nil {
		return Image{}, err
	}

	return Image{
		ContentType: vals["type"],
		Data:        []byte(vals["data"]),
	}, nil
}

func (r *redisStore) Release(ctx context.Context, id string) error {
	result, err := r.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		log.Error(log.Fields{"preview_id": id, "error": err.Error()}, "Error releasing preview")
		return err
	}

	if result == 0 {
		log.Debug(log.Fields{"preview_id": id}, "Preview already gone")
	}
	return nil
}

func (r *redisStore) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var n int
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n
}
