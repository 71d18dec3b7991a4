package preview

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store IPreviewStore) {
	t.Helper()
	ctx := context.Background()

	id, err := store.Put(ctx, Image{ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, store.Len())

	img, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img.Data)

	require.NoError(t, store.Release(ctx, id))
	assert.Equal(t, 0, store.Len())

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Release(ctx, id))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseStore(t, NewRedis(client, time.Minute))
}

func TestRedisStore_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedis(client, time.Minute)
	id, err := store.Put(context.Background(), Image{ContentType: "image/jpeg", Data: []byte("jpg")})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv("PREVIEW_STORE", "")
	t.Setenv("PREVIEW_TTL", "")
	store, err := New()
	require.NoError(t, err)
	_, ok := store.(*memoryStore)
	assert.True(t, ok)

	t.Setenv("PREVIEW_TTL", "forever")
	_, err = New()
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	t.Setenv("PREVIEW_TTL", "10m")
	t.Setenv("PREVIEW_STORE", "redis")
	t.Setenv("REDIS_ADDRESS", mr.Addr())
	store, err = New()
	require.NoError(t, err)
	rs, ok := store.(*redisStore)
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, rs.ttl)
}
