package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/course-access/internal/config"
	"github.com/magabrotheeeer/course-access/internal/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGetSnapshot(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	expected := models.NewSnapshot("11111111-1111-1111-1111-111111111111", "a@example.com")
	expected.IsPremium = true
	expected.SubscriptionStatus = models.StatusActive
	expected.SubscriptionExpire = &expiry
	expected.EnrolledCourseIDs = models.NewCourseSet("c2", "c1")
	expected.Version = 7

	key := EntitlementKey(expected.UUID)
	require.NoError(t, cache.Set(ctx, key, expected, time.Minute))

	var actual models.Snapshot
	found, err := cache.Get(ctx, key, &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected.Version, actual.Version)
	assert.Equal(t, []string{"c1", "c2"}, actual.EnrolledCourseIDs.IDs())
	require.NotNil(t, actual.SubscriptionExpire)
	assert.True(t, expiry.Equal(*actual.SubscriptionExpire))
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out models.Snapshot
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "value", time.Minute))
	require.NoError(t, cache.Set(ctx, "b", "value", time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "a", "b"))

	var out string
	found, err := cache.Get(ctx, "a", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiration(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "ttl", "value", time.Minute))
	mr.FastForward(2 * time.Minute)

	var out string
	found, err := cache.Get(ctx, "ttl", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err())

	var out models.Snapshot
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestGetWhenServerDown(t *testing.T) {
	cache, mr := setupTestCache(t)
	mr.Close()

	var out string
	_, err := cache.Get(context.Background(), "key", &out)
	assert.Error(t, err)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:1",
		DialTimeout:  100 * time.Millisecond,
	}
	_, err := InitServer(context.Background(), cfg)
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "entitlement:u1", EntitlementKey("u1"))
	assert.Equal(t, "course:slug:go", CourseSlugKey("go"))
}

func TestSetVersioned_StaleWriteAfterFenceIsSkipped(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()
	key := EntitlementKey("11111111-1111-1111-1111-111111111111")

	stored, err := cache.SetVersioned(ctx, key, 1, "v1", time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	require.NoError(t, cache.Fence(ctx, key, 2, time.Minute))
	assert.False(t, mr.Exists(key))

	stored, err = cache.SetVersioned(ctx, key, 1, "v1", time.Minute)
	require.NoError(t, err)
	assert.False(t, stored, "older version must not repopulate the key")
	assert.False(t, mr.Exists(key))

	stored, err = cache.SetVersioned(ctx, key, 2, "v2", time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	var out string
	found, err := cache.Get(ctx, key, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v2", out)
}

func TestFence_NeverLowersFloor(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()
	key := EntitlementKey("22222222-2222-2222-2222-222222222222")

	require.NoError(t, cache.Fence(ctx, key, 5, time.Minute))
	require.NoError(t, cache.Fence(ctx, key, 3, time.Minute))

	stored, err := cache.SetVersioned(ctx, key, 4, "v4", time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)
}
