// Package cache хранит снимки прав и курсы в Redis в виде JSON.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/course-access/internal/config"
)

// Cache оборачивает клиент Redis.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// Get читает значение по ключу в result. Возвращает false, если ключа нет.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение в JSON с временем жизни expiration.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// setIfNotStale записывает значение, только если его версия не меньше
// зафиксированной в KEYS[2] нижней границы.
var setIfNotStale = redis.NewScript(`
local floor = tonumber(redis.call('GET', KEYS[2]) or '-1')
if tonumber(ARGV[1]) < floor then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// raiseFloor поднимает нижнюю границу версии и удаляет закэшированное значение.
var raiseFloor = redis.NewScript(`
local floor = tonumber(redis.call('GET', KEYS[2]) or '-1')
if tonumber(ARGV[1]) > floor then
	redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
end
redis.call('DEL', KEYS[1])
return 1
`)

// SetVersioned сохраняет значение с версией version. Если для ключа уже
// зафиксирована более новая версия через Fence, запись пропускается и
// возвращается false.
func (c *Cache) SetVersioned(ctx context.Context, key string, version int64, value any, expiration time.Duration) (bool, error) {
	const op = "cache.SetVersioned"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	stored, err := setIfNotStale.Run(ctx, c.Db, []string{key, floorKey(key)},
		version, jsonData, expiration.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return stored == 1, nil
}

// Fence удаляет значение и запрещает на expiration запись версий ниже version.
func (c *Cache) Fence(ctx context.Context, key string, version int64, expiration time.Duration) error {
	const op = "cache.Fence"
	if err := raiseFloor.Run(ctx, c.Db, []string{key, floorKey(key)},
		version, expiration.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключи.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (c *Cache) Ping(ctx context.Context) error {
	return c.Db.Ping(ctx).Err()
}

// Close закрывает соединение.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// EntitlementKey возвращает ключ снимка прав пользователя.
func EntitlementKey(userUID string) string {
	return "entitlement:" + userUID
}

func floorKey(key string) string {
	return key + ":floor"
}

// CourseSlugKey возвращает ключ курса по слагу.
func CourseSlugKey(slug string) string {
	return "course:slug:" + slug
}
