// Package cache хранит в Redis отметки об уже принятых update_id вебхука.
// Bot API повторяет доставку события, пока не получит 2xx, и отметка не дает
// обработать одно и то же сообщение дважды.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/chat-relay/internal/config"
)

const (
	updateKeyPrefix  = "relay:update:"
	defaultUpdateTTL = 24 * time.Hour
)

// Cache клиент Redis.
type Cache struct {
	DB        *redis.Client
	updateTTL time.Duration
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

	ttl := cfg.UpdateTTL
	if ttl <= 0 {
		ttl = defaultUpdateTTL
	}
	return &Cache{DB: db, updateTTL: ttl}, nil
}

// ClaimUpdate атомарно помечает update_id как принятый. Возвращает false,
// если событие уже было принято ранее и ещё не истекло.
func (c *Cache) ClaimUpdate(ctx context.Context, updateID int64) (bool, error) {
	const op = "cache.ClaimUpdate"
	claimed, err := c.DB.SetNX(ctx, updateKey(updateID), time.Now().UTC().Unix(), c.updateTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return claimed, nil
}

// ReleaseUpdate снимает отметку, чтобы повторная доставка события была обработана.
func (c *Cache) ReleaseUpdate(ctx context.Context, updateID int64) error {
	const op = "cache.ReleaseUpdate"
	if err := c.DB.Del(ctx, updateKey(updateID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Ping проверяет соединение с Redis.
func (c *Cache) Ping(ctx context.Context) error {
	return c.DB.Ping(ctx).Err()
}

// Close закрывает соединение.
func (c *Cache) Close() error {
	return c.DB.Close()
}

func updateKey(updateID int64) string {
	return updateKeyPrefix + strconv.FormatInt(updateID, 10)
}
