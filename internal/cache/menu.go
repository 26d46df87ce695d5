// Package cache keeps rendered cafeteria menus in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cantina-pos/api/internal/service"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "menu:"

// MenuCache implements service.MenuCache on Redis. Entries expire after TTL
// so a missed invalidation heals on its own.
type MenuCache struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ service.MenuCache = (*MenuCache)(nil)

func NewMenuCache(client *redis.Client, ttl time.Duration) *MenuCache {
	return &MenuCache{Client: client, TTL: ttl}
}

// MenuKey is menu:{cafeteria_id}:{YYYY-MM-DD}.
func MenuKey(cafeteriaID int32, date time.Time) string {
	return fmt.Sprintf("%s%d:%s", keyPrefix, cafeteriaID, date.Format(time.DateOnly))
}

func (c *MenuCache) GetMenu(ctx context.Context, cafeteriaID int32, date time.Time) ([]service.MenuEntry, bool, error) {
	raw, err := c.Client.Get(ctx, MenuKey(cafeteriaID, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entries []service.MenuEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("decode cached menu: %w", err)
	}
	return entries, true, nil
}

func (c *MenuCache) SetMenu(ctx context.Context, cafeteriaID int32, date time.Time, entries []service.MenuEntry) error {
	if entries == nil {
		entries = []service.MenuEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, MenuKey(cafeteriaID, date), raw, c.TTL).Err()
}

func (c *MenuCache) InvalidateMenu(ctx context.Context, cafeteriaID int32, date time.Time) error {
	return c.Client.Del(ctx, MenuKey(cafeteriaID, date)).Err()
}

// InvalidateAll drops every cached menu. Used when a dish changes, since any
// menu may list it.
func (c *MenuCache) InvalidateAll(ctx context.Context) error {
	iter := c.Client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}
