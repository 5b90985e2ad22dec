// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pageKeyPrefix = "page:"

	// pageIndexKey is a set of every cached page key, so a content write
	// can drop them all without scanning the keyspace.
	pageIndexKey = "page-index"

	// DefaultPageTTL is how long a rendered page stays cached.
	DefaultPageTTL = 5 * time.Minute
)

// PageCache keeps anonymous renderings of the blog pages in Valkey. Any
// content write clears all of them since a changed post can move across
// list pages.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache creates a page cache. A zero ttl selects DefaultPageTTL.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// Get returns the cached HTML for key. Errors count as a miss.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := pc.client.Get(ctx, pageKeyPrefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false
	case err != nil:
		slog.Warn("page cache read failed", "key", key, "error", err)
		return nil, false
	}
	return body, true
}

// Set stores rendered HTML under key and records it in the index.
func (pc *PageCache) Set(ctx context.Context, key string, html []byte) {
	pipe := pc.client.TxPipeline()
	pipe.Set(ctx, pageKeyPrefix+key, html, pc.ttl)
	pipe.SAdd(ctx, pageIndexKey, pageKeyPrefix+key)
	pipe.Expire(ctx, pageIndexKey, pc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("page cache write failed", "key", key, "error", err)
	}
}

// InvalidateAll drops every indexed page.
func (pc *PageCache) InvalidateAll(ctx context.Context) {
	keys, err := pc.client.SMembers(ctx, pageIndexKey).Result()
	if err != nil {
		slog.Warn("page cache index read failed", "error", err)
		return
	}
	if err := pc.client.Del(ctx, append(keys, pageIndexKey)...).Err(); err != nil {
		slog.Warn("page cache clear failed", "error", err)
		return
	}
	slog.Debug("page cache cleared", "pages", len(keys))
}

// ListKey returns the cache key for one page of the post list.
func ListKey(page int) string {
	return "blog:list:" + strconv.Itoa(page)
}

// PostKey returns the cache key for a post detail page.
func PostKey(id int64) string {
	return "blog:post:" + strconv.FormatInt(id, 10)
}
