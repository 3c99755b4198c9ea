/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL applies when neither the entity nor the cache sets one.
const DefaultTTL = 10 * time.Minute

// QueryCache stores msgpack-encoded query results keyed by entity, so every
// entry of an entity can be dropped at once. Concurrent misses on the same
// key share one load.
type QueryCache struct {
	store Store
	ttl   time.Duration
	group singleflight.Group
}

// NewQueryCache wraps store. A non-positive ttl falls back to DefaultTTL.
func NewQueryCache(store Store, ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QueryCache{store: store, ttl: ttl}
}

// Key builds "<entity>:<part>:<part>...".
func Key(entity string, parts ...any) string {
	var b strings.Builder
	b.WriteString(entity)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Invalidate drops every cached entry of entity.
func (c *QueryCache) Invalidate(ctx context.Context, entity string) error {
	if err := c.store.DeletePrefix(ctx, entity+":"); err != nil {
		return fmt.Errorf("invalidate %s cache: %w", entity, err)
	}
	return nil
}

func (c *QueryCache) Store() Store { return c.store }

// Remember returns the cached value under key, or runs load and caches its
// result for ttl (the cache default when ttl is zero). Undecodable entries
// are dropped and reloaded. Store errors never fail the read.
func Remember[T any](ctx context.Context, c *QueryCache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var out T
	if raw, err := c.store.Get(ctx, key); err == nil && raw != nil {
		if err := decode(raw, &out); err == nil {
			return out, nil
		}
		_ = c.store.Delete(ctx, key)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if ttl <= 0 {
			ttl = c.ttl
		}
		if raw, err := msgpack.Marshal(loaded); err == nil {
			_ = c.store.Set(ctx, key, raw, ttl)
		}
		return loaded, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}

// decode reads raw into out. Untyped integers come back as int64 and floats
// as float64, the types database drivers scan, so a hit matches a miss.
func decode(raw []byte, out any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(out)
}
