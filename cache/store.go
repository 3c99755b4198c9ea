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
	"context"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Store is a byte-oriented key/value cache. Any backend (Redis, Memcached,
// in-process) can implement it.
type Store interface {
	// Get returns nil, nil when the key is missing or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value; a zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
}

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// Memory is an in-process Store safe for concurrent use.
type Memory struct {
	items *xsync.MapOf[string, entry]
	now   func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{items: xsync.NewMapOf[string, entry](), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := m.items.Load(key)
	if !ok {
		return nil, nil
	}
	if e.expired(m.now()) {
		m.items.Delete(key)
		return nil, nil
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.items.Store(key, e)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.items.Range(func(key string, _ entry) bool {
		if strings.HasPrefix(key, prefix) {
			m.items.Delete(key)
		}
		return true
	})
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.items.Clear()
	return nil
}

// Len reports the number of stored keys, expired ones included.
func (m *Memory) Len() int {
	return m.items.Size()
}
