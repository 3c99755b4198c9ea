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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Total int              `msgpack:"total"`
	Items []map[string]any `msgpack:"items"`
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))

	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	clock = clock.Add(time.Minute)
	v, err = m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = m.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryDeletePrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, k := range []string{"User:1", "User:2", "UserRole:1", "Post:1"} {
		require.NoError(t, m.Set(ctx, k, []byte(k), 0))
	}
	require.NoError(t, m.DeletePrefix(ctx, "User:"))

	for k, present := range map[string]bool{"User:1": false, "User:2": false, "UserRole:1": true, "Post:1": true} {
		v, err := m.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, present, v != nil, k)
	}

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, m.Len())
}

func TestRememberLoadsOnceUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(NewMemory(), 0)
	var loads int32
	load := func(context.Context) (page, error) {
		atomic.AddInt32(&loads, 1)
		return page{Total: 1, Items: []map[string]any{{"name": "Ana"}}}, nil
	}

	key := Key("User", "select", 1, 15)
	assert.Equal(t, "User:select:1:15", key)

	first, err := Remember(ctx, qc, key, 0, load)
	require.NoError(t, err)
	second, err := Remember(ctx, qc, key, 0, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, "Ana", second.Items[0]["name"])

	require.NoError(t, qc.Invalidate(ctx, "User"))
	_, err = Remember(ctx, qc, key, 0, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestRememberHitKeepsDriverTypes(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(NewMemory(), time.Minute)
	load := func(context.Context) (page, error) {
		return page{Total: 1, Items: []map[string]any{{"id": int64(7), "price": 9.5, "active": true}}}, nil
	}

	miss, err := Remember(ctx, qc, "Product:p", 0, load)
	require.NoError(t, err)
	hit, err := Remember(ctx, qc, "Product:p", 0, load)
	require.NoError(t, err)
	assert.Equal(t, miss.Items, hit.Items)
	assert.IsType(t, int64(0), hit.Items[0]["id"])
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(NewMemory(), time.Minute)
	boom := errors.New("boom")

	_, err := Remember(ctx, qc, "Post:x", 0, func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	got, err := Remember(ctx, qc, "Post:x", 0, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestRememberConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(NewMemory(), time.Minute)
	var loads int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Remember(ctx, qc, "Team:all", 0, func(context.Context) (int, error) {
				atomic.AddInt32(&loads, 1)
				return 3, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 3, v)
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, atomic.LoadInt32(&loads), int32(1))
	assert.LessOrEqual(t, atomic.LoadInt32(&loads), int32(8))
}
