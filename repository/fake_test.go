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

package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/sieve/query"
	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/types"
)

// memExecutor evaluates intents against in-memory tables. Ordering is not
// evaluated and EXISTS never matches.
type memExecutor struct {
	mu      sync.Mutex
	tables  map[string][]types.Row
	seq     int64
	selects int
}

var _ Executor = (*memExecutor)(nil)

func newMemExecutor() *memExecutor {
	return &memExecutor{tables: map[string][]types.Row{}}
}

func (m *memExecutor) rows(table string) []types.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Row, 0, len(m.tables[table]))
	for _, r := range m.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

func copyRow(r types.Row) types.Row {
	c := make(types.Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

func same(a, b any) bool { return fmt.Sprint(a) == fmt.Sprint(b) }

func matchOne(row types.Row, p query.Predicate) bool {
	v := row[p.Column]
	switch p.Operator {
	case query.OpEq:
		if p.Comparator == "<>" {
			return !same(v, p.Values[0])
		}
		return same(v, p.Values[0])
	case query.OpIn:
		for _, x := range p.Values {
			if same(v, x) {
				return true
			}
		}
		return false
	case query.OpNotIn:
		for _, x := range p.Values {
			if same(v, x) {
				return false
			}
		}
		return true
	case query.OpNull:
		return v == nil
	case query.OpNotNull:
		return v != nil
	case query.OpLike:
		term := strings.Trim(fmt.Sprint(p.Values[0]), "%")
		return strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(term))
	case query.OpExists:
		return false
	}
	return true
}

func matches(in *query.Intent, row types.Row) bool {
	for _, p := range in.Predicates() {
		if !matchOne(row, p) {
			return false
		}
	}
	if anyOf := in.AnyOf(); len(anyOf) > 0 {
		ok := false
		for _, p := range anyOf {
			if matchOne(row, p) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if in.Descriptor().SoftDeletes {
		switch in.Mode() {
		case query.ActiveOnly:
			return row[schema.ColumnDeletedAt] == nil
		case query.TrashedOnly:
			return row[schema.ColumnDeletedAt] != nil
		}
	}
	return true
}

func (m *memExecutor) filter(in *query.Intent) []types.Row {
	var out []types.Row
	for _, r := range m.tables[in.Table()] {
		if matches(in, r) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memExecutor) Select(_ context.Context, in *query.Intent) ([]types.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selects++
	found := m.filter(in)
	offset, limit := in.Window()
	if offset > len(found) {
		offset = len(found)
	}
	found = found[offset:]
	if limit > 0 && limit < len(found) {
		found = found[:limit]
	}
	out := make([]types.Row, 0, len(found))
	for _, r := range found {
		out = append(out, copyRow(r))
	}
	return out, nil
}

func (m *memExecutor) Count(_ context.Context, in *query.Intent) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filter(in)), nil
}

func (m *memExecutor) Insert(_ context.Context, desc *schema.Descriptor, row types.Row) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r := copyRow(row)
	r[schema.ColumnID] = m.seq
	m.tables[desc.Table] = append(m.tables[desc.Table], r)
	return m.seq, nil
}

func (m *memExecutor) Update(_ context.Context, in *query.Intent, values types.Row) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.filter(in) {
		for k, v := range values {
			r[k] = v
		}
		n++
	}
	return n, nil
}

func (m *memExecutor) Delete(_ context.Context, in *query.Intent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		kept []types.Row
		n    int64
	)
	for _, r := range m.tables[in.Table()] {
		if matches(in, r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[in.Table()] = kept
	return n, nil
}

func (m *memExecutor) Upsert(ctx context.Context, desc *schema.Descriptor, row types.Row, keys ...string) (int64, error) {
	if len(keys) == 0 {
		keys = []string{schema.ColumnID}
	}
	m.mu.Lock()
	for _, r := range m.tables[desc.Table] {
		hit := true
		for _, k := range keys {
			if !same(r[k], row[k]) {
				hit = false
				break
			}
		}
		if hit {
			for k, v := range row {
				r[k] = v
			}
			m.mu.Unlock()
			id, _ := toInt64(r[schema.ColumnID])
			return id, nil
		}
	}
	m.mu.Unlock()
	return m.Insert(ctx, desc, row)
}

func (m *memExecutor) DeleteByID(_ context.Context, desc *schema.Descriptor, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []types.Row
	for _, r := range m.tables[desc.Table] {
		if !same(r[schema.ColumnID], id) {
			kept = append(kept, r)
		}
	}
	m.tables[desc.Table] = kept
	return nil
}

func (m *memExecutor) Attach(_ context.Context, pivot string, rows []types.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.tables[pivot] = append(m.tables[pivot], copyRow(r))
	}
	return nil
}

func (m *memExecutor) Detach(_ context.Context, pivot, column string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []types.Row
	for _, r := range m.tables[pivot] {
		if !same(r[column], id) {
			kept = append(kept, r)
		}
	}
	m.tables[pivot] = kept
	return nil
}

func (m *memExecutor) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error {
	return fn(ctx, m)
}

func (m *memExecutor) Describe(in *query.Intent) string {
	offset, limit := in.Window()
	return fmt.Sprintf("%s|%v|%v|%s|%d|%d", in.Table(), in.Predicates(), in.AnyOf(), in.Mode(), offset, limit)
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(
		&schema.Descriptor{
			Name:         "User",
			Table:        "users",
			TenantScoped: true,
			SoftDeletes:  true,
			Cached:       true,
			Fields: map[string]schema.FieldType{
				"name":       schema.String,
				"email":      schema.String,
				"note":       schema.String,
				"created_by": schema.Integer,
				"updated_by": schema.Integer,
			},
			Searchable: []string{"name", "email"},
			Relations: []schema.Relation{
				{Name: "posts", Kind: schema.HasMany, Target: "Post"},
				{Name: "roles", Kind: schema.BelongsToMany, Target: "Role"},
			},
		},
		&schema.Descriptor{
			Name:         "Post",
			Table:        "posts",
			TenantScoped: true,
			SoftDeletes:  true,
			Cached:       true,
			Fields:       map[string]schema.FieldType{"title": schema.String, "user_id": schema.Integer},
		},
		&schema.Descriptor{Name: "Role", Table: "roles", Fields: map[string]schema.FieldType{"name": schema.String}},
	)
	require.NoError(t, err)
	return reg
}
