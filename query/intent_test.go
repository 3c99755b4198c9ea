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

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/sieve/types"
)

func TestNewScopedTenantPredicate(t *testing.T) {
	reg := testRegistry(t)
	desc := users(t, reg)

	in := NewScoped(desc, tenant(7))
	id, ok := in.TenantID()
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	assert.False(t, in.AddPredicate(Eq("users", "company_id", 8)))
	assert.True(t, in.AddPredicate(Eq("users", "name", "ana")))

	preds := in.Predicates()
	require.Len(t, preds, 2)
	assert.Equal(t, Eq("users", "company_id", int64(7)), preds[0])
	assert.Len(t, in.Predicates(), 2)

	unscoped := NewScoped(desc, nil)
	assert.Empty(t, unscoped.Predicates())

	team, err := reg.Get("Team")
	require.NoError(t, err)
	assert.Empty(t, NewScoped(team, tenant(7)).Predicates())
}

func TestIntentDropsUnknownColumns(t *testing.T) {
	reg := testRegistry(t)
	in := NewScoped(users(t, reg), nil)

	assert.False(t, in.AddPredicate(Eq("users", "password", "x")))
	assert.False(t, in.AddPredicate(Eq("teams", "name", "x")))
	assert.False(t, in.AddOrder("users", "password", false))
	assert.Equal(t, []string{"users.name", "users.email"}, in.SetProjection("name", "password", "email"))
	assert.Empty(t, in.Predicates())
	assert.Empty(t, in.Orders())
}

func TestIntentJoinIsIdempotent(t *testing.T) {
	reg := testRegistry(t)
	desc := users(t, reg)
	team, err := reg.Get("Team")
	require.NoError(t, err)

	in := NewScoped(desc, nil)
	assert.True(t, in.AddJoin(team, "team", "team.id", "users.team_id"))
	assert.True(t, in.AddJoin(team, "team", "team.id", "users.team_id"))
	assert.Len(t, in.Joins(), 1)

	assert.True(t, in.AddPredicate(Eq("team", "name", "core")))
	assert.True(t, in.AddOrder("team", "name", true))
}

func TestPaginateSealsIntent(t *testing.T) {
	reg := testRegistry(t)
	in := NewScoped(users(t, reg), tenant(1))

	in.Paginate(3, 10, "name")
	assert.True(t, in.Sealed())
	offset, limit := in.Window()
	assert.Equal(t, 20, offset)
	assert.Equal(t, 10, limit)
	assert.Equal(t, []string{"users.name"}, in.Columns())

	assert.False(t, in.AddPredicate(Eq("users", "name", "x")))
	assert.False(t, in.AddOrder("users", "name", false))
	in.SetSoftDeleteMode(TrashedOnly)
	assert.Equal(t, ActiveOnly, in.Mode())
	in.Paginate(1, 5)
	offset, limit = in.Window()
	assert.Equal(t, 20, offset)
	assert.Equal(t, 10, limit)
}

func TestPaginateClampsPageSize(t *testing.T) {
	reg := testRegistry(t)
	in := NewScoped(users(t, reg), nil).Paginate(0, 5000)
	offset, limit := in.Window()
	assert.Equal(t, 0, offset)
	assert.Equal(t, types.MaxPageSize, limit)
}

func TestVisibilityFrom(t *testing.T) {
	assert.Equal(t, IncludeAll, VisibilityFrom(types.Request{}, ActiveOnly))
	assert.Equal(t, TrashedOnly, VisibilityFrom(types.Request{"is_active": "0"}, ActiveOnly))
	assert.Equal(t, TrashedOnly, VisibilityFrom(types.Request{"is_active": false}, ActiveOnly))
	assert.Equal(t, ActiveOnly, VisibilityFrom(types.Request{"is_active": "1"}, ActiveOnly))
	assert.Equal(t, IncludeAll, VisibilityFrom(types.Request{"is_active": true}, IncludeAll))
	for _, v := range []any{"no", "off", "abc", "false", "", 0, 2} {
		assert.Equal(t, TrashedOnly, VisibilityFrom(types.Request{"is_active": v}, ActiveOnly), "%v", v)
	}
	for _, v := range []any{"yes", "ON", " true ", 1, int64(1)} {
		assert.Equal(t, ActiveOnly, VisibilityFrom(types.Request{"is_active": v}, ActiveOnly), "%v", v)
	}
	assert.Equal(t, "trashed_only", TrashedOnly.Name())
}
