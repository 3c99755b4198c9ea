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
	"github.com/uptrace/bun"
)

func TestRenderCompileAnd(t *testing.T) {
	reg := testRegistry(t)
	db := testDB(t)

	in, err := CompileAnd(reg, users(t, reg), tenant(7), types.Request{
		"name":      "Jo",
		"age":       "18-30",
		"nickname":  "ignored",
		"is_active": "1",
		"posts":     map[string]any{"title": "go", "bogus": 1},
		"order":     "team.name",
		"direction": "desc",
	})
	require.NoError(t, err)

	sql := NewSelect(db, in).String()
	assert.Contains(t, sql, `SELECT "users".* FROM "users" LEFT JOIN "teams" AS "team" ON "team"."id" = "users"."team_id"`)
	assert.Contains(t, sql, `("users"."company_id" = 7)`)
	assert.Contains(t, sql, `EXISTS (SELECT 1 FROM "posts" AS "posts" WHERE ("posts"."user_id" = "users"."id") AND ("posts"."deleted_at" IS NULL) AND (LOWER("posts"."title") LIKE LOWER('%go%')))`)
	assert.Contains(t, sql, `("users"."age" BETWEEN '18' AND '30')`)
	assert.Contains(t, sql, `(LOWER("users"."name") LIKE LOWER('%Jo%'))`)
	assert.Contains(t, sql, `("users"."deleted_at" IS NULL)`)
	assert.Contains(t, sql, `ORDER BY "team"."name" DESC, "users"."deleted_at" ASC`)
	assert.NotContains(t, sql, "nickname")
	assert.NotContains(t, sql, "bogus")
}

func TestRenderCompileSearchKeepsTenantScope(t *testing.T) {
	reg := testRegistry(t)
	db := testDB(t)

	in, err := CompileSearch(reg, users(t, reg), tenant(7), types.Request{"search": "ana", "is_active": "0"})
	require.NoError(t, err)
	in.Paginate(2, 10)

	sql := NewSelect(db, in).String()
	assert.Contains(t, sql, `WHERE ("users"."company_id" = 7) AND ((LOWER("users"."name") LIKE LOWER('%ana%')) OR (LOWER("users"."email") LIKE LOWER('%ana%')) OR (EXISTS (`)
	assert.Contains(t, sql, `SELECT 1 FROM "teams" AS "team" WHERE ("team"."id" = "users"."team_id")`)
	assert.Contains(t, sql, `SELECT 1 FROM "role_user" JOIN "roles" AS "roles" ON "roles"."id" = "role_user"."role_id" WHERE ("role_user"."user_id" = "users"."id")`)
	assert.Contains(t, sql, `("users"."deleted_at" IS NOT NULL)`)
	assert.Contains(t, sql, `ORDER BY "users"."id" DESC, "users"."deleted_at" ASC LIMIT 10 OFFSET 10`)
}

func TestRenderIncludeAllAndProjection(t *testing.T) {
	reg := testRegistry(t)
	db := testDB(t)

	in, err := CompileAnd(reg, users(t, reg), nil, types.Request{"fields": "name,email,secret"})
	require.NoError(t, err)

	sql := NewSelect(db, in).String()
	assert.Contains(t, sql, `SELECT "users"."name", "users"."email" FROM "users"`)
	assert.NotContains(t, sql, "IS NULL")
	assert.NotContains(t, sql, "company_id")
}

func TestApplyWhereOnUpdate(t *testing.T) {
	reg := testRegistry(t)
	db := testDB(t)

	in := NewScoped(users(t, reg), tenant(3))
	in.AddPredicate(Eq("users", "id", 10))
	in.SetSoftDeleteMode(IncludeAll)

	q := db.NewUpdate().TableExpr("?", bun.Ident("users")).Set("? = ?", bun.Ident("name"), "x")
	q = ApplyWhere(db, q.QueryBuilder(), in).Unwrap().(*bun.UpdateQuery)
	assert.Equal(t, `UPDATE "users" SET "name" = 'x' WHERE ("users"."company_id" = 3) AND ("users"."id" = 10)`, q.String())
}

func TestExprEmptyLists(t *testing.T) {
	db := testDB(t)

	expr, _ := Expr(db, In("users", "id"))
	assert.Equal(t, "1 = 0", expr)
	expr, _ = Expr(db, NotIn("users", "id"))
	assert.Empty(t, expr)
}
