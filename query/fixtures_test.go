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

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/sieve/schema"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(
		&schema.Descriptor{
			Name:         "User",
			Table:        "users",
			TenantScoped: true,
			SoftDeletes:  true,
			Fields: map[string]schema.FieldType{
				"name":       schema.String,
				"email":      schema.String,
				"age":        schema.Integer,
				"birth_date": schema.DateTime,
				"active":     schema.Boolean,
				"team_id":    schema.Integer,
			},
			Searchable: []string{"name", "email", "age"},
			Relations: []schema.Relation{
				{Name: "posts", Kind: schema.HasMany, Target: "Post"},
				{Name: "team", Kind: schema.BelongsTo, Target: "Team"},
				{Name: "roles", Kind: schema.BelongsToMany, Target: "Role"},
			},
		},
		&schema.Descriptor{
			Name:        "Post",
			Table:       "posts",
			SoftDeletes: true,
			Fields:      map[string]schema.FieldType{"title": schema.String, "views": schema.Integer, "user_id": schema.Integer},
		},
		&schema.Descriptor{Name: "Team", Table: "teams", Fields: map[string]schema.FieldType{"name": schema.String}},
		&schema.Descriptor{Name: "Role", Table: "roles", Fields: map[string]schema.FieldType{"name": schema.String}},
	)
	require.NoError(t, err)
	return reg
}

func users(t *testing.T, reg *schema.Registry) *schema.Descriptor {
	t.Helper()
	d, err := reg.Get("User")
	require.NoError(t, err)
	return d
}

func tenant(id int64) *int64 { return &id }

func testDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, _, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}
