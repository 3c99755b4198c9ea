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

	"github.com/tomoncle/sieve/query"
	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/types"
)

// Scope carries the caller's tenant and actor into every repository call.
// A nil TenantID disables tenant filtering; a nil ActorID leaves audit
// columns untouched.
type Scope struct {
	TenantID *int64
	ActorID  *int64
}

// NewScope builds a scope for a known tenant and actor.
func NewScope(tenantID, actorID int64) Scope {
	return Scope{TenantID: &tenantID, ActorID: &actorID}
}

// Executor runs query intents against the persistence engine.
type Executor interface {
	Select(ctx context.Context, in *query.Intent) ([]types.Row, error)
	Count(ctx context.Context, in *query.Intent) (int, error)
	// Insert stores row and returns its generated id.
	Insert(ctx context.Context, desc *schema.Descriptor, row types.Row) (int64, error)
	// Update sets values on every row matched by in and returns the number
	// of affected rows.
	Update(ctx context.Context, in *query.Intent, values types.Row) (int64, error)
	Delete(ctx context.Context, in *query.Intent) (int64, error)
	// Upsert inserts row or, when a row with the same keys (id by default)
	// exists, updates it. It returns the row id.
	Upsert(ctx context.Context, desc *schema.Descriptor, row types.Row, keys ...string) (int64, error)
	DeleteByID(ctx context.Context, desc *schema.Descriptor, id int64) error
	// Attach inserts pivot rows, ignoring rows that already exist.
	Attach(ctx context.Context, pivot string, rows []types.Row) error
	// Detach removes every pivot row whose column equals id.
	Detach(ctx context.Context, pivot, column string, id int64) error
	// RunInTx runs fn in one transaction; fn's executor is bound to it.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error
	// Describe renders the select statement of in, used as a cache key.
	Describe(in *query.Intent) string
}

// Stamper fills audit and tenant columns before rows are written.
type Stamper interface {
	Creating(desc *schema.Descriptor, scope Scope, row types.Row)
	Updating(desc *schema.Descriptor, scope Scope, row types.Row)
	Deleting(desc *schema.Descriptor, scope Scope, row types.Row)
	Restoring(desc *schema.Descriptor, scope Scope, row types.Row)
}

// ModelOption is one entry of the entity picker.
type ModelOption struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// CrudRepository defines row-level operations of one entity.
type CrudRepository interface {
	// Find returns an active row. Rows of soft deleting entities carry
	// is_active.
	Find(ctx context.Context, scope Scope, id int64) (types.Row, error)
	FindBy(ctx context.Context, scope Scope, column string, value any, operator string) ([]types.Row, error)
	List(ctx context.Context, scope Scope, filters map[string]any, skip, limit int) ([]types.Row, error)
	Create(ctx context.Context, scope Scope, input types.Request) (types.Row, error)
	Update(ctx context.Context, scope Scope, input types.Request, id int64) (types.Row, error)
	Upsert(ctx context.Context, scope Scope, input types.Request, keys ...string) (int64, error)
	Delete(ctx context.Context, scope Scope, id int64) error
	DeleteOrUndelete(ctx context.Context, scope Scope, id int64, note string) (types.Result, error)
}

// QueryRepository composes and executes dynamic queries.
type QueryRepository interface {
	Paginate(ctx context.Context, scope Scope, page, size int, columns ...string) (*types.Pagination[types.Row], error)
	FindAllFieldsAnd(scope Scope, req types.Request) (*query.Intent, error)
	AdvancedSearch(scope Scope, req types.Request) (*query.Intent, error)
	Fetch(ctx context.Context, in *query.Intent, page, size int) (*types.Pagination[types.Row], error)
}

// RelationRepository reconciles child collections of a parent row.
type RelationRepository interface {
	SyncHasMany(ctx context.Context, scope Scope, parentID int64, payload types.Request) error
	CreateMany(ctx context.Context, scope Scope, parentID int64, payload types.Request) error
	SyncManyToMany(ctx context.Context, scope Scope, parentID int64, payload types.Request) error
}

// Repository combines every operation over one entity.
type Repository interface {
	CrudRepository
	QueryRepository
	RelationRepository
	Descriptor() *schema.Descriptor
	ModelName() string
	Models() []ModelOption
	FlushCache(ctx context.Context, req types.Request) map[string]string
}
