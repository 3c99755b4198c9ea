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
	"net/http"

	"github.com/go-openapi/inflect"
	"github.com/tomoncle/sieve/cache"
	"github.com/tomoncle/sieve/database"
	"github.com/tomoncle/sieve/query"
	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/types"
)

type baseRepositoryImpl struct {
	reg     *schema.Registry
	desc    *schema.Descriptor
	exec    Executor
	cache   *cache.QueryCache
	stamper Stamper
	log     database.Logger
}

// Option configures a repository.
type Option func(*baseRepositoryImpl)

// WithCache enables result caching for entities flagged Cached.
func WithCache(c *cache.QueryCache) Option {
	return func(r *baseRepositoryImpl) { r.cache = c }
}

func WithStamper(s Stamper) Option {
	return func(r *baseRepositoryImpl) { r.stamper = s }
}

func WithLogger(l database.Logger) Option {
	return func(r *baseRepositoryImpl) { r.log = l }
}

// NewRepository returns the repository of entity, which must be registered.
func NewRepository(reg *schema.Registry, entity string, exec Executor, opts ...Option) (Repository, error) {
	desc, err := reg.Get(entity)
	if err != nil {
		return nil, err
	}
	r := &baseRepositoryImpl{reg: reg, desc: desc, exec: exec, stamper: AuditStamper{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = database.NewNamedLogger("REPOSITORY")
	}
	return r, nil
}

func (r *baseRepositoryImpl) Descriptor() *schema.Descriptor { return r.desc }

func (r *baseRepositoryImpl) ModelName() string { return r.desc.ModelName() }

func (r *baseRepositoryImpl) name() string { return r.desc.DisplayName() }

// Models lists every registered entity for pickers.
func (r *baseRepositoryImpl) Models() []ModelOption {
	return ModelsOf(r.reg)
}

// ModelsOf lists the entities of reg as {value, text} pairs, where value is
// the snake plural name and text the label.
func ModelsOf(reg *schema.Registry) []ModelOption {
	all := reg.All()
	out := make([]ModelOption, 0, len(all))
	for _, d := range all {
		out = append(out, ModelOption{
			Value: inflect.Pluralize(inflect.Underscore(d.Name)),
			Text:  d.DisplayName(),
		})
	}
	return out
}

func (r *baseRepositoryImpl) scoped(scope Scope) *query.Intent {
	return query.NewScoped(r.desc, scope.TenantID)
}

func (r *baseRepositoryImpl) byID(scope Scope, id int64, mode query.SoftDeleteMode) *query.Intent {
	in := r.scoped(scope)
	in.AddPredicate(query.Eq(r.desc.Table, schema.ColumnID, id))
	in.SetSoftDeleteMode(mode)
	return in
}

func (r *baseRepositoryImpl) Paginate(ctx context.Context, scope Scope, page, size int, columns ...string) (*types.Pagination[types.Row], error) {
	in := r.scoped(scope)
	if err := query.CompileOrder(r.reg, in, nil, nil); err != nil {
		return nil, err
	}
	in.Paginate(page, size, columns...)
	return r.Fetch(ctx, in, page, size)
}

// List filters on searchable fields by plain equality.
func (r *baseRepositoryImpl) List(ctx context.Context, scope Scope, filters map[string]any, skip, limit int) ([]types.Row, error) {
	in := r.scoped(scope)
	in.AddPredicates(query.CompileSearchable(r.desc, filters)...)
	if err := query.CompileOrder(r.reg, in, nil, nil); err != nil {
		return nil, err
	}
	in.SetWindow(skip, limit)
	return selectRows(ctx, r.exec, in)
}

func (r *baseRepositoryImpl) FindAllFieldsAnd(scope Scope, req types.Request) (*query.Intent, error) {
	return query.CompileAnd(r.reg, r.desc, scope.TenantID, req)
}

func (r *baseRepositoryImpl) AdvancedSearch(scope Scope, req types.Request) (*query.Intent, error) {
	return query.CompileSearch(r.reg, r.desc, scope.TenantID, req)
}

// Fetch executes in as one page. An intent sealed by Paginate keeps its
// own window.
func (r *baseRepositoryImpl) Fetch(ctx context.Context, in *query.Intent, page, size int) (*types.Pagination[types.Row], error) {
	pr := types.NewPageRequest(page, size)
	if in.Sealed() {
		offset, limit := in.Window()
		if limit > 0 {
			pr = types.NewPageRequest(offset/limit+1, limit)
		}
	} else {
		in.Paginate(pr.GetPage(), pr.GetPageSize())
	}

	load := func(ctx context.Context) (*types.Pagination[types.Row], error) {
		return r.fetch(ctx, in, pr)
	}
	desc := in.Descriptor()
	if r.cache == nil || !desc.Cached {
		return load(ctx)
	}
	key := cache.Key(desc.Name, r.exec.Describe(in), pr.GetPage(), pr.GetPageSize())
	return cache.Remember(ctx, r.cache, key, desc.CacheTTL, load)
}

func (r *baseRepositoryImpl) fetch(ctx context.Context, in *query.Intent, pr *types.PageRequest) (*types.Pagination[types.Row], error) {
	pagination := types.NewDefaultPagination[types.Row](pr.GetPage(), pr.GetPageSize())
	total, err := r.exec.Count(ctx, in)
	if err != nil || total == 0 {
		return pagination, err
	}
	rows, err := selectRows(ctx, r.exec, in)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = rows
	return pagination, nil
}

// Find returns an active row; trashed rows are only reachable through
// DeleteOrUndelete.
func (r *baseRepositoryImpl) Find(ctx context.Context, scope Scope, id int64) (types.Row, error) {
	return r.find(ctx, r.exec, scope, id, query.ActiveOnly)
}

func (r *baseRepositoryImpl) find(ctx context.Context, exec Executor, scope Scope, id int64, mode query.SoftDeleteMode) (types.Row, error) {
	in := r.byID(scope, id, mode)
	in.SetWindow(0, 1)
	rows, err := selectRows(ctx, exec, in)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound(r.name(), id)
	}
	return rows[0], nil
}

// FindBy returns active rows where column compares with value. An
// undeclared column matches nothing.
func (r *baseRepositoryImpl) FindBy(ctx context.Context, scope Scope, column string, value any, operator string) ([]types.Row, error) {
	in := r.scoped(scope)
	if !in.AddPredicate(query.Compare(r.desc.Table, column, operator, value)) {
		return []types.Row{}, nil
	}
	if err := query.CompileOrder(r.reg, in, nil, nil); err != nil {
		return nil, err
	}
	return selectRows(ctx, r.exec, in)
}

func (r *baseRepositoryImpl) Create(ctx context.Context, scope Scope, input types.Request) (types.Row, error) {
	var created types.Row
	err := r.exec.RunInTx(ctx, func(ctx context.Context, tx Executor) error {
		row := attributes(r.desc, input)
		r.stamper.Creating(r.desc, scope, row)
		id, err := tx.Insert(ctx, r.desc, row)
		if err != nil {
			return err
		}
		if err := r.createMany(ctx, tx, scope, id, input); err != nil {
			return err
		}
		if err := r.syncManyToMany(ctx, tx, scope, id, input); err != nil {
			return err
		}
		created, err = r.find(ctx, tx, scope, id, query.IncludeAll)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx)
	r.log.Debug("row created", "entity", r.desc.Name, "id", created[schema.ColumnID])
	return created, nil
}

func (r *baseRepositoryImpl) Update(ctx context.Context, scope Scope, input types.Request, id int64) (types.Row, error) {
	var updated types.Row
	err := r.exec.RunInTx(ctx, func(ctx context.Context, tx Executor) error {
		if _, err := r.find(ctx, tx, scope, id, query.ActiveOnly); err != nil {
			return err
		}
		values := attributes(r.desc, input)
		r.stamper.Updating(r.desc, scope, values)
		if _, err := tx.Update(ctx, r.byID(scope, id, query.ActiveOnly), values); err != nil {
			return err
		}
		if err := r.syncHasMany(ctx, tx, scope, id, input); err != nil {
			return err
		}
		if err := r.syncManyToMany(ctx, tx, scope, id, input); err != nil {
			return err
		}
		var err error
		updated, err = r.find(ctx, tx, scope, id, query.ActiveOnly)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx)
	return updated, nil
}

// Upsert writes input keyed by keys (id by default) within the caller's
// tenant.
func (r *baseRepositoryImpl) Upsert(ctx context.Context, scope Scope, input types.Request, keys ...string) (int64, error) {
	row := attributes(r.desc, input)
	if id, ok := toInt64(input[schema.ColumnID]); ok {
		row[schema.ColumnID] = id
	}
	r.stamper.Creating(r.desc, scope, row)
	id, err := r.exec.Upsert(ctx, r.desc, row, keys...)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx)
	return id, nil
}

// Delete soft-deletes an active row, or removes it when the entity does not
// soft delete.
func (r *baseRepositoryImpl) Delete(ctx context.Context, scope Scope, id int64) error {
	in := r.byID(scope, id, query.ActiveOnly)
	var (
		n   int64
		err error
	)
	if r.desc.SoftDeletes {
		values := types.Row{}
		r.stamper.Deleting(r.desc, scope, values)
		n, err = r.exec.Update(ctx, in, values)
	} else {
		n, err = r.exec.Delete(ctx, in)
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(r.name(), id)
	}
	r.invalidate(ctx)
	return nil
}

// DeleteOrUndelete flips the soft-delete state of a row, persisting note
// first when given. A missing row is reported in the result, not as an
// error.
func (r *baseRepositoryImpl) DeleteOrUndelete(ctx context.Context, scope Scope, id int64, note string) (types.Result, error) {
	if !r.desc.SoftDeletes {
		return types.Result{}, &schema.ConfigurationError{Entity: r.desc.Name, Reason: "entity does not soft delete"}
	}
	row, err := r.find(ctx, r.exec, scope, id, query.IncludeAll)
	if IsNotFound(err) {
		return types.Result{Code: http.StatusNotFound, Message: MsgNotFound(r.name())}, nil
	}
	if err != nil {
		return types.Result{}, err
	}

	in := r.byID(scope, id, query.IncludeAll)
	if note != "" && r.desc.HasField(schema.ColumnNote) {
		if _, err := r.exec.Update(ctx, in, types.Row{schema.ColumnNote: note}); err != nil {
			return types.Result{}, err
		}
	}

	values := types.Row{}
	result := types.Result{Code: http.StatusOK}
	if row[schema.ColumnDeletedAt] != nil {
		r.stamper.Restoring(r.desc, scope, values)
		result.Message = MsgReactivated(r.name())
	} else {
		r.stamper.Deleting(r.desc, scope, values)
		result.Message = MsgDeactivated(r.name())
	}
	if _, err := r.exec.Update(ctx, in, values); err != nil {
		return types.Result{}, err
	}
	r.invalidate(ctx)
	return result, nil
}

// FlushCache invalidates the cache of every entity named under "models".
// Each entity is handled on its own; a failure is recorded in its slot and
// processing goes on.
func (r *baseRepositoryImpl) FlushCache(ctx context.Context, req types.Request) map[string]string {
	out := map[string]string{}
	models, _ := req.Objects(types.KeyModels)
	for _, m := range models {
		name, ok := types.Scalar(m["name"])
		if !ok || name == "" {
			continue
		}
		out[name] = r.flushOne(ctx, name)
	}
	return out
}

func (r *baseRepositoryImpl) flushOne(ctx context.Context, name string) (msg string) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("cache flush panicked", "entity", name, "panic", p)
			msg = MsgCacheFailed
		}
	}()
	desc, err := r.reg.Get(name)
	if err != nil {
		return MsgNotFound(name)
	}
	if r.cache == nil || !desc.Cached {
		return MsgNoCache
	}
	if err := r.cache.Invalidate(ctx, desc.Name); err != nil {
		r.log.Error("cache flush failed", "entity", desc.Name, "error", err)
		return MsgCacheFailed
	}
	return MsgCacheFlushed
}

// invalidate drops the cached pages of the entity and of every cached
// relation target, since writes may touch child rows.
func (r *baseRepositoryImpl) invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	seen := map[string]struct{}{}
	drop := func(d *schema.Descriptor) {
		if _, ok := seen[d.Name]; ok || !d.Cached {
			return
		}
		seen[d.Name] = struct{}{}
		if err := r.cache.Invalidate(ctx, d.Name); err != nil {
			r.log.Warn("cache invalidation failed", "entity", d.Name, "error", err)
		}
	}
	drop(r.desc)
	for i := range r.desc.Relations {
		if target, err := r.reg.Target(&r.desc.Relations[i]); err == nil {
			drop(target)
		}
	}
}

// selectRows runs in and adds the computed is_active flag to rows of soft
// deleting entities. A projection without deleted_at leaves rows untouched.
func selectRows(ctx context.Context, exec Executor, in *query.Intent) ([]types.Row, error) {
	rows, err := exec.Select(ctx, in)
	if err != nil || !in.Descriptor().SoftDeletes {
		return rows, err
	}
	projected := len(in.Columns()) > 0
	for _, row := range rows {
		deletedAt, ok := row[schema.ColumnDeletedAt]
		if !ok && projected {
			continue
		}
		row[types.KeyIsActive] = deletedAt == nil
	}
	return rows, nil
}
