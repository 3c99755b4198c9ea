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
	"strconv"
	"strings"

	"github.com/tomoncle/sieve/query"
	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/types"
)

// managedColumns are written by the repository, never taken from input.
var managedColumns = map[string]struct{}{
	schema.ColumnID:        {},
	schema.ColumnTenant:    {},
	schema.ColumnCreatedAt: {},
	schema.ColumnUpdatedAt: {},
	schema.ColumnDeletedAt: {},
	schema.ColumnDeletedBy: {},
	schema.ColumnCreatedBy: {},
	schema.ColumnUpdatedBy: {},
}

// attributes keeps the scalar values of declared, writable columns.
func attributes(desc *schema.Descriptor, input map[string]any) types.Row {
	row := types.Row{}
	for key, v := range input {
		if _, ok := managedColumns[key]; ok || !desc.HasField(key) {
			continue
		}
		if _, ok := desc.Relation(key); ok {
			continue
		}
		if v == nil {
			row[key] = nil
			continue
		}
		if _, ok := types.Scalar(v); ok {
			row[key] = v
		}
	}
	return row
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), t == float64(int64(t))
	}
	s, ok := types.Scalar(v)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n, err == nil
}

// present yields the relations of kind that payload carries, with their
// payload key.
func present(desc *schema.Descriptor, payload types.Request, kind schema.RelationKind) map[string]*schema.Relation {
	out := map[string]*schema.Relation{}
	for _, key := range payload.Keys() {
		if rel, ok := desc.Relation(key); ok && rel.Kind == kind {
			out[key] = rel
		}
	}
	return out
}

func (r *baseRepositoryImpl) inTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error {
	if err := r.exec.RunInTx(ctx, fn); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// SyncHasMany replaces every one-to-many child collection present in
// payload: children with a known id are updated, the others inserted, and
// children of the parent left out of payload are deleted.
func (r *baseRepositoryImpl) SyncHasMany(ctx context.Context, scope Scope, parentID int64, payload types.Request) error {
	return r.inTx(ctx, func(ctx context.Context, tx Executor) error {
		return r.syncHasMany(ctx, tx, scope, parentID, payload)
	})
}

// CreateMany inserts every child present in payload and deletes nothing.
func (r *baseRepositoryImpl) CreateMany(ctx context.Context, scope Scope, parentID int64, payload types.Request) error {
	return r.inTx(ctx, func(ctx context.Context, tx Executor) error {
		return r.createMany(ctx, tx, scope, parentID, payload)
	})
}

// SyncManyToMany replaces the pivot rows of every many-to-many relation
// present in payload as an id list.
func (r *baseRepositoryImpl) SyncManyToMany(ctx context.Context, scope Scope, parentID int64, payload types.Request) error {
	return r.inTx(ctx, func(ctx context.Context, tx Executor) error {
		return r.syncManyToMany(ctx, tx, scope, parentID, payload)
	})
}

func (r *baseRepositoryImpl) insertChild(ctx context.Context, tx Executor, scope Scope, target *schema.Descriptor, rel *schema.Relation, parentID int64, obj map[string]any) (int64, error) {
	row := attributes(target, obj)
	row[rel.ForeignKey] = parentID
	r.stamper.Creating(target, scope, row)
	return tx.Insert(ctx, target, row)
}

func (r *baseRepositoryImpl) createMany(ctx context.Context, tx Executor, scope Scope, parentID int64, payload types.Request) error {
	for key, rel := range present(r.desc, payload, schema.HasMany) {
		children, ok := payload.Objects(key)
		if !ok {
			continue
		}
		target, err := r.reg.Target(rel)
		if err != nil {
			return err
		}
		for _, obj := range children {
			if _, err := r.insertChild(ctx, tx, scope, target, rel, parentID, obj); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *baseRepositoryImpl) syncHasMany(ctx context.Context, tx Executor, scope Scope, parentID int64, payload types.Request) error {
	for key, rel := range present(r.desc, payload, schema.HasMany) {
		children, ok := payload.Objects(key)
		if !ok {
			continue
		}
		target, err := r.reg.Target(rel)
		if err != nil {
			return err
		}

		keep := make([]any, 0, len(children))
		for _, obj := range children {
			if id, ok := toInt64(obj[schema.ColumnID]); ok && id > 0 {
				in := childScope(target, rel, scope, parentID)
				in.AddPredicate(query.Eq(target.Table, schema.ColumnID, id))
				// Existence is counted, not read from the update: MySQL reports
				// only changed rows, so an unchanged child would look absent.
				owned, err := tx.Count(ctx, in)
				if err != nil {
					return err
				}
				if owned > 0 {
					values := attributes(target, obj)
					r.stamper.Updating(target, scope, values)
					if _, err := tx.Update(ctx, in, values); err != nil {
						return err
					}
					keep = append(keep, id)
					continue
				}
			}
			id, err := r.insertChild(ctx, tx, scope, target, rel, parentID, obj)
			if err != nil {
				return err
			}
			keep = append(keep, id)
		}

		stale := childScope(target, rel, scope, parentID)
		stale.AddPredicate(query.NotIn(target.Table, schema.ColumnID, keep...))
		if target.SoftDeletes {
			stale.SetSoftDeleteMode(query.ActiveOnly)
			values := types.Row{}
			r.stamper.Deleting(target, scope, values)
			_, err = tx.Update(ctx, stale, values)
		} else {
			_, err = tx.Delete(ctx, stale)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// childScope selects the children of parentID regardless of their
// soft-delete state.
func childScope(target *schema.Descriptor, rel *schema.Relation, scope Scope, parentID int64) *query.Intent {
	in := query.NewScoped(target, scope.TenantID)
	in.AddPredicate(query.Eq(target.Table, rel.ForeignKey, parentID))
	in.SetSoftDeleteMode(query.IncludeAll)
	return in
}

func (r *baseRepositoryImpl) syncManyToMany(ctx context.Context, tx Executor, _ Scope, parentID int64, payload types.Request) error {
	for key, rel := range present(r.desc, payload, schema.BelongsToMany) {
		ids := payload.Strings(key)
		if objs, ok := payload.Objects(key); ok {
			ids = ids[:0]
			for _, obj := range objs {
				if s, ok := types.Scalar(obj[schema.ColumnID]); ok {
					ids = append(ids, s)
				}
			}
		}
		if err := tx.Detach(ctx, rel.Pivot, rel.PivotForeignKey, parentID); err != nil {
			return err
		}
		rows := make([]types.Row, 0, len(ids))
		for _, raw := range ids {
			id, ok := toInt64(raw)
			if !ok {
				continue
			}
			rows = append(rows, types.Row{rel.PivotForeignKey: parentID, rel.PivotRelatedKey: id})
		}
		if len(rows) == 0 {
			continue
		}
		if err := tx.Attach(ctx, rel.Pivot, rows); err != nil {
			return err
		}
	}
	return nil
}
