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
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/tomoncle/sieve/query"
	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

type bunExecutor struct {
	db bun.IDB
}

// NewBunExecutor returns an Executor backed by a bun database, connection
// or transaction.
func NewBunExecutor(db bun.IDB) Executor {
	return &bunExecutor{db: db}
}

func (e *bunExecutor) hasFeature(f feature.Feature) bool {
	return e.db.Dialect().Features().Has(f)
}

func (e *bunExecutor) Select(ctx context.Context, in *query.Intent) ([]types.Row, error) {
	rows := make([]types.Row, 0)
	if err := query.NewSelect(e.db, in).Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *bunExecutor) Count(ctx context.Context, in *query.Intent) (int, error) {
	return query.NewSelect(e.db, in).Count(ctx)
}

func (e *bunExecutor) Describe(in *query.Intent) string {
	return query.NewSelect(e.db, in).String()
}

func (e *bunExecutor) Insert(ctx context.Context, desc *schema.Descriptor, row types.Row) (int64, error) {
	q := e.db.NewInsert().Model(&row).TableExpr("?", bun.Ident(desc.Table))
	return e.insertID(ctx, q)
}

// insertID runs q and returns the row id, through RETURNING where the
// dialect has it and LastInsertId otherwise.
func (e *bunExecutor) insertID(ctx context.Context, q *bun.InsertQuery) (int64, error) {
	if e.hasFeature(feature.InsertReturning) {
		var id int64
		if err := q.Returning("?", bun.Ident(schema.ColumnID)).Scan(ctx, &id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (e *bunExecutor) Update(ctx context.Context, in *query.Intent, values types.Row) (int64, error) {
	q := e.db.NewUpdate().TableExpr("?", bun.Ident(in.Table()))
	if len(values) == 0 {
		q = q.Set("? = ?", bun.Ident(schema.ColumnID), bun.Ident(schema.ColumnID))
	}
	for _, col := range sortedKeys(values) {
		q = q.Set("? = ?", bun.Ident(col), values[col])
	}
	q = query.ApplyWhere(e.db, q.QueryBuilder(), in).Unwrap().(*bun.UpdateQuery)
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (e *bunExecutor) Delete(ctx context.Context, in *query.Intent) (int64, error) {
	q := e.db.NewDelete().TableExpr("?", bun.Ident(in.Table()))
	q = query.ApplyWhere(e.db, q.QueryBuilder(), in).Unwrap().(*bun.DeleteQuery)
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (e *bunExecutor) DeleteByID(ctx context.Context, desc *schema.Descriptor, id int64) error {
	_, err := e.db.NewDelete().
		TableExpr("?", bun.Ident(desc.Table)).
		Where("? = ?", bun.Ident(schema.ColumnID), id).
		Exec(ctx)
	return err
}

func (e *bunExecutor) Upsert(ctx context.Context, desc *schema.Descriptor, row types.Row, keys ...string) (int64, error) {
	if len(keys) == 0 {
		keys = []string{schema.ColumnID}
	}
	for _, k := range keys {
		if _, ok := row[k]; !ok {
			return e.Insert(ctx, desc, row)
		}
	}

	if e.hasFeature(feature.InsertOnConflict) {
		return e.upsertOnConflict(ctx, desc, row, keys)
	} else if e.hasFeature(feature.InsertOnDuplicateKey) {
		return e.upsertOnDuplicateKey(ctx, desc, row, keys)
	}
	return e.upsertFallback(ctx, desc, row, keys)
}

func (e *bunExecutor) upsertOnConflict(ctx context.Context, desc *schema.Descriptor, row types.Row, keys []string) (int64, error) {
	q := e.db.NewInsert().Model(&row).TableExpr("?", bun.Ident(desc.Table)).
		On("CONFLICT (?) DO UPDATE", bun.In(idents(keys)))
	for _, col := range updatable(row, keys) {
		q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
	}
	if _, ok := row[schema.ColumnTenant]; ok && desc.TenantScoped {
		q = q.Where("? = EXCLUDED.?", bun.Ident(desc.Qualify(schema.ColumnTenant)), bun.Ident(schema.ColumnTenant))
	}
	id, err := e.insertID(ctx, q)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound(desc.DisplayName(), row[keys[0]])
	}
	return id, err
}

func (e *bunExecutor) upsertOnDuplicateKey(ctx context.Context, desc *schema.Descriptor, row types.Row, keys []string) (int64, error) {
	q := e.db.NewInsert().Model(&row).TableExpr("?", bun.Ident(desc.Table)).
		On("DUPLICATE KEY UPDATE").
		Set("? = LAST_INSERT_ID(?)", bun.Ident(schema.ColumnID), bun.Ident(schema.ColumnID))
	for _, col := range updatable(row, keys) {
		q = q.Set("? = VALUES(?)", bun.Ident(col), bun.Ident(col))
	}
	return e.insertID(ctx, q)
}

func (e *bunExecutor) upsertFallback(ctx context.Context, desc *schema.Descriptor, row types.Row, keys []string) (int64, error) {
	q := e.db.NewUpdate().TableExpr("?", bun.Ident(desc.Table))
	for _, col := range updatable(row, keys) {
		q = q.Set("? = ?", bun.Ident(col), row[col])
	}
	for _, k := range keys {
		q = q.Where("? = ?", bun.Ident(k), row[k])
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		if id, ok := toInt64(row[schema.ColumnID]); ok {
			return id, nil
		}
	}
	id, insertErr := e.Insert(ctx, desc, row)
	if insertErr != nil {
		return 0, fmt.Errorf("upsert failed for %s: %w", desc.Table, insertErr)
	}
	return id, nil
}

func (e *bunExecutor) Attach(ctx context.Context, pivot string, rows []types.Row) error {
	for _, row := range rows {
		row := row
		if _, err := e.db.NewInsert().Model(&row).TableExpr("?", bun.Ident(pivot)).Ignore().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *bunExecutor) Detach(ctx context.Context, pivot, column string, id int64) error {
	_, err := e.db.NewDelete().
		TableExpr("?", bun.Ident(pivot)).
		Where("? = ?", bun.Ident(column), id).
		Exec(ctx)
	return err
}

func (e *bunExecutor) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error {
	return e.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunExecutor{db: tx})
	})
}

func idents(names []string) []bun.Ident {
	out := make([]bun.Ident, len(names))
	for i, n := range names {
		out[i] = bun.Ident(n)
	}
	return out
}

// updatable returns the columns of row other than keys, sorted.
func updatable(row types.Row, keys []string) []string {
	skip := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		skip[k] = struct{}{}
	}
	var cols []string
	for _, c := range sortedKeys(row) {
		if _, ok := skip[c]; !ok && c != schema.ColumnCreatedAt && c != schema.ColumnCreatedBy {
			cols = append(cols, c)
		}
	}
	return cols
}

func sortedKeys(row types.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
