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
	"github.com/tomoncle/sieve/schema"
	"github.com/uptrace/bun"
)

// NewSelect renders in as a fresh select query on db.
func NewSelect(db bun.IDB, in *Intent) *bun.SelectQuery {
	return ApplySelect(db, db.NewSelect(), in)
}

// ApplySelect adds table, projection, joins, predicates, order and window of
// in to q. Identifiers are always quoted and values always bound.
func ApplySelect(db bun.IDB, q *bun.SelectQuery, in *Intent) *bun.SelectQuery {
	q = q.TableExpr("?", bun.Ident(in.Table()))

	switch cols := in.Columns(); {
	case len(cols) > 0:
		for _, c := range cols {
			q = q.ColumnExpr("?", bun.Ident(c))
		}
	case len(in.Joins()) > 0:
		q = q.ColumnExpr("?", bun.Ident(in.Table()+".*"))
	}

	for _, j := range in.Joins() {
		q = q.Join("LEFT JOIN ? AS ? ON ? = ?",
			bun.Ident(j.Table), bun.Ident(j.Alias), bun.Ident(j.Left), bun.Ident(j.Right))
	}

	q = ApplyWhere(db, q.QueryBuilder(), in).Unwrap().(*bun.SelectQuery)

	for _, o := range in.Orders() {
		if o.Desc {
			q = q.OrderExpr("? DESC", bun.Ident(o.Qualified()))
		} else {
			q = q.OrderExpr("? ASC", bun.Ident(o.Qualified()))
		}
	}

	offset, limit := in.Window()
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

// ApplyWhere adds the predicates, the OR group and the soft-delete condition
// of in to any select, update or delete query.
func ApplyWhere(db bun.IDB, qb bun.QueryBuilder, in *Intent) bun.QueryBuilder {
	for _, p := range in.Predicates() {
		qb = where(db, qb, p, false)
	}
	if anyOf := in.AnyOf(); len(anyOf) > 0 {
		qb = qb.WhereGroup(" AND ", func(g bun.QueryBuilder) bun.QueryBuilder {
			for _, p := range anyOf {
				g = where(db, g, p, true)
			}
			return g
		})
	}
	desc := in.Descriptor()
	if desc.SoftDeletes && desc.HasField(schema.ColumnDeletedAt) {
		col := bun.Ident(desc.Qualify(schema.ColumnDeletedAt))
		switch in.Mode() {
		case ActiveOnly:
			qb = qb.Where("? IS NULL", col)
		case TrashedOnly:
			qb = qb.Where("? IS NOT NULL", col)
		}
	}
	return qb
}

func where(db bun.IDB, qb bun.QueryBuilder, p Predicate, or bool) bun.QueryBuilder {
	expr, args := Expr(db, p)
	if expr == "" {
		return qb
	}
	if or {
		return qb.WhereOr(expr, args...)
	}
	return qb.Where(expr, args...)
}

// Expr returns the SQL template and arguments of a single predicate.
func Expr(db bun.IDB, p Predicate) (string, []any) {
	col := bun.Ident(p.Qualified())
	switch p.Operator {
	case OpEq:
		return "? " + Comparator(p.Comparator) + " ?", []any{col, first(p.Values)}
	case OpLike:
		return "LOWER(?) LIKE LOWER(?)", []any{col, first(p.Values)}
	case OpBetween:
		if len(p.Values) != 2 {
			return "", nil
		}
		return "? BETWEEN ? AND ?", []any{col, p.Values[0], p.Values[1]}
	case OpIn:
		if len(p.Values) == 0 {
			return "1 = 0", nil
		}
		return "? IN (?)", []any{col, bun.In(p.Values)}
	case OpNotIn:
		if len(p.Values) == 0 {
			return "", nil
		}
		return "? NOT IN (?)", []any{col, bun.In(p.Values)}
	case OpDate:
		return "DATE(?) = ?", []any{col, first(p.Values)}
	case OpNull:
		return "? IS NULL", []any{col}
	case OpNotNull:
		return "? IS NOT NULL", []any{col}
	case OpExists:
		if p.Sub == nil {
			return "", nil
		}
		return "EXISTS (?)", []any{Subselect(db, p.Sub)}
	}
	return "", nil
}

func first(values []any) any {
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// Subselect renders the correlated sub-query of an EXISTS predicate.
func Subselect(db bun.IDB, sub *Subquery) *bun.SelectQuery {
	rel, owner, target, alias := sub.Relation, sub.Owner, sub.Target, sub.Alias
	ownerID := bun.Ident(owner.Qualify(schema.ColumnID))
	aliasID := bun.Ident(alias + "." + schema.ColumnID)

	q := db.NewSelect().ColumnExpr("1")
	switch rel.Kind {
	case schema.HasMany:
		q = q.TableExpr("? AS ?", bun.Ident(target.Table), bun.Ident(alias)).
			Where("? = ?", bun.Ident(alias+"."+rel.ForeignKey), ownerID)
	case schema.BelongsTo:
		q = q.TableExpr("? AS ?", bun.Ident(target.Table), bun.Ident(alias)).
			Where("? = ?", aliasID, bun.Ident(owner.Qualify(rel.ForeignKey)))
	case schema.BelongsToMany:
		q = q.TableExpr("?", bun.Ident(rel.Pivot)).
			Join("JOIN ? AS ? ON ? = ?", bun.Ident(target.Table), bun.Ident(alias),
				aliasID, bun.Ident(rel.Pivot+"."+rel.PivotRelatedKey)).
			Where("? = ?", bun.Ident(rel.Pivot+"."+rel.PivotForeignKey), ownerID)
	}
	if target.SoftDeletes {
		q = q.Where("? IS NULL", bun.Ident(alias+"."+schema.ColumnDeletedAt))
	}
	for _, p := range sub.Predicates {
		if expr, args := Expr(db, p); expr != "" {
			q = q.Where(expr, args...)
		}
	}
	return q
}
