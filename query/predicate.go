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
	"strings"

	"github.com/tomoncle/sieve/schema"
)

// Operator is the shape of a predicate.
type Operator int

const (
	OpEq Operator = iota
	OpLike
	OpBetween
	OpIn
	OpNotIn
	OpDate
	OpNull
	OpNotNull
	OpExists
)

var operatorNames = [...]string{"eq", "like", "between", "in", "not_in", "date", "null", "not_null", "exists"}

func (o Operator) String() string {
	if o < OpEq || o > OpExists {
		return "unknown"
	}
	return operatorNames[o]
}

// comparators is the whitelist of equality overrides accepted from the
// operator map. Anything else falls back to "=".
var comparators = map[string]string{
	"=":   "=",
	"==":  "=",
	"<>":  "<>",
	"!=":  "<>",
	">":   ">",
	">=":  ">=",
	"<":   "<",
	"<=":  "<=",
	"eq":  "=",
	"ne":  "<>",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

// Comparator resolves an operator override to its SQL form.
func Comparator(op string) string {
	if c, ok := comparators[strings.ToLower(strings.TrimSpace(op))]; ok {
		return c
	}
	return "="
}

// Predicate is one condition of a query intent. Table is the table name or
// alias the column belongs to.
type Predicate struct {
	Table      string
	Column     string
	Operator   Operator
	Comparator string
	Values     []any
	Sub        *Subquery
}

// Subquery is a correlated EXISTS over a relation. Predicates refer to
// Alias, which is the relation name.
type Subquery struct {
	Relation   schema.Relation
	Owner      *schema.Descriptor
	Target     *schema.Descriptor
	Alias      string
	Predicates []Predicate
}

// Qualified returns table.column.
func (p Predicate) Qualified() string {
	return p.Table + "." + p.Column
}

func Eq(table, column string, value any) Predicate {
	return Predicate{Table: table, Column: column, Operator: OpEq, Comparator: "=", Values: []any{value}}
}

// Compare builds an equality-family predicate with a whitelisted comparator.
func Compare(table, column, op string, value any) Predicate {
	return Predicate{Table: table, Column: column, Operator: OpEq, Comparator: Comparator(op), Values: []any{value}}
}

// Like matches substring containment, case-insensitively.
func Like(table, column, term string) Predicate {
	return Predicate{Table: table, Column: column, Operator: OpLike, Values: []any{"%" + term + "%"}}
}

func Between(table, column string, low, high any) Predicate {
	return Predicate{Table: table, Column: column, Operator: OpBetween, Values: []any{low, high}}
}

func In(table, column string, values ...any) Predicate {
	return Predicate{Table: table, Column: column, Operator: OpIn, Values: values}
}

func NotIn(table, column string, values ...any) Predicate {
	return Predicate{Table: table, Column: column, Operator: OpNotIn, Values: values}
}

// OnDate matches the calendar day of a timestamp column.
func OnDate(table, column, day string) Predicate {
	return Predicate{Table: table, Column: column, Operator: OpDate, Values: []any{day}}
}

func IsNull(table, column string) Predicate {
	return Predicate{Table: table, Column: column, Operator: OpNull}
}

func NotNull(table, column string) Predicate {
	return Predicate{Table: table, Column: column, Operator: OpNotNull}
}

// Exists wraps a correlated sub-query on a relation.
func Exists(sub *Subquery) Predicate {
	return Predicate{Table: sub.Owner.Table, Column: schema.ColumnID, Operator: OpExists, Sub: sub}
}
