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
	"github.com/tomoncle/sieve/types"
)

// Join is a LEFT JOIN of Table under Alias on Left = Right.
type Join struct {
	Table string
	Alias string
	Left  string
	Right string
}

// Order is one ORDER BY item.
type Order struct {
	Table  string
	Column string
	Desc   bool
}

// Qualified returns table.column.
func (o Order) Qualified() string {
	return o.Table + "." + o.Column
}

// Intent is the not-yet-executed form of one query over one entity. An
// Intent is built for a single repository call and is not safe for
// concurrent use.
//
// Every column that reaches an Intent is checked against the descriptor of
// the table it names; unknown columns are dropped.
type Intent struct {
	desc       *schema.Descriptor
	tenant     *Predicate
	tenantID   *int64
	columns    []string
	predicates []Predicate
	anyOf      []Predicate
	joins      []Join
	joined     map[string]*schema.Descriptor
	orders     []Order
	mode       SoftDeleteMode
	limit      int
	offset     int
	sealed     bool
}

// NewScoped starts an intent over desc. When the entity is tenant scoped and
// tenantID is present the tenant predicate is fixed here and can never be
// removed or repeated.
func NewScoped(desc *schema.Descriptor, tenantID *int64) *Intent {
	in := &Intent{
		desc:   desc,
		joined: map[string]*schema.Descriptor{desc.Table: desc},
		mode:   ActiveOnly,
	}
	if desc.TenantScoped && tenantID != nil {
		id := *tenantID
		p := Eq(desc.Table, schema.ColumnTenant, id)
		in.tenant = &p
		in.tenantID = &id
	}
	return in
}

func (in *Intent) Descriptor() *schema.Descriptor { return in.desc }

// Table is the base table.
func (in *Intent) Table() string { return in.desc.Table }

// TenantID returns the fixed tenant, if any.
func (in *Intent) TenantID() (int64, bool) {
	if in.tenantID == nil {
		return 0, false
	}
	return *in.tenantID, true
}

// Sealed reports whether Paginate has fixed the intent.
func (in *Intent) Sealed() bool { return in.sealed }

// Knows reports whether column exists on the base table or on a joined alias.
func (in *Intent) Knows(table, column string) bool {
	d, ok := in.joined[table]
	return ok && d.HasField(column)
}

func (in *Intent) accepts(p Predicate) bool {
	if p.Operator == OpExists {
		return p.Sub != nil && p.Sub.Owner == in.desc
	}
	return in.Knows(p.Table, p.Column)
}

// AddPredicate ANDs p into the intent. It reports false when p was dropped.
func (in *Intent) AddPredicate(p Predicate) bool {
	if in.sealed || !in.accepts(p) {
		return false
	}
	if in.desc.TenantScoped && p.Table == in.desc.Table && p.Column == schema.ColumnTenant {
		return false
	}
	in.predicates = append(in.predicates, p)
	return true
}

// AddPredicates ANDs every acceptable predicate and returns how many were kept.
func (in *Intent) AddPredicates(ps ...Predicate) int {
	n := 0
	for _, p := range ps {
		if in.AddPredicate(p) {
			n++
		}
	}
	return n
}

// AddAny ORs ps into a single group that is ANDed with the rest of the
// intent, so a disjunction can never widen the tenant scope.
func (in *Intent) AddAny(ps ...Predicate) int {
	if in.sealed {
		return 0
	}
	n := 0
	for _, p := range ps {
		if in.accepts(p) {
			in.anyOf = append(in.anyOf, p)
			n++
		}
	}
	return n
}

// AddJoin LEFT JOINs target under alias on left = right. Joining an alias
// twice is a no-op; it reports whether the alias is joined afterwards.
func (in *Intent) AddJoin(target *schema.Descriptor, alias, left, right string) bool {
	if alias == "" {
		alias = target.Table
	}
	if _, ok := in.joined[alias]; ok {
		return alias != in.desc.Table
	}
	if in.sealed {
		return false
	}
	in.joined[alias] = target
	in.joins = append(in.joins, Join{Table: target.Table, Alias: alias, Left: left, Right: right})
	return true
}

// AddOrder appends an ORDER BY item on a known column.
func (in *Intent) AddOrder(table, column string, desc bool) bool {
	if in.sealed || !in.Knows(table, column) {
		return false
	}
	in.orders = append(in.orders, Order{Table: table, Column: column, Desc: desc})
	return true
}

// SetProjection selects base table columns. Unknown names are dropped; an
// empty result selects every column.
func (in *Intent) SetProjection(columns ...string) []string {
	if in.sealed {
		return in.columns
	}
	in.columns = in.columns[:0]
	for _, c := range columns {
		if in.desc.HasField(c) {
			in.columns = append(in.columns, in.desc.Qualify(c))
		}
	}
	return in.columns
}

func (in *Intent) SetSoftDeleteMode(mode SoftDeleteMode) {
	if in.sealed || !mode.IsValid() {
		return
	}
	in.mode = mode
}

// SetWindow applies raw skip/limit values. Non-positive values are ignored.
func (in *Intent) SetWindow(offset, limit int) {
	if in.sealed {
		return
	}
	if offset > 0 {
		in.offset = offset
	}
	if limit > 0 {
		in.limit = limit
	}
}

// Paginate fixes projection and the page window and seals the intent;
// further mutations are ignored.
func (in *Intent) Paginate(page, size int, columns ...string) *Intent {
	if in.sealed {
		return in
	}
	if len(columns) > 0 {
		in.SetProjection(columns...)
	}
	pr := types.NewPageRequest(page, size)
	in.offset = pr.GetOffset()
	in.limit = pr.GetPageSize()
	in.sealed = true
	return in
}

// Predicates returns the AND predicates, the tenant predicate first.
func (in *Intent) Predicates() []Predicate {
	out := make([]Predicate, 0, len(in.predicates)+1)
	if in.tenant != nil {
		out = append(out, *in.tenant)
	}
	return append(out, in.predicates...)
}

// AnyOf returns the OR group.
func (in *Intent) AnyOf() []Predicate { return append([]Predicate(nil), in.anyOf...) }

func (in *Intent) Joins() []Join { return append([]Join(nil), in.joins...) }

func (in *Intent) Orders() []Order { return append([]Order(nil), in.orders...) }

// Columns returns the qualified projection.
func (in *Intent) Columns() []string { return append([]string(nil), in.columns...) }

func (in *Intent) Mode() SoftDeleteMode { return in.mode }

// Window returns offset and limit; zero means unset.
func (in *Intent) Window() (offset, limit int) { return in.offset, in.limit }
