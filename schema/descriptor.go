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

package schema

import (
	"sort"
	"time"

	"github.com/go-openapi/inflect"
)

// Conventional column names shared by every entity.
const (
	ColumnID        = "id"
	ColumnTenant    = "company_id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
	ColumnDeletedAt = "deleted_at"
	ColumnDeletedBy = "deleted_by"
	ColumnCreatedBy = "created_by"
	ColumnUpdatedBy = "updated_by"
	ColumnNote      = "note"

	DefaultDisplayField = "name"
)

// Descriptor is the static metadata of one entity. Descriptors are
// immutable once registered.
type Descriptor struct {
	// Name is the singular entity name, e.g. "User".
	Name string
	// Table is the physical relation name.
	Table string
	// Label is the human readable name used in messages. Defaults to Name.
	Label string
	// Fields maps column name to type tag.
	Fields map[string]FieldType
	// TenantScoped rows carry ColumnTenant and are always filtered by it.
	TenantScoped bool
	// SoftDeletes rows are marked with ColumnDeletedAt instead of removed.
	SoftDeletes bool
	// Searchable fields are eligible for generic filtering, ordering and
	// free-text search.
	Searchable []string
	Relations  []Relation
	// DisplayField is matched by free-text search through relations.
	DisplayField string
	// Cached entities keep query results in the query cache.
	Cached   bool
	CacheTTL time.Duration

	searchable map[string]struct{}
	relations  map[string]*Relation
}

// FieldType returns the type tag of a column.
func (d *Descriptor) FieldType(column string) (FieldType, bool) {
	t, ok := d.Fields[column]
	return t, ok
}

// HasField reports whether column is declared.
func (d *Descriptor) HasField(column string) bool {
	_, ok := d.Fields[column]
	return ok
}

// IsSearchable reports whether column is in the searchable set.
func (d *Descriptor) IsSearchable(column string) bool {
	if d.searchable != nil {
		_, ok := d.searchable[column]
		return ok
	}
	for _, s := range d.Searchable {
		if s == column {
			return true
		}
	}
	return false
}

// Relation looks up a declared relation by name, case-normalized.
func (d *Descriptor) Relation(name string) (*Relation, bool) {
	name = NormalizeName(name)
	if d.relations != nil {
		r, ok := d.relations[name]
		return r, ok
	}
	for i := range d.Relations {
		if d.Relations[i].Name == name {
			return &d.Relations[i], true
		}
	}
	return nil, false
}

// RelationsOf returns the declared relations of the given kind in
// declaration order.
func (d *Descriptor) RelationsOf(kind RelationKind) []Relation {
	var out []Relation
	for _, r := range d.Relations {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Columns returns the declared column names in lexical order.
func (d *Descriptor) Columns() []string {
	cols := make([]string, 0, len(d.Fields))
	for c := range d.Fields {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// ModelName is the singular studly name of the table, e.g. "OrderItem" for
// "order_items".
func (d *Descriptor) ModelName() string {
	return inflect.Camelize(inflect.Singularize(d.Table))
}

// DisplayName is the label used in user-facing messages.
func (d *Descriptor) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	if d.Name != "" {
		return d.Name
	}
	return d.ModelName()
}

// Qualify prefixes column with the table name.
func (d *Descriptor) Qualify(column string) string {
	return d.Table + "." + column
}

// normalize fills defaults and implicit columns and builds the lookup indexes.
func (d *Descriptor) normalize() {
	if d.Name == "" {
		d.Name = d.ModelName()
	}
	if d.Fields == nil {
		d.Fields = map[string]FieldType{}
	}
	implicit := map[string]FieldType{
		ColumnID:        Integer,
		ColumnCreatedAt: DateTime,
		ColumnUpdatedAt: DateTime,
	}
	if d.SoftDeletes {
		implicit[ColumnDeletedAt] = DateTime
		implicit[ColumnDeletedBy] = Integer
	}
	if d.TenantScoped {
		implicit[ColumnTenant] = Integer
	}
	for c, t := range implicit {
		if _, ok := d.Fields[c]; !ok {
			d.Fields[c] = t
		}
	}
	if d.DisplayField == "" {
		d.DisplayField = DefaultDisplayField
	}
	d.searchable = make(map[string]struct{}, len(d.Searchable))
	for _, s := range d.Searchable {
		d.searchable[s] = struct{}{}
	}
	d.relations = make(map[string]*Relation, len(d.Relations))
	for i := range d.Relations {
		d.Relations[i].Name = NormalizeName(d.Relations[i].Name)
		d.relations[d.Relations[i].Name] = &d.Relations[i]
	}
}
