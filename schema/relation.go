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
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/tomoncle/sieve/types"
)

// RelationKind is the association shape between an owner and a target entity.
type RelationKind int

const (
	HasMany RelationKind = iota
	BelongsTo
	BelongsToMany
)

var relationKindNames = [...]string{"has_many", "belongs_to", "belongs_to_many"}

var relationKindDescs = [...]string{
	"target rows carry the owner key",
	"owner row carries the target key",
	"rows are linked through a pivot table",
}

// RelationKinds lists every valid relation kind.
func RelationKinds() []RelationKind {
	return []RelationKind{HasMany, BelongsTo, BelongsToMany}
}

func (k RelationKind) IsValid() bool { return k >= HasMany && k <= BelongsToMany }

func (k RelationKind) Number() int {
	if !k.IsValid() {
		return types.IllegalValue
	}
	return int(k)
}

func (k RelationKind) Name() string {
	if !k.IsValid() {
		return types.IllegalName
	}
	return relationKindNames[k]
}

func (k RelationKind) Desc() string {
	if !k.IsValid() {
		return types.IllegalDesc
	}
	return relationKindDescs[k]
}

func (k RelationKind) String() string { return k.Name() }

// Relation is a named association declared on a descriptor.
//
// For HasMany, ForeignKey is the column on the target table pointing at the
// owner. For BelongsTo, ForeignKey is the column on the owner table pointing
// at the target. For BelongsToMany, Pivot links PivotForeignKey (owner) and
// PivotRelatedKey (target).
type Relation struct {
	Name            string
	Kind            RelationKind
	Target          string
	ForeignKey      string
	Pivot           string
	PivotForeignKey string
	PivotRelatedKey string
}

// NormalizeName converts a relation or request key to its snake case form so
// "relatedItems" and "related_items" address the same relation.
func NormalizeName(name string) string {
	return inflect.Underscore(strings.TrimSpace(name))
}

// PivotName is the conventional pivot table for two tables: the singular
// forms in lexical order joined by an underscore.
func PivotName(a, b string) string {
	names := []string{inflect.Singularize(a), inflect.Singularize(b)}
	sort.Strings(names)
	return names[0] + "_" + names[1]
}
