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
	"github.com/tomoncle/sieve/types"
)

// relationAlias names the related table inside a sub-query or join.
func relationAlias(owner *schema.Descriptor, rel schema.Relation) string {
	if rel.Name == owner.Table {
		return rel.Name + "_rel"
	}
	return rel.Name
}

func newSubquery(reg *schema.Registry, owner *schema.Descriptor, rel schema.Relation) (*Subquery, error) {
	target, err := reg.Target(&rel)
	if err != nil {
		return nil, err
	}
	return &Subquery{
		Relation: rel,
		Owner:    owner,
		Target:   target,
		Alias:    relationAlias(owner, rel),
	}, nil
}

// CompileRelationFilters reads nested relation filters, e.g.
// {"posts": {"title": "go"}}, and returns one correlated EXISTS per
// relation-field pair. Fields the related entity does not declare are
// dropped.
func CompileRelationFilters(reg *schema.Registry, desc *schema.Descriptor, req types.Request) ([]Predicate, error) {
	var out []Predicate
	for _, key := range req.Keys() {
		rel, ok := desc.Relation(key)
		if !ok {
			continue
		}
		fields, ok := req.Map(key)
		if !ok {
			continue
		}
		for _, field := range (types.Request(fields)).Keys() {
			sub, err := newSubquery(reg, desc, *rel)
			if err != nil {
				return nil, err
			}
			p, ok := relationPredicate(sub, field, fields[field])
			if !ok {
				continue
			}
			sub.Predicates = []Predicate{p}
			out = append(out, Exists(sub))
		}
	}
	return out, nil
}

func relationPredicate(sub *Subquery, field string, value any) (Predicate, bool) {
	ft, ok := sub.Target.FieldType(field)
	if !ok || value == nil {
		return Predicate{}, false
	}
	if values, ok := (types.Request{field: value}).Values(field); ok {
		if len(values) == 0 {
			return Predicate{}, false
		}
		return In(sub.Alias, field, values...), true
	}
	s, ok := types.Scalar(value)
	if !ok {
		return Predicate{}, false
	}
	if ft == schema.String {
		return Like(sub.Alias, field, s), true
	}
	return Eq(sub.Alias, field, value), true
}

// CompileRelationSearch returns one correlated EXISTS per declared relation
// whose display field is a string, matching term by substring. The caller
// ORs them.
func CompileRelationSearch(reg *schema.Registry, desc *schema.Descriptor, term string) ([]Predicate, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	var out []Predicate
	for _, rel := range desc.Relations {
		sub, err := newSubquery(reg, desc, rel)
		if err != nil {
			return nil, err
		}
		if ft, ok := sub.Target.FieldType(sub.Target.DisplayField); !ok || ft != schema.String {
			continue
		}
		sub.Predicates = []Predicate{Like(sub.Alias, sub.Target.DisplayField, term)}
		out = append(out, Exists(sub))
	}
	return out, nil
}
