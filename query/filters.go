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
	"time"

	"github.com/jinzhu/now"
	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/types"
)

// pointInTime lists the layouts accepted as an absolute date or timestamp.
// Every layout carries a full date so plain numeric ranges never match.
var pointInTime = &now.Config{
	TimeLocation: time.UTC,
	TimeFormats: []string{
		"2006-1-2",
		"2006-1-2 15:4",
		"2006-1-2 15:4:5",
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05.999999999",
		"2006/1/2",
		"2006/1/2 15:4:5",
		"1/2/2006",
		"1/2/2006 15:4:5",
		"2006.1.2",
		"2006.1.2 15:4:5",
	},
}

// ParseTimestamp parses s as an absolute point in time.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := pointInTime.Parse(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsTimestamp reports whether s is an absolute date or timestamp.
func IsTimestamp(s string) bool {
	_, ok := ParseTimestamp(s)
	return ok
}

// SplitRange splits a two-part range value. A colon wins over a dash; with
// a dash only the first one separates the bounds. Both bounds must be
// non-empty, so "-5" is not a range.
func SplitRange(s string) (low, high string, ok bool) {
	sep := "-"
	if strings.Contains(s, ":") {
		sep = ":"
	}
	low, high, found := strings.Cut(s, sep)
	low, high = strings.TrimSpace(low), strings.TrimSpace(high)
	if !found || low == "" || high == "" {
		return "", "", false
	}
	return low, high, true
}

// IsRange reports whether s is an inclusive range rather than a single
// value. Timestamps are never ranges even though they contain delimiters.
func IsRange(s string) bool {
	if _, _, ok := SplitRange(s); !ok {
		return false
	}
	return !IsTimestamp(s)
}

// CompileFieldFilters turns the entity-field keys of req into predicates, in
// key order. Reserved keys, relation keys, the tenant column and undeclared
// fields are skipped.
func CompileFieldFilters(desc *schema.Descriptor, req types.Request) []Predicate {
	operators, _ := req.Map(types.KeyOperator)
	var out []Predicate
	for _, key := range req.Keys() {
		if types.IsReservedKey(key) {
			continue
		}
		if _, ok := desc.Relation(key); ok {
			continue
		}
		if desc.TenantScoped && key == schema.ColumnTenant {
			continue
		}
		ft, ok := desc.FieldType(key)
		if !ok {
			continue
		}
		op := ""
		if operators != nil {
			op, _ = types.Scalar(operators[key])
		}
		if p, ok := fieldPredicate(desc.Table, key, ft, req[key], op); ok {
			out = append(out, p)
		}
	}
	return out
}

// fieldPredicate dispatches on the field type. Arrays become IN lists on any
// type.
func fieldPredicate(table, column string, ft schema.FieldType, value any, op string) (Predicate, bool) {
	if value == nil {
		return Predicate{}, false
	}
	if values, ok := (types.Request{column: value}).Values(column); ok {
		if len(values) == 0 {
			return Predicate{}, false
		}
		return In(table, column, values...), true
	}
	s, ok := types.Scalar(value)
	if !ok {
		return Predicate{}, false
	}
	switch ft {
	case schema.String:
		return Like(table, column, s), true
	case schema.Boolean:
		return Eq(table, column, types.Truthy(value)), true
	}
	if low, high, ok := SplitRange(s); ok && !IsTimestamp(s) {
		return Between(table, column, low, high), true
	}
	return Compare(table, column, op, value), true
}

// CompileSearchFilter ORs a substring match of term over every string-typed
// searchable field. An empty term yields nothing.
func CompileSearchFilter(desc *schema.Descriptor, term string) []Predicate {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	var out []Predicate
	for _, col := range desc.Searchable {
		if ft, ok := desc.FieldType(col); ok && ft == schema.String {
			out = append(out, Like(desc.Table, col, term))
		}
	}
	return out
}

// CompileSearchable applies equality filters on searchable fields only, with
// no type dispatch.
func CompileSearchable(desc *schema.Descriptor, filters map[string]any) []Predicate {
	var out []Predicate
	for _, key := range (types.Request(filters)).Keys() {
		v := filters[key]
		if v == nil || !desc.IsSearchable(key) {
			continue
		}
		out = append(out, Eq(desc.Table, key, v))
	}
	return out
}
