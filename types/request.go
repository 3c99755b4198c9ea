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

package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Reserved request keys. Every other key is treated as an entity field or a
// relation name.
const (
	KeyFields         = "fields"
	KeyOrder          = "order"
	KeyDirection      = "direction"
	KeyIsActive       = "is_active"
	KeyStartCreatedAt = "start_created_at"
	KeyEndCreatedAt   = "end_created_at"
	KeyStartUpdatedAt = "start_updated_at"
	KeyEndUpdatedAt   = "end_updated_at"
	KeySearch         = "search"
	KeyOperator       = "operator"
	KeyPage           = "page"
	KeyPerPage        = "per_page"
	KeyLimit          = "limit"
	KeySkip           = "skip"
	KeyNote           = "note"
	KeyModels         = "models"
)

var reservedKeys = map[string]struct{}{
	KeyFields: {}, KeyOrder: {}, KeyDirection: {}, KeyIsActive: {},
	KeyStartCreatedAt: {}, KeyEndCreatedAt: {}, KeyStartUpdatedAt: {}, KeyEndUpdatedAt: {},
	KeySearch: {}, KeyOperator: {}, KeyPage: {}, KeyPerPage: {}, KeyLimit: {}, KeySkip: {},
}

// IsReservedKey reports whether key is a control parameter rather than a field.
func IsReservedKey(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// Request is the flat key/value payload handed to the repository by the
// transport layer. Values are scalars, []any, []map[string]any or
// map[string]any for nested relation filters.
type Request map[string]any

// Has reports whether key is present, even with an empty value.
func (r Request) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Keys returns the request keys in lexical order.
func (r Request) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the scalar value of key as a string. Arrays and maps are
// reported as absent.
func (r Request) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return Scalar(v)
}

// Strings returns key as a list. Scalars are split on commas, arrays are
// converted element by element. Blank items are dropped.
func (r Request) Strings(key string) []string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	var raw []string
	switch t := v.(type) {
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if s, ok := Scalar(item); ok {
				raw = append(raw, s)
			}
		}
	default:
		s, ok := Scalar(v)
		if !ok {
			return nil
		}
		raw = strings.Split(s, ",")
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Int returns key as an integer, or def when absent or malformed.
func (r Request) Int(key string, def int) int {
	s, ok := r.String(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// Truthy applies loose truthiness: absent, nil, false, 0, "0", "" and
// "false" are false, everything else is true.
func (r Request) Truthy(key string) bool {
	return Truthy(r[key])
}

// Boolean applies the strict parse of the package-level Boolean to key.
func (r Request) Boolean(key string) bool {
	return Boolean(r[key])
}

// Map returns the nested map stored under key.
func (r Request) Map(key string) (map[string]any, bool) {
	switch t := r[key].(type) {
	case map[string]any:
		return t, true
	case Request:
		return t, true
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, v := range t {
			m[k] = v
		}
		return m, true
	}
	return nil, false
}

// Objects returns the list of nested objects stored under key, as sent for
// one-to-many relation payloads.
func (r Request) Objects(key string) ([]map[string]any, bool) {
	switch t := r[key].(type) {
	case []map[string]any:
		return t, true
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, m)
			case Request:
				out = append(out, m)
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// Values returns the array stored under key.
func (r Request) Values(key string) ([]any, bool) {
	switch t := r[key].(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []int64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

// Scalar formats a scalar value as a string.
func Scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	case bool:
		return strconv.FormatBool(t), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case fmt.Stringer:
		return t.String(), true
	}
	return "", false
}

// Boolean reports whether v is one of 1, true, on or yes, ignoring case
// and surrounding blanks. Anything else is false.
func Boolean(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	s, ok := Scalar(v)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Truthy reports the loose truthiness of v.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s != "" && s != "0" && s != "false"
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	s, ok := Scalar(v)
	if !ok {
		return true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return s != ""
}
