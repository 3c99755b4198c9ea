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

// prepare runs the steps shared by both pipelines: visibility, projection
// and date windows.
func prepare(desc *schema.Descriptor, tenantID *int64, req types.Request) *Intent {
	in := NewScoped(desc, tenantID)
	in.SetSoftDeleteMode(VisibilityFrom(req, in.Mode()))
	if fields := req.Strings(types.KeyFields); len(fields) > 0 {
		in.SetProjection(fields...)
	}
	in.AddPredicates(CompileDateFilters(desc, req)...)
	return in
}

// CompileAnd builds the intent for a filtered listing: every field and
// relation filter in req must hold.
func CompileAnd(reg *schema.Registry, desc *schema.Descriptor, tenantID *int64, req types.Request) (*Intent, error) {
	in := prepare(desc, tenantID, req)
	rels, err := CompileRelationFilters(reg, desc, req)
	if err != nil {
		return nil, err
	}
	in.AddPredicates(rels...)
	in.AddPredicates(CompileFieldFilters(desc, req)...)
	if err := CompileOrder(reg, in, req.Strings(types.KeyOrder), req.Strings(types.KeyDirection)); err != nil {
		return nil, err
	}
	return in, nil
}

// CompileSearch builds the intent for free-text search: the search term is
// matched against string searchable fields and relation display fields, any
// one of which may hold.
func CompileSearch(reg *schema.Registry, desc *schema.Descriptor, tenantID *int64, req types.Request) (*Intent, error) {
	in := prepare(desc, tenantID, req)
	term, _ := req.String(types.KeySearch)
	rels, err := CompileRelationSearch(reg, desc, term)
	if err != nil {
		return nil, err
	}
	in.AddAny(CompileSearchFilter(desc, term)...)
	in.AddAny(rels...)
	if err := CompileOrder(reg, in, req.Strings(types.KeyOrder), req.Strings(types.KeyDirection)); err != nil {
		return nil, err
	}
	return in, nil
}
