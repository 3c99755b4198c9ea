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

package api

import (
	"context"
	"net/http"

	"github.com/tomoncle/sieve/query"
	"github.com/tomoncle/sieve/repository"
	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/types"
)

// stubRepo implements the repository calls the handlers make. Calls to
// anything else panic through the nil embedded interface.
type stubRepo struct {
	repository.Repository
	desc    *schema.Descriptor
	rows    map[int64]types.Row
	scope   repository.Scope
	req     types.Request
	page    [2]int
	note    string
	created types.Request
	err     error
}

func (r *stubRepo) Descriptor() *schema.Descriptor { return r.desc }

func (r *stubRepo) FindAllFieldsAnd(scope repository.Scope, req types.Request) (*query.Intent, error) {
	r.scope, r.req = scope, req
	return query.NewScoped(r.desc, scope.TenantID), nil
}

func (r *stubRepo) AdvancedSearch(scope repository.Scope, req types.Request) (*query.Intent, error) {
	r.scope, r.req = scope, req
	return query.NewScoped(r.desc, scope.TenantID), nil
}

func (r *stubRepo) Fetch(_ context.Context, _ *query.Intent, page, size int) (*types.Pagination[types.Row], error) {
	r.page = [2]int{page, size}
	p := types.NewDefaultPagination[types.Row](page, size)
	for _, row := range r.rows {
		p.Items = append(p.Items, row)
	}
	p.Total = len(p.Items)
	return p, nil
}

func (r *stubRepo) Find(_ context.Context, scope repository.Scope, id int64) (types.Row, error) {
	r.scope = scope
	row, ok := r.rows[id]
	if !ok {
		return nil, &repository.NotFoundError{Entity: r.desc.DisplayName(), ID: id}
	}
	return row, nil
}

func (r *stubRepo) Create(_ context.Context, scope repository.Scope, input types.Request) (types.Row, error) {
	r.scope, r.created = scope, input
	if r.err != nil {
		return nil, r.err
	}
	row := types.Row{"id": int64(99)}
	for k, v := range input {
		row[k] = v
	}
	return row, nil
}

func (r *stubRepo) Update(ctx context.Context, scope repository.Scope, input types.Request, id int64) (types.Row, error) {
	row, err := r.Find(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	for k, v := range input {
		row[k] = v
	}
	return row, nil
}

func (r *stubRepo) Delete(ctx context.Context, scope repository.Scope, id int64) error {
	_, err := r.Find(ctx, scope, id)
	return err
}

func (r *stubRepo) DeleteOrUndelete(ctx context.Context, scope repository.Scope, id int64, note string) (types.Result, error) {
	r.note = note
	if _, err := r.Find(ctx, scope, id); err != nil {
		return types.Result{Code: http.StatusNotFound, Message: repository.MsgNotFound(r.desc.DisplayName())}, nil
	}
	return types.Result{Code: http.StatusOK, Message: repository.MsgDeactivated(r.desc.DisplayName())}, nil
}

func (r *stubRepo) FlushCache(_ context.Context, req types.Request) map[string]string {
	out := map[string]string{}
	models, _ := req.Objects(types.KeyModels)
	for _, m := range models {
		name, _ := types.Scalar(m["name"])
		out[name] = repository.MsgCacheFlushed
	}
	return out
}

type stubService struct {
	reg   *schema.Registry
	repos map[string]*stubRepo
}

func newStubService() *stubService {
	reg := schema.MustNewRegistry(
		&schema.Descriptor{Name: "User", Table: "users", TenantScoped: true, SoftDeletes: true,
			Fields: map[string]schema.FieldType{"name": schema.String, "path": schema.String}},
		&schema.Descriptor{Name: "Role", Table: "roles", Label: "Perfil", Fields: map[string]schema.FieldType{"name": schema.String}},
	)
	svc := &stubService{reg: reg, repos: map[string]*stubRepo{}}
	for _, d := range reg.All() {
		svc.repos[d.Name] = &stubRepo{desc: d, rows: map[int64]types.Row{}}
	}
	return svc
}

func (s *stubService) Repository(entity string) (repository.Repository, error) {
	d, err := s.reg.Get(entity)
	if err != nil {
		return nil, err
	}
	return s.repos[d.Name], nil
}

func (s *stubService) Registry() *schema.Registry { return s.reg }

func (s *stubService) Models() []repository.ModelOption { return repository.ModelsOf(s.reg) }
