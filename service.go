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

package sieve

import (
	"errors"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/tomoncle/sieve/database"
	"github.com/tomoncle/sieve/repository"
	"github.com/tomoncle/sieve/schema"
)

// ErrDatabaseNotInitialized is returned when the global connection is used
// before database.InitDB.
var ErrDatabaseNotInitialized = errors.New("database not initialized")

// Service hands out the repository of any registered entity.
type Service interface {
	// Repository returns the repository of entity, addressed by name or
	// table. Repositories are built once and shared.
	Repository(entity string) (repository.Repository, error)

	// Registry returns the entity descriptors the service serves.
	Registry() *schema.Registry

	// Models lists every registered entity for pickers.
	Models() []repository.ModelOption
}

type baseServiceImpl struct {
	reg   *schema.Registry
	opts  []repository.Option
	mu    sync.Mutex
	exec  repository.Executor
	repos *xsync.MapOf[string, repository.Repository]
}

// NewService returns a Service backed by the global database connection,
// resolved on first use.
func NewService(reg *schema.Registry, opts ...repository.Option) Service {
	return newBaseServiceImpl(reg, nil, opts)
}

// NewServiceWithExecutor returns a Service running on exec.
func NewServiceWithExecutor(reg *schema.Registry, exec repository.Executor, opts ...repository.Option) Service {
	return newBaseServiceImpl(reg, exec, opts)
}

func newBaseServiceImpl(reg *schema.Registry, exec repository.Executor, opts []repository.Option) *baseServiceImpl {
	return &baseServiceImpl{
		reg:   reg,
		opts:  opts,
		exec:  exec,
		repos: xsync.NewMapOf[string, repository.Repository](),
	}
}

func (s *baseServiceImpl) executor() (repository.Executor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exec == nil {
		db := database.GetDB()
		if db == nil {
			return nil, ErrDatabaseNotInitialized
		}
		s.exec = repository.NewBunExecutor(db)
	}
	return s.exec, nil
}

func (s *baseServiceImpl) Repository(entity string) (repository.Repository, error) {
	desc, err := s.reg.Get(entity)
	if err != nil {
		return nil, err
	}
	if repo, ok := s.repos.Load(desc.Name); ok {
		return repo, nil
	}
	exec, err := s.executor()
	if err != nil {
		return nil, err
	}
	repo, err := repository.NewRepository(s.reg, desc.Name, exec, s.opts...)
	if err != nil {
		return nil, err
	}
	actual, _ := s.repos.LoadOrStore(desc.Name, repo)
	return actual, nil
}

func (s *baseServiceImpl) Registry() *schema.Registry {
	return s.reg
}

func (s *baseServiceImpl) Models() []repository.ModelOption {
	return repository.ModelsOf(s.reg)
}
