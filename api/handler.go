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
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/tomoncle/sieve/database"
	"github.com/tomoncle/sieve/query"
	"github.com/tomoncle/sieve/repository"
	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/types"
)

const (
	msgInternal  = "internal server error"
	msgDuplicate = "record already exists"
	msgBadBody   = "request body must be a JSON object"
	msgBadID     = "invalid id"
)

// resolve returns the repository named by the :entity parameter and the
// caller's scope.
func (s *Server) resolve(c echo.Context) (repository.Repository, repository.Scope, error) {
	scope, err := scopeFrom(c)
	if err != nil {
		return nil, scope, err
	}
	repo, err := s.svc.Repository(c.Param("entity"))
	return repo, scope, err
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// fail maps an error to a response. Driver messages never reach the client.
func (s *Server) fail(c echo.Context, err error) error {
	log := loggerFrom(c, s.log).WithError(err)
	var nf *repository.NotFoundError
	switch {
	case errors.As(err, &nf):
		return sendError(c, nf.Error(), http.StatusNotFound)
	case schema.IsConfigurationError(err):
		var ce *schema.ConfigurationError
		if errors.As(err, &ce) && ce.Reason == schema.ReasonUnknownEntity {
			return sendError(c, repository.MsgNotFound(ce.Entity), http.StatusNotFound)
		}
		log.Error("Schema configuration error")
		return sendError(c, msgInternal, http.StatusInternalServerError)
	}
	if is, kind := database.IsSqlError(err); is {
		log = log.WithField("sql_error", kind.String())
		if kind == database.DuplicateKeyErr {
			log.Warn("Duplicate record rejected")
			return sendError(c, msgDuplicate, http.StatusConflict)
		}
	}
	log.Error("Request failed")
	return sendError(c, msgInternal, http.StatusInternalServerError)
}

func (s *Server) page(c echo.Context, repo repository.Repository, in *query.Intent, req types.Request) error {
	pr := types.PageRequestFrom(req)
	result, err := repo.Fetch(c.Request().Context(), in, pr.GetPage(), pr.GetPageSize())
	if err != nil {
		return s.fail(c, err)
	}
	return sendResponse(c, result.AsMap(c.Request().URL.Path), "")
}

// Index lists rows matching every field filter of the query string.
func (s *Server) Index(c echo.Context) error {
	repo, scope, err := s.resolve(c)
	if err != nil {
		return s.fail(c, err)
	}
	req := parseQuery(c.QueryParams())
	in, err := repo.FindAllFieldsAnd(scope, req)
	if err != nil {
		return s.fail(c, err)
	}
	return s.page(c, repo, in, req)
}

// Search matches the search term against searchable fields and relations.
func (s *Server) Search(c echo.Context) error {
	repo, scope, err := s.resolve(c)
	if err != nil {
		return s.fail(c, err)
	}
	req := parseQuery(c.QueryParams())
	in, err := repo.AdvancedSearch(scope, req)
	if err != nil {
		return s.fail(c, err)
	}
	loggerFrom(c, s.log).WithField("tenant", describeScope(scope)).Debug("advanced search")
	return s.page(c, repo, in, req)
}

func (s *Server) Show(c echo.Context) error {
	repo, scope, err := s.resolve(c)
	if err != nil {
		return s.fail(c, err)
	}
	id, ok := pathID(c)
	if !ok {
		return sendError(c, msgBadID, http.StatusBadRequest)
	}
	row, err := repo.Find(c.Request().Context(), scope, id)
	if err != nil {
		return s.fail(c, err)
	}
	return sendRow(c, row)
}

func (s *Server) Store(c echo.Context) error {
	repo, scope, err := s.resolve(c)
	if err != nil {
		return s.fail(c, err)
	}
	input, err := bindRequest(c)
	if err != nil {
		return sendError(c, msgBadBody, http.StatusBadRequest)
	}
	row, err := repo.Create(c.Request().Context(), scope, input)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, types.Envelope{Data: row})
}

func (s *Server) Update(c echo.Context) error {
	repo, scope, err := s.resolve(c)
	if err != nil {
		return s.fail(c, err)
	}
	id, ok := pathID(c)
	if !ok {
		return sendError(c, msgBadID, http.StatusBadRequest)
	}
	input, err := bindRequest(c)
	if err != nil {
		return sendError(c, msgBadBody, http.StatusBadRequest)
	}
	row, err := repo.Update(c.Request().Context(), scope, input, id)
	if err != nil {
		return s.fail(c, err)
	}
	return sendRow(c, row)
}

func (s *Server) Destroy(c echo.Context) error {
	repo, scope, err := s.resolve(c)
	if err != nil {
		return s.fail(c, err)
	}
	id, ok := pathID(c)
	if !ok {
		return sendError(c, msgBadID, http.StatusBadRequest)
	}
	if err := repo.Delete(c.Request().Context(), scope, id); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Toggle deactivates an active row or reactivates a deactivated one. The
// body may carry a note.
func (s *Server) Toggle(c echo.Context) error {
	repo, scope, err := s.resolve(c)
	if err != nil {
		return s.fail(c, err)
	}
	id, ok := pathID(c)
	if !ok {
		return sendError(c, msgBadID, http.StatusBadRequest)
	}
	input, err := bindRequest(c)
	if err != nil {
		return sendError(c, msgBadBody, http.StatusBadRequest)
	}
	note, _ := input.String(types.KeyNote)
	result, err := repo.DeleteOrUndelete(c.Request().Context(), scope, id, note)
	if err != nil {
		return s.fail(c, err)
	}
	if !result.OK() {
		return sendError(c, result.Message, result.Code)
	}
	return sendResponse(c, nil, result.Message)
}

func (s *Server) Models(c echo.Context) error {
	return sendResponse(c, s.svc.Models(), "")
}

// FlushCache drops cached pages of the entities listed under "models".
func (s *Server) FlushCache(c echo.Context) error {
	input, err := bindRequest(c)
	if err != nil {
		return sendError(c, msgBadBody, http.StatusBadRequest)
	}
	names := s.svc.Registry().Names()
	if len(names) == 0 {
		return sendError(c, repository.MsgNoCache, http.StatusNotFound)
	}
	repo, err := s.svc.Repository(names[0])
	if err != nil {
		return s.fail(c, err)
	}
	results := repo.FlushCache(c.Request().Context(), input)
	return sendResponse(c, results, repository.MsgCacheFlushed)
}
