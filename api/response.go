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
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tomoncle/sieve/types"
)

// sendResponse writes {message, data} with status 200, minus the paginator
// link fields.
func sendResponse(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, types.NewEnvelope(data, message))
}

// sendRow writes one row as is; rows may hold columns named like paginator
// links.
func sendRow(c echo.Context, row types.Row) error {
	return c.JSON(http.StatusOK, types.Envelope{Data: row})
}

// sendError writes {error}; a zero code means 404.
func sendError(c echo.Context, message string, code int) error {
	if code == 0 {
		code = http.StatusNotFound
	}
	return c.JSON(code, types.ErrorEnvelope{Error: message})
}
