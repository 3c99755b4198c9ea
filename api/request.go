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
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tomoncle/sieve/types"
)

// nestedKey matches "outer[inner]" and "outer[inner][]".
var nestedKey = regexp.MustCompile(`^([A-Za-z0-9_.]+)\[([A-Za-z0-9_.]+)\](\[\])?$`)

// parseQuery turns query parameters into a request. Repeated keys and keys
// ending in "[]" become arrays; "rel[field]=v" and "operator[field]=op"
// become nested maps.
func parseQuery(values url.Values) types.Request {
	req := types.Request{}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		if m := nestedKey.FindStringSubmatch(key); m != nil {
			outer, _ := req[m[1]].(map[string]any)
			if outer == nil {
				outer = map[string]any{}
				req[m[1]] = outer
			}
			outer[m[2]] = paramValue(vals, m[3] != "")
			continue
		}
		if name, ok := strings.CutSuffix(key, "[]"); ok {
			req[name] = paramValue(vals, true)
			continue
		}
		req[key] = paramValue(vals, false)
	}
	return req
}

func paramValue(vals []string, list bool) any {
	if !list && len(vals) == 1 {
		return vals[0]
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// bindRequest decodes a JSON object body. An empty body yields an empty
// request.
func bindRequest(c echo.Context) (types.Request, error) {
	req := types.Request{}
	body := c.Request().Body
	if body == nil {
		return req, nil
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return req, nil
}
