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

const (
	dayLayout = "2006-01-02"
	dayStart  = " 00:00:00"
	// dayEnd stops at minute 59 with zero seconds; stored bounds depend on it.
	dayEnd = " 23:59:00"
)

type dateWindow struct {
	start, end, column string
}

var dateWindows = []dateWindow{
	{types.KeyStartCreatedAt, types.KeyEndCreatedAt, schema.ColumnCreatedAt},
	{types.KeyStartUpdatedAt, types.KeyEndUpdatedAt, schema.ColumnUpdatedAt},
}

// CompileDateFilters reads the created/updated date windows. Both bounds
// give a closed interval over whole days; a start bound alone matches that
// day; an end bound alone is ignored.
func CompileDateFilters(desc *schema.Descriptor, req types.Request) []Predicate {
	var out []Predicate
	for _, w := range dateWindows {
		if !desc.HasField(w.column) {
			continue
		}
		start, ok := day(req, w.start)
		if !ok {
			continue
		}
		if end, ok := day(req, w.end); ok {
			out = append(out, Between(desc.Table, w.column, start+dayStart, end+dayEnd))
			continue
		}
		out = append(out, OnDate(desc.Table, w.column, start))
	}
	return out
}

func day(req types.Request, key string) (string, bool) {
	s, ok := req.String(key)
	if !ok {
		return "", false
	}
	t, ok := ParseTimestamp(s)
	if !ok {
		return "", false
	}
	return t.Format(dayLayout), true
}
