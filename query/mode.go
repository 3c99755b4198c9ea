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

import "github.com/tomoncle/sieve/types"

// SoftDeleteMode selects which rows of a soft-deleting entity are visible.
type SoftDeleteMode int

const (
	ActiveOnly SoftDeleteMode = iota
	TrashedOnly
	IncludeAll
)

var _ types.BaseEnum = ActiveOnly

var softDeleteModeNames = [...]string{"active_only", "trashed_only", "include_all"}

var softDeleteModeDescs = [...]string{
	"rows without a deletion timestamp",
	"rows with a deletion timestamp",
	"every row",
}

func (m SoftDeleteMode) IsValid() bool { return m >= ActiveOnly && m <= IncludeAll }

func (m SoftDeleteMode) Number() int {
	if !m.IsValid() {
		return types.IllegalValue
	}
	return int(m)
}

func (m SoftDeleteMode) Name() string {
	if !m.IsValid() {
		return types.IllegalName
	}
	return softDeleteModeNames[m]
}

func (m SoftDeleteMode) Desc() string {
	if !m.IsValid() {
		return types.IllegalDesc
	}
	return softDeleteModeDescs[m]
}

func (m SoftDeleteMode) String() string { return m.Name() }

// VisibilityFrom reads the is_active parameter. Absent means every row.
// Only 1, true, on and yes count as true and keep current, which for a fresh
// intent is the active-only default; any other value means trashed rows only.
func VisibilityFrom(req types.Request, current SoftDeleteMode) SoftDeleteMode {
	if !req.Has(types.KeyIsActive) {
		return IncludeAll
	}
	if !req.Boolean(types.KeyIsActive) {
		return TrashedOnly
	}
	return current
}
