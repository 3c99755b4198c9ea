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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/sieve/types"
)

func TestSplitRange(t *testing.T) {
	tests := []struct {
		in        string
		low, high string
		ok        bool
	}{
		{"10-20", "10", "20", true},
		{"10:20", "10", "20", true},
		{"1.5-3.5", "1.5", "3.5", true},
		{"-5", "", "", false},
		{"5-", "", "", false},
		{"42", "", "", false},
		{"2024-01-01", "2024", "01-01", true},
	}
	for _, tt := range tests {
		low, high, ok := SplitRange(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.low, low, tt.in)
		assert.Equal(t, tt.high, high, tt.in)
	}
}

func TestIsRangeFavorsTimestamps(t *testing.T) {
	tests := map[string]bool{
		"10-20":                false,
		"2024-01-01":           true,
		"2024-1-5":             true,
		"2024-01-01 10:30:00":  true,
		"2024-01-01T10:30:00Z": true,
		"01/02/2024":           true,
		"10:20":                false,
		"abc":                  false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsTimestamp(in), in)
	}
	assert.True(t, IsRange("10-20"))
	assert.True(t, IsRange("10:20"))
	assert.False(t, IsRange("2024-01-01"))
	assert.False(t, IsRange("2024-01-01 10:30:00"))
}

func TestCompileFieldFiltersDispatchesOnType(t *testing.T) {
	reg := testRegistry(t)
	desc := users(t, reg)

	got := CompileFieldFilters(desc, types.Request{
		"active":     "1",
		"age":        "18-30",
		"birth_date": "2024-01-01",
		"name":       "Jo",
		"team_id":    []any{1, 2},
	})
	require.Len(t, got, 5)

	assert.Equal(t, Eq("users", "active", true), got[0])
	assert.Equal(t, Between("users", "age", "18", "30"), got[1])
	assert.Equal(t, OpEq, got[2].Operator)
	assert.Equal(t, []any{"2024-01-01"}, got[2].Values)
	assert.Equal(t, Like("users", "name", "Jo"), got[3])
	assert.Equal(t, []any{"%Jo%"}, got[3].Values)
	assert.Equal(t, In("users", "team_id", 1, 2), got[4])
}

func TestCompileFieldFiltersDropsUnknownFields(t *testing.T) {
	reg := testRegistry(t)
	desc := users(t, reg)

	got := CompileFieldFilters(desc, types.Request{
		"nickname":   "x",
		"company_id": 99,
		"posts":      map[string]any{"title": "go"},
		"page":       2,
		"search":     "jo",
		"order":      "name",
		"deleted_at": nil,
	})
	assert.Empty(t, got)
}

func TestCompileFieldFiltersOperatorOverride(t *testing.T) {
	reg := testRegistry(t)
	desc := users(t, reg)

	got := CompileFieldFilters(desc, types.Request{
		"age":      "18",
		"team_id":  "3",
		"operator": map[string]any{"age": ">=", "team_id": "1; DROP TABLE users"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, ">=", got[0].Comparator)
	assert.Equal(t, "=", got[1].Comparator)
}

func TestCompileSearchFilterUsesStringSearchableFields(t *testing.T) {
	reg := testRegistry(t)
	desc := users(t, reg)

	got := CompileSearchFilter(desc, " ana ")
	require.Len(t, got, 2)
	assert.Equal(t, Like("users", "name", "ana"), got[0])
	assert.Equal(t, Like("users", "email", "ana"), got[1])

	assert.Nil(t, CompileSearchFilter(desc, "  "))
}

func TestCompileSearchable(t *testing.T) {
	reg := testRegistry(t)
	desc := users(t, reg)

	got := CompileSearchable(desc, map[string]any{"name": "Ana", "team_id": 3, "age": 30})
	require.Len(t, got, 2)
	assert.Equal(t, Eq("users", "age", 30), got[0])
	assert.Equal(t, Eq("users", "name", "Ana"), got[1])
}

func TestComparatorWhitelist(t *testing.T) {
	assert.Equal(t, "<>", Comparator("!="))
	assert.Equal(t, "<=", Comparator(" LTE "))
	assert.Equal(t, "=", Comparator("LIKE"))
	assert.Equal(t, "=", Comparator(""))
}
