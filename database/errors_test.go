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

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsSqlError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		is   bool
		kind SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"no rows", fmt.Errorf("find: %w", sql.ErrNoRows), true, NoRowsErr},
		{"pq unique", &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}, true, DuplicateKeyErr},
		{"pq undefined table", &pq.Error{Code: "42P01", Message: `relation "users" does not exist`}, true, NoTableErr},
		{"pq unmapped", &pq.Error{Code: "40001", Message: "could not serialize access"}, true, UnknownErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, DuplicateKeyErr},
		{"mysql unknown column", fmt.Errorf("update: %w", &mysql.MySQLError{Number: 1054, Message: "Unknown column"}), true, NoColumnErr},
		{"mysql fk", &mysql.MySQLError{Number: 1217}, true, ForeignKeyViolationErr},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.email"), true, DuplicateKeyErr},
		{"sqlite no table", errors.New("no such table: posts"), true, NoTableErr},
		{"sqlite not null", errors.New("NOT NULL constraint failed: users.name"), true, NotNullViolationErr},
		{"other", errors.New("connection reset by peer"), false, UnknownErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			is, kind := IsSqlError(tc.err)
			assert.Equal(t, tc.is, is)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestSQLErrorString(t *testing.T) {
	assert.Equal(t, "duplicate_key", DuplicateKeyErr.String())
	assert.Equal(t, "invalid_type_cast", InvalidTypeCastErr.String())
	assert.Equal(t, "unknown", SQLError(99).String())
}
