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

package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/sieve/query"
	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func newMockExecutor(t *testing.T) (Executor, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewBunExecutor(db), mock
}

// sqlLike matches the given fragments in order.
func sqlLike(fragments ...string) string {
	quoted := make([]string, len(fragments))
	for i, f := range fragments {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return strings.Join(quoted, ".*")
}

func descriptor(t *testing.T, name string) *schema.Descriptor {
	t.Helper()
	d, err := testRegistry(t).Get(name)
	require.NoError(t, err)
	return d
}

func TestBunExecutorUpdateHonoursScope(t *testing.T) {
	exec, mock := newMockExecutor(t)
	users := descriptor(t, "User")

	tenantID := int64(7)
	in := query.NewScoped(users, &tenantID)
	in.AddPredicate(query.Eq(users.Table, schema.ColumnID, int64(1)))

	mock.ExpectExec(sqlLike(
		`UPDATE "users"`,
		`SET "name" = 'Bia'`,
		`("users"."company_id" = 7)`,
		`("users"."id" = 1)`,
		`("users"."deleted_at" IS NULL)`,
	)).WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := exec.Update(context.Background(), in, types.Row{"name": "Bia"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBunExecutorInsertReturnsID(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery(sqlLike(`INSERT INTO "roles"`, `VALUES ('admin')`, `RETURNING "id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	id, err := exec.Insert(context.Background(), descriptor(t, "Role"), types.Row{"name": "admin"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}

func TestBunExecutorDelete(t *testing.T) {
	exec, mock := newMockExecutor(t)
	roles := descriptor(t, "Role")

	in := query.NewScoped(roles, nil)
	in.AddPredicate(query.In(roles.Table, schema.ColumnID, int64(3), int64(4)))

	mock.ExpectExec(sqlLike(`DELETE FROM "roles"`, `("roles"."id" IN (3, 4))`)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := exec.Delete(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBunExecutorRunInTxRollsBack(t *testing.T) {
	exec, mock := newMockExecutor(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := exec.RunInTx(context.Background(), func(ctx context.Context, tx Executor) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBunExecutorDescribe(t *testing.T) {
	exec, _ := newMockExecutor(t)
	users := descriptor(t, "User")

	tenantID := int64(7)
	in := query.NewScoped(users, &tenantID)
	in.Paginate(2, 10)

	sql := exec.Describe(in)
	assert.Contains(t, sql, `FROM "users"`)
	assert.Contains(t, sql, `LIMIT 10 OFFSET 10`)
}
