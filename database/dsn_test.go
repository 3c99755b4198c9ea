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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestNormalizeType(t *testing.T) {
	cases := map[string]string{
		"MySQL":      "mysql",
		"postgresql": "postgres",
		" postgres ": "postgres",
		"sqlite3":    "sqlite",
	}
	for in, want := range cases {
		got, ok := normalizeType(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := normalizeType("oracle")
	assert.False(t, ok)
}

func TestDataSource(t *testing.T) {
	t.Run("mysql", func(t *testing.T) {
		cfg := &ConnectionConfig{Type: "mysql", Host: "db", Port: 3306, Username: "app", Password: "secret", DBName: "crm", ConnectTimeout: 5 * time.Second}
		driver, dsn, d, err := dataSource(cfg)
		require.NoError(t, err)
		assert.Equal(t, "mysql", driver)
		assert.Equal(t, dialect.MySQL, d.Name())
		assert.Contains(t, dsn, "app:secret@tcp(db:3306)/crm?")
		assert.Contains(t, dsn, "parseTime=true")
		assert.Contains(t, dsn, "charset=utf8mb4")
		assert.Contains(t, dsn, "clientFoundRows=true")
	})

	t.Run("postgres", func(t *testing.T) {
		cfg := &ConnectionConfig{Type: "postgresql", Host: "db", Port: 5432, Username: "app", Password: "p@ss", DBName: "crm", ConnectTimeout: 10 * time.Second}
		driver, dsn, d, err := dataSource(cfg)
		require.NoError(t, err)
		assert.Equal(t, "postgres", driver)
		assert.Equal(t, dialect.PG, d.Name())
		assert.Equal(t, "postgres://app:p%40ss@db:5432/crm?connect_timeout=10&sslmode=disable", dsn)
	})

	t.Run("sqlite", func(t *testing.T) {
		driver, dsn, d, err := dataSource(&ConnectionConfig{Type: "sqlite", DBName: "local"})
		require.NoError(t, err)
		assert.Equal(t, sqliteshim.ShimName, driver)
		assert.Equal(t, dialect.SQLite, d.Name())
		assert.Equal(t, "local.db", dsn)

		assert.Equal(t, "file::memory:?cache=shared", sqliteDSN(&ConnectionConfig{DBName: ":memory:"}))
		assert.Equal(t, "data/app.db", sqliteDSN(&ConnectionConfig{DBName: "data/app.db"}))
	})

	t.Run("unsupported", func(t *testing.T) {
		_, _, _, err := dataSource(&ConnectionConfig{Type: "oracle"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database type")
	})
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "override")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90")
	t.Setenv("DB_ENABLE_METRICS", "true")
	t.Setenv("DB_SLOW_QUERY_MS", "250")

	cfg := DefaultConnectionConfig()
	overrideFromEnv(cfg)
	assert.Equal(t, "override", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.ConnMaxLifetime)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowQueryTime)
}

func TestFactoryRejectsUnknownType(t *testing.T) {
	f := NewDatabaseFactory()
	_, err := f.CreateFromConfig(&ConnectionConfig{Type: "oracle"})
	require.Error(t, err)
	_, err = f.CreateFromConfig(nil)
	require.Error(t, err)
	assert.Error(t, f.InitializeDatabase(t.Context()))
	assert.Nil(t, f.GetDB())
	assert.Equal(t, "Database manager not initialized", f.GetHealthStatus(t.Context()).LastError)
}
