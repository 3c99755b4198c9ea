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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  addr: ":9090"
database:
  type: mysql
  host: db.internal
  port: 3306
  dbname: crm
  slow_query_time: 500ms
schema:
  file: /etc/sieve/entities.yaml
  validate_on_start: true
  concurrency: 8
auth:
  jwt_secret: s3cret
cache:
  ttl: 1m
metrics:
  prefix: crm
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sieve.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Database.SlowQueryTime)
	assert.Equal(t, 100, cfg.Database.MaxOpenConns)
	assert.Equal(t, "crm", cfg.Database.MetricsNamespace)
	assert.Equal(t, "/etc/sieve/entities.yaml", cfg.Schema.File)
	assert.True(t, cfg.Schema.ValidateOnStart)
	assert.Equal(t, 8, cfg.Schema.Concurrency)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SIEVE_DATABASE_HOST", "replica")
	t.Setenv("SIEVE_CACHE_ENABLED", "false")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "replica", cfg.Database.Host)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "sieve", cfg.Database.MetricsNamespace)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Auth.AllowAnonymous)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SIEVE_LOG_LEVEL=debug\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("SIEVE_LOG_LEVEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConfigLoader(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Type = "sqlite"
	cfg.Schema.Concurrency = 2
	dbCfg := cfg.ConfigLoader()
	assert.Equal(t, "sqlite", dbCfg.ConnectionConfig.Type)
	assert.Equal(t, 2, dbCfg.SchemaCheckConfig.Concurrency)
}
