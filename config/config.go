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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tomoncle/sieve/database"
)

const (
	envPrefix      = "SIEVE"
	configFileName = "sieve"
	configFileType = "yaml"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Env  string `mapstructure:"env"`
}

// SchemaConfig locates the entity descriptor file and controls the check
// against the live database.
type SchemaConfig struct {
	File                       string `mapstructure:"file"`
	database.SchemaCheckConfig `mapstructure:",squash"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds bearer token settings. AllowAnonymous lets requests
// without a token through with an empty scope, which disables tenant
// filtering; keep it off outside development.
type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	AllowAnonymous bool   `mapstructure:"allow_anonymous"`
}

// CacheConfig controls the query result cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// MetricsConfig holds prometheus settings.
type MetricsConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig              `mapstructure:"server"`
	Database database.ConnectionConfig `mapstructure:"database"`
	Schema   SchemaConfig              `mapstructure:"schema"`
	Log      LogConfig                 `mapstructure:"log"`
	Auth     AuthConfig                `mapstructure:"auth"`
	Cache    CacheConfig               `mapstructure:"cache"`
	Metrics  MetricsConfig             `mapstructure:"metrics"`
}

var _ database.AbstractDatabaseConfigProvider = (*Config)(nil)

func setDefaults(v *viper.Viper) {
	db := database.DefaultConnectionConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.env", "development")

	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "sieve")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", db.MaxIdleConns)
	v.SetDefault("database.max_open_conns", db.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", db.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", db.ConnMaxIdleTime)
	v.SetDefault("database.connect_timeout", db.ConnectTimeout)
	v.SetDefault("database.read_timeout", db.ReadTimeout)
	v.SetDefault("database.write_timeout", db.WriteTimeout)
	v.SetDefault("database.enable_reconnect", db.EnableReconnect)
	v.SetDefault("database.reconnect_interval", db.ReconnectInterval)
	v.SetDefault("database.max_reconnect_tries", db.MaxReconnectTries)
	v.SetDefault("database.health_check_interval", db.HealthCheckInterval)
	v.SetDefault("database.enable_query_log", db.EnableQueryLog)
	v.SetDefault("database.slow_query_time", db.SlowQueryTime)
	v.SetDefault("database.enable_metrics", true)
	v.SetDefault("database.metrics_namespace", "")

	v.SetDefault("schema.file", "entities.yaml")
	v.SetDefault("schema.validate_on_start", false)
	v.SetDefault("schema.concurrency", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.allow_anonymous", false)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("metrics.prefix", "sieve")
}

// Load reads .env (when present), then the YAML file at path, then SIEVE_*
// environment variables, e.g. SIEVE_DATABASE_HOST for database.host. An
// empty path looks for ./sieve.yaml and tolerates its absence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Database.MetricsNamespace == "" {
		cfg.Database.MetricsNamespace = cfg.Metrics.Prefix
	}
	return cfg, nil
}

// ConfigLoader returns the database part of the configuration.
func (c *Config) ConfigLoader() *database.Config {
	return &database.Config{
		ConnectionConfig:  c.Database,
		SchemaCheckConfig: c.Schema.SchemaCheckConfig,
	}
}
