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
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

var supportedTypes = []string{"mysql", "postgres", "sqlite"}

// normalizeType maps driver aliases onto the supported type names.
func normalizeType(typ string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "mysql":
		return "mysql", true
	case "postgres", "postgresql":
		return "postgres", true
	case "sqlite", "sqlite3":
		return "sqlite", true
	}
	return "", false
}

// dataSource returns the database/sql driver name, the DSN and the bun
// dialect for cfg.
func dataSource(cfg *ConnectionConfig) (driver, dsn string, dialect schema.Dialect, err error) {
	typ, ok := normalizeType(cfg.Type)
	if !ok {
		return "", "", nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, supportedTypes)
	}
	switch typ {
	case "mysql":
		return "mysql", mysqlDSN(cfg), mysqldialect.New(), nil
	case "postgres":
		return "postgres", postgresDSN(cfg), pgdialect.New(), nil
	default:
		return sqliteshim.ShimName, sqliteDSN(cfg), sqlitedialect.New(), nil
	}
}

func mysqlDSN(cfg *ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	// Affected-row counts then include matched but unchanged rows, as on
	// Postgres and SQLite.
	mc.ClientFoundRows = true
	mc.Loc = time.Local
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// sqliteDSN appends ".db" to a bare name; ":memory:" opens a shared
// in-memory database.
func sqliteDSN(cfg *ConnectionConfig) string {
	switch {
	case cfg.DBName == ":memory:":
		return "file::memory:?cache=shared"
	case strings.HasSuffix(cfg.DBName, ".db"), strings.HasPrefix(cfg.DBName, "file:"):
		return cfg.DBName
	}
	return cfg.DBName + ".db"
}
