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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

const healthPingTimeout = 5 * time.Second

type defaultDatabaseManager struct {
	config       *ConnectionConfig
	db           *bun.DB
	sqlDB        *sql.DB
	dialect      string
	logger       Logger
	mu           sync.RWMutex
	connected    bool
	lastError    error
	healthStatus *HealthStatus
	// stopWatch ends the health watcher; nil while none runs.
	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun. A nil
// config uses DefaultConnectionConfig.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{
		config:       config,
		healthStatus: &HealthStatus{},
	}
}

// Connect opens the pool, pings it and starts the health watcher. Calling it
// on a connected manager is a no-op.
func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	if err := dm.open(ctx); err != nil {
		return err
	}
	dm.watch()
	return nil
}

func (dm *defaultDatabaseManager) open(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.db != nil {
		return nil
	}

	sqlDB, db, err := dm.createConnection()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	configurePool(sqlDB, dm.config)

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		dm.lastError = err
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.sqlDB, dm.db = sqlDB, db
	dm.dialect = db.Dialect().Name().String()
	dm.connected = true
	dm.lastError = nil

	if dm.logger != nil {
		dm.logger.Info("Database connected",
			"dialect", dm.dialect, "host", dm.config.Host, "dbname", dm.config.DBName)
	}
	return nil
}

func (dm *defaultDatabaseManager) createConnection() (*sql.DB, *bun.DB, error) {
	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	driver, dsn, dialect, err := dataSource(dm.config)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	db := bun.NewDB(sqlDB, dialect)

	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	} else {
		db.AddQueryHook(NewQueryHook(WithEnabled(false)))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(dm.config.SlowQueryTime, dm.logger))
	}
	if dm.config.EnableMetrics {
		hook, err := NewMetricsHook(dm.config.MetricsNamespace, prometheus.DefaultRegisterer)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to register query metrics: %w", err)
		}
		db.AddQueryHook(hook)
	}

	return sqlDB, db, nil
}

func configurePool(sqlDB *sql.DB, cfg *ConnectionConfig) {
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

// Disconnect stops the health watcher and closes the pool.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	stop, done := dm.stopWatch, dm.watchDone
	dm.stopWatch, dm.watchDone = nil, nil
	dm.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	return dm.close()
}

func (dm *defaultDatabaseManager) close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil
	dm.connected = false

	if dm.logger != nil {
		if err != nil {
			dm.logger.Error("Failed to close database connection", "error", err)
		} else {
			dm.logger.Info("Database connection closed")
		}
	}
	return err
}

// Reconnect replaces the pool. The health watcher, if any, keeps running.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	if dm.logger != nil {
		dm.logger.Info("Attempting to reconnect to the database")
	}
	if err := dm.close(); err != nil && dm.logger != nil {
		dm.logger.Warn("Error closing existing connection", "error", err)
	}
	return dm.open(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	dm.mu.RLock()
	db := dm.db
	dm.mu.RUnlock()

	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

// HealthCheck pings the database. The reported error is the classified
// failure kind; the driver message is only logged, since the status is
// served over HTTP.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.RLock()
	db, sqlDB, dialect := dm.db, dm.sqlDB, dm.dialect
	dm.mu.RUnlock()

	start := time.Now()
	status := &HealthStatus{LastCheckTime: start, Dialect: dialect}
	if db == nil {
		status.LastError = "Database not initialized"
		return dm.record(status, nil)
	}

	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.LastError = "ping failed: " + errorKind(err)
		if dm.logger != nil {
			dm.logger.Warn("Database health check failed", "error", err, "dialect", dialect)
		}
	} else {
		status.Healthy = true
		status.Connected = true
	}

	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return dm.record(status, err)
}

func (dm *defaultDatabaseManager) record(status *HealthStatus, err error) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.healthStatus = status
	dm.lastError = err
	return status
}

// errorKind names a failure without exposing driver text.
func errorKind(err error) string {
	if is, kind := IsSqlError(err); is {
		return kind.String()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}
	return "connection error"
}

// watch starts the periodic health check once per connection lifetime.
func (dm *defaultDatabaseManager) watch() {
	if dm.config.HealthCheckInterval <= 0 {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.stopWatch != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	dm.stopWatch, dm.watchDone = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(dm.config.HealthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if status := dm.HealthCheck(ctx); !status.Healthy && dm.config.EnableReconnect {
					dm.recover(ctx)
				}
			}
		}
	}()
}

// recover retries Reconnect up to MaxReconnectTries, waiting
// ReconnectInterval times the attempt number between tries.
func (dm *defaultDatabaseManager) recover(ctx context.Context) {
	for try := 1; try <= dm.config.MaxReconnectTries; try++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(try) * dm.config.ReconnectInterval):
		}

		connectCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
		err := dm.Reconnect(connectCtx)
		cancel()
		if err == nil {
			if dm.logger != nil {
				dm.logger.Info("Reconnect succeeded", "try", try)
			}
			return
		}
		if dm.logger != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", try)
		}
	}
	if dm.logger != nil {
		dm.logger.Error("Max reconnect attempts reached", "tries", dm.config.MaxReconnectTries)
	}
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	dm.mu.RLock()
	sqlDB := dm.sqlDB
	dm.mu.RUnlock()

	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
