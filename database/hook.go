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
	"io"
	"os"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var sqlSilentMode atomic.Bool

// EnableSqlSilent mutes the console query hooks, e.g. while inspecting the
// schema.
func EnableSqlSilent(b bool) {
	sqlSilentMode.Store(b)
}

var (
	tagColor        = color.New(color.FgCyan)
	operationColors = map[string]*color.Color{
		"SELECT": color.New(color.FgGreen),
		"INSERT": color.New(color.FgBlue),
		"UPDATE": color.New(color.FgYellow),
		"DELETE": color.New(color.FgMagenta),
	}
	otherColor = color.New(color.FgRed)
	errorColor = color.New(color.BgRed)
)

func colorQuery(event *bun.QueryEvent) string {
	if c, ok := operationColors[event.Operation()]; ok {
		return c.Sprint(event.Query)
	}
	return otherColor.Sprint(event.Query)
}

// QueryHook prints every query with its duration, coloured by operation.
// The environment variable named by FromEnv overrides the options: "0" or
// empty disables, "2" prints successful queries too.
type QueryHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

type QueryHookOption func(*QueryHook)

func WithEnabled(on bool) QueryHookOption { return func(h *QueryHook) { h.enabled = on } }

func WithVerbose(on bool) QueryHookOption { return func(h *QueryHook) { h.verbose = on } }

func WithWriter(w io.Writer) QueryHookOption { return func(h *QueryHook) { h.writer = w } }

func FromEnv(name string) QueryHookOption { return func(h *QueryHook) { h.envName = name } }

func NewQueryHook(opts ...QueryHookOption) *QueryHook {
	h := &QueryHook{envName: "SIEVE_SQL_LOG", enabled: true, writer: os.Stderr}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if sqlSilentMode.Load() {
		return
	}
	enabled, verbose := h.enabled, h.verbose
	if env, ok := os.LookupEnv(h.envName); ok && h.envName != "" {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	if !enabled {
		return
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		tagColor.Sprintf("%8s", "[SQL]"),
		fmt.Sprintf("%12s", now.Sub(event.StartTime).Round(time.Microsecond)),
		" ", colorQuery(event),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args, "\t", errorColor.Sprintf(" %s: %s ", typ, event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

// SlowQueryHook warns through logger about successful queries slower than
// threshold.
type SlowQueryHook struct {
	threshold time.Duration
	logger    Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(threshold time.Duration, logger Logger) *SlowQueryHook {
	return &SlowQueryHook{threshold: threshold, logger: logger}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil || h.logger == nil || h.threshold <= 0 {
		return
	}
	if d := time.Since(event.StartTime); d > h.threshold {
		h.logger.Warn("Database slow query detected",
			"duration", d,
			"slow_threshold", h.threshold,
			"operation", event.Operation(),
			"query", event.Query,
		)
	}
}
