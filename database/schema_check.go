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
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tomoncle/sieve/schema"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"golang.org/x/sync/errgroup"
)

// tableCheck is one table and the columns the registry expects on it.
type tableCheck struct {
	entity  string
	table   string
	columns []string
}

// ValidateDescriptors compares every registered entity, and every pivot table
// its many-to-many relations use, against the live database. Missing tables
// and columns are reported together as configuration errors.
func ValidateDescriptors(ctx context.Context, db bun.IDB, reg *schema.Registry, concurrency int) error {
	if db == nil || reg == nil {
		return fmt.Errorf("database and registry are required")
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	checks := plannedChecks(reg)
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, c := range checks {
		g.Go(func() error {
			existing, err := listColumns(gctx, db, c.table)
			if err != nil {
				return fmt.Errorf("failed to query existing columns %s: %w", c.table, err)
			}
			problems := compareColumns(c, existing)
			if len(problems) > 0 {
				mu.Lock()
				errs = append(errs, problems...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errors.Join(errs...)
}

func plannedChecks(reg *schema.Registry) []tableCheck {
	var checks []tableCheck
	pivots := map[string]map[string]struct{}{}
	pivotOwner := map[string]string{}
	for _, d := range reg.All() {
		checks = append(checks, tableCheck{entity: d.Name, table: d.Table, columns: d.Columns()})
		for _, rel := range d.RelationsOf(schema.BelongsToMany) {
			cols, ok := pivots[rel.Pivot]
			if !ok {
				cols = map[string]struct{}{}
				pivots[rel.Pivot] = cols
				pivotOwner[rel.Pivot] = d.Name
			}
			cols[rel.PivotForeignKey] = struct{}{}
			cols[rel.PivotRelatedKey] = struct{}{}
		}
	}
	for pivot, set := range pivots {
		cols := make([]string, 0, len(set))
		for c := range set {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		checks = append(checks, tableCheck{entity: pivotOwner[pivot], table: pivot, columns: cols})
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].table < checks[j].table })
	return checks
}

func compareColumns(c tableCheck, existing map[string]struct{}) []error {
	if len(existing) == 0 {
		return []error{&schema.ConfigurationError{Entity: c.entity, Reason: fmt.Sprintf("table %q does not exist", c.table)}}
	}
	var missing []string
	for _, col := range c.columns {
		if _, ok := existing[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []error{&schema.ConfigurationError{
		Entity: c.entity,
		Reason: fmt.Sprintf("table %q lacks columns: %s", c.table, strings.Join(missing, ", ")),
	}}
}

// listColumns returns the lower-cased column names of table. An absent table
// yields an empty set.
func listColumns(ctx context.Context, db bun.IDB, table string) (map[string]struct{}, error) {
	name := db.Dialect().Name()
	var q string
	switch name {
	case dialect.PG:
		q = "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ?"
	case dialect.MySQL:
		q = "SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?"
	default:
		q = "SELECT name FROM pragma_table_info(?)"
	}
	rows, err := db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	cols := map[string]struct{}{}
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		cols[strings.ToLower(col)] = struct{}{}
	}
	return cols, rows.Err()
}
