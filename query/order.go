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
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/tomoncle/sieve/schema"
)

// CompileOrder appends ORDER BY items for keys with positional directions.
// A key is either a searchable base column or relation.column, which LEFT
// JOINs the related table. Keys that resolve to nothing are skipped. With no
// keys the order is id descending. The soft-delete timestamp always closes
// the list when the entity has one.
func CompileOrder(reg *schema.Registry, in *Intent, keys, dirs []string) error {
	desc := in.Descriptor()
	if len(keys) == 0 {
		in.AddOrder(desc.Table, schema.ColumnID, true)
	}
	for i, key := range keys {
		descending := i < len(dirs) && strings.EqualFold(strings.TrimSpace(dirs[i]), "desc")
		key = strings.TrimSpace(key)
		if relName, column, dotted := strings.Cut(key, "."); dotted {
			if err := orderByRelation(reg, in, relName, column, descending); err != nil {
				return err
			}
			continue
		}
		if desc.IsSearchable(key) {
			in.AddOrder(desc.Table, key, descending)
		}
	}
	if desc.HasField(schema.ColumnDeletedAt) {
		in.AddOrder(desc.Table, schema.ColumnDeletedAt, false)
	}
	return nil
}

func orderByRelation(reg *schema.Registry, in *Intent, relName, column string, descending bool) error {
	desc := in.Descriptor()
	rel, ok := desc.Relation(relName)
	if !ok {
		return nil
	}
	target, err := reg.Target(rel)
	if err != nil {
		return err
	}
	fk := inflect.ForeignKey(rel.Name)
	if rel.Kind == schema.BelongsTo && rel.ForeignKey != "" {
		fk = rel.ForeignKey
	}
	if !desc.HasField(fk) || !target.HasField(column) {
		return nil
	}
	alias := relationAlias(desc, *rel)
	if !in.AddJoin(target, alias, alias+"."+schema.ColumnID, desc.Qualify(fk)) {
		return nil
	}
	in.AddOrder(alias, column, descending)
	return nil
}
