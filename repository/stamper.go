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
	"time"

	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/types"
)

// AuditStamper writes tenant, actor and timestamp columns that the entity
// declares. Columns the entity lacks are never added.
type AuditStamper struct {
	Now func() time.Time
}

var _ Stamper = AuditStamper{}

func (s AuditStamper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func set(desc *schema.Descriptor, row types.Row, column string, value any) {
	if desc.HasField(column) {
		row[column] = value
	}
}

func (s AuditStamper) Creating(desc *schema.Descriptor, scope Scope, row types.Row) {
	now := s.now()
	if desc.TenantScoped && scope.TenantID != nil {
		row[schema.ColumnTenant] = *scope.TenantID
	}
	if scope.ActorID != nil {
		set(desc, row, schema.ColumnCreatedBy, *scope.ActorID)
		set(desc, row, schema.ColumnUpdatedBy, *scope.ActorID)
	}
	set(desc, row, schema.ColumnCreatedAt, now)
	set(desc, row, schema.ColumnUpdatedAt, now)
}

func (s AuditStamper) Updating(desc *schema.Descriptor, scope Scope, row types.Row) {
	if scope.ActorID != nil {
		set(desc, row, schema.ColumnUpdatedBy, *scope.ActorID)
	}
	set(desc, row, schema.ColumnUpdatedAt, s.now())
}

func (s AuditStamper) Deleting(desc *schema.Descriptor, scope Scope, row types.Row) {
	set(desc, row, schema.ColumnDeletedAt, s.now())
	if scope.ActorID != nil {
		set(desc, row, schema.ColumnDeletedBy, *scope.ActorID)
	}
}

// Restoring clears both soft-delete markers.
func (s AuditStamper) Restoring(desc *schema.Descriptor, _ Scope, row types.Row) {
	set(desc, row, schema.ColumnDeletedAt, nil)
	set(desc, row, schema.ColumnDeletedBy, nil)
}
