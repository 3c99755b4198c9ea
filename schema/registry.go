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

package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-openapi/inflect"
)

// ReasonUnknownEntity is the reason of errors for unregistered entities.
const ReasonUnknownEntity = "unknown entity"

// ConfigurationError reports a descriptor that cannot be resolved or that
// contradicts itself. It signals a deployment mismatch, never bad user input.
type ConfigurationError struct {
	Entity string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Entity == "" {
		return "schema configuration: " + e.Reason
	}
	return fmt.Sprintf("schema configuration: %s: %s", e.Entity, e.Reason)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func configErr(entity, format string, args ...any) error {
	return &ConfigurationError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

// Registry is the static set of entity descriptors, built and validated once.
// It is safe for concurrent reads.
type Registry struct {
	byName  map[string]*Descriptor
	byTable map[string]*Descriptor
	names   []string
}

// NewRegistry normalizes and validates the descriptors and resolves relation
// defaults. Every problem found is reported in the returned error.
func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	reg := &Registry{
		byName:  make(map[string]*Descriptor, len(descriptors)),
		byTable: make(map[string]*Descriptor, len(descriptors)),
	}
	var errs []error
	for _, d := range descriptors {
		if d == nil {
			continue
		}
		if d.Table == "" {
			errs = append(errs, configErr(d.Name, "table name is required"))
			continue
		}
		d.normalize()
		if _, dup := reg.byName[d.Name]; dup {
			errs = append(errs, configErr(d.Name, "entity declared twice"))
			continue
		}
		if _, dup := reg.byTable[d.Table]; dup {
			errs = append(errs, configErr(d.Name, "table %q declared twice", d.Table))
			continue
		}
		reg.byName[d.Name] = d
		reg.byTable[d.Table] = d
		reg.names = append(reg.names, d.Name)
	}
	sort.Strings(reg.names)

	for _, name := range reg.names {
		errs = append(errs, reg.validate(reg.byName[name])...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return reg, nil
}

// MustNewRegistry is NewRegistry that panics on error, for static setups.
func MustNewRegistry(descriptors ...*Descriptor) *Registry {
	reg, err := NewRegistry(descriptors...)
	if err != nil {
		panic(err)
	}
	return reg
}

func (r *Registry) validate(d *Descriptor) []error {
	var errs []error
	for c, t := range d.Fields {
		if !t.IsValid() {
			errs = append(errs, configErr(d.Name, "field %q has invalid type %d", c, int(t)))
		}
	}
	for _, s := range d.Searchable {
		if !d.HasField(s) {
			errs = append(errs, configErr(d.Name, "searchable field %q is not declared", s))
		}
	}
	for i := range d.Relations {
		rel := &d.Relations[i]
		if !rel.Kind.IsValid() {
			errs = append(errs, configErr(d.Name, "relation %q has invalid kind", rel.Name))
			continue
		}
		target, ok := r.lookup(rel.Target)
		if !ok {
			errs = append(errs, configErr(d.Name, "relation %q targets unknown entity %q", rel.Name, rel.Target))
			continue
		}
		rel.Target = target.Name
		switch rel.Kind {
		case HasMany:
			if rel.ForeignKey == "" {
				rel.ForeignKey = inflect.ForeignKey(d.Name)
			}
			if !target.HasField(rel.ForeignKey) {
				errs = append(errs, configErr(d.Name, "relation %q: %s has no column %q", rel.Name, target.Table, rel.ForeignKey))
			}
		case BelongsTo:
			if rel.ForeignKey == "" {
				rel.ForeignKey = inflect.ForeignKey(rel.Name)
			}
			if !d.HasField(rel.ForeignKey) {
				errs = append(errs, configErr(d.Name, "relation %q: %s has no column %q", rel.Name, d.Table, rel.ForeignKey))
			}
		case BelongsToMany:
			if rel.Pivot == "" {
				rel.Pivot = PivotName(d.Table, target.Table)
			}
			if rel.PivotForeignKey == "" {
				rel.PivotForeignKey = inflect.ForeignKey(d.Name)
			}
			if rel.PivotRelatedKey == "" {
				rel.PivotRelatedKey = inflect.ForeignKey(target.Name)
			}
		}
	}
	return errs
}

func (r *Registry) lookup(name string) (*Descriptor, bool) {
	if d, ok := r.byName[name]; ok {
		return d, true
	}
	if d, ok := r.byTable[name]; ok {
		return d, true
	}
	if d, ok := r.byName[inflect.Camelize(inflect.Singularize(name))]; ok {
		return d, true
	}
	return nil, false
}

// Get resolves an entity by name or table. Unknown entities are a
// ConfigurationError.
func (r *Registry) Get(name string) (*Descriptor, error) {
	if d, ok := r.lookup(name); ok {
		return d, nil
	}
	return nil, &ConfigurationError{Entity: name, Reason: ReasonUnknownEntity}
}

// Target resolves the descriptor a relation points to.
func (r *Registry) Target(rel *Relation) (*Descriptor, error) {
	if rel == nil {
		return nil, configErr("", "nil relation")
	}
	d, ok := r.byName[rel.Target]
	if !ok {
		return nil, configErr(rel.Target, "relation %q target is not registered", rel.Name)
	}
	return d, nil
}

// Names returns every registered entity name in lexical order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns every descriptor ordered by entity name.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.byName[n])
	}
	return out
}
