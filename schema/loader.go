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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	"github.com/tomoncle/sieve/types"
)

// FileConfig is the YAML structure that lists entity descriptors.
type FileConfig struct {
	Entities []EntityConfig `yaml:"entities"`
}

// EntityConfig describes a single entity in configuration.
type EntityConfig struct {
	Name         string            `yaml:"name"`
	Table        string            `yaml:"table"`
	Label        string            `yaml:"label,omitempty"`
	TenantScoped bool              `yaml:"tenant_scoped"`
	SoftDeletes  bool              `yaml:"soft_deletes"`
	Cached       bool              `yaml:"cached,omitempty"`
	CacheTTL     time.Duration     `yaml:"cache_ttl,omitempty"`
	DisplayField string            `yaml:"display_field,omitempty"`
	Fields       map[string]string `yaml:"fields"`
	Searchable   []string          `yaml:"searchable,omitempty"`
	Relations    []RelationConfig  `yaml:"relations,omitempty"`
}

// RelationConfig describes a single relation in configuration.
type RelationConfig struct {
	Name            string `yaml:"name"`
	Kind            string `yaml:"kind"`
	Target          string `yaml:"target"`
	ForeignKey      string `yaml:"foreign_key,omitempty"`
	Pivot           string `yaml:"pivot,omitempty"`
	PivotForeignKey string `yaml:"pivot_foreign_key,omitempty"`
	PivotRelatedKey string `yaml:"pivot_related_key,omitempty"`
}

// ToDescriptor converts the config entry into a runtime descriptor.
func (ec *EntityConfig) ToDescriptor() (*Descriptor, error) {
	d := &Descriptor{
		Name:         ec.Name,
		Table:        ec.Table,
		Label:        ec.Label,
		TenantScoped: ec.TenantScoped,
		SoftDeletes:  ec.SoftDeletes,
		Cached:       ec.Cached,
		CacheTTL:     ec.CacheTTL,
		DisplayField: ec.DisplayField,
		Searchable:   ec.Searchable,
		Fields:       make(map[string]FieldType, len(ec.Fields)),
	}
	for col, tag := range ec.Fields {
		t, ok := ParseFieldType(tag)
		if !ok {
			return nil, configErr(ec.Name, "field %q has unknown type %q", col, tag)
		}
		d.Fields[col] = t
	}
	for _, rc := range ec.Relations {
		kind, ok := types.ParseEnum(rc.Kind, RelationKinds()...)
		if !ok {
			return nil, configErr(ec.Name, "relation %q has unknown kind %q", rc.Name, rc.Kind)
		}
		d.Relations = append(d.Relations, Relation{
			Name:            rc.Name,
			Kind:            kind,
			Target:          rc.Target,
			ForeignKey:      rc.ForeignKey,
			Pivot:           rc.Pivot,
			PivotForeignKey: rc.PivotForeignKey,
			PivotRelatedKey: rc.PivotRelatedKey,
		})
	}
	return d, nil
}

// Parse decodes descriptor YAML.
func Parse(data []byte) ([]*Descriptor, error) {
	var config FileConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor file: %w", err)
	}
	descriptors := make([]*Descriptor, 0, len(config.Entities))
	for i := range config.Entities {
		d, err := config.Entities[i].ToDescriptor()
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// LoadFile reads a descriptor file and builds a validated registry from it.
func LoadFile(path string) (*Registry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("descriptor file does not exist: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor file: %w", err)
	}
	descriptors, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return NewRegistry(descriptors...)
}

// WriteFile exports the registry as descriptor YAML at outputPath, creating
// directories as needed. Implicit columns are written out explicitly.
func WriteFile(reg *Registry, outputPath string) error {
	var config FileConfig
	for _, d := range reg.All() {
		ec := EntityConfig{
			Name:         d.Name,
			Table:        d.Table,
			Label:        d.Label,
			TenantScoped: d.TenantScoped,
			SoftDeletes:  d.SoftDeletes,
			Cached:       d.Cached,
			CacheTTL:     d.CacheTTL,
			DisplayField: d.DisplayField,
			Searchable:   d.Searchable,
			Fields:       make(map[string]string, len(d.Fields)),
		}
		for col, t := range d.Fields {
			ec.Fields[col] = t.Name()
		}
		for _, rel := range d.Relations {
			ec.Relations = append(ec.Relations, RelationConfig{
				Name:            rel.Name,
				Kind:            rel.Kind.Name(),
				Target:          rel.Target,
				ForeignKey:      rel.ForeignKey,
				Pivot:           rel.Pivot,
				PivotForeignKey: rel.PivotForeignKey,
				PivotRelatedKey: rel.PivotRelatedKey,
			})
		}
		config.Entities = append(config.Entities, ec)
	}

	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to serialize descriptors: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write descriptor file: %w", err)
	}
	return nil
}
