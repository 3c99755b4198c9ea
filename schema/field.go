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

import "github.com/tomoncle/sieve/types"

// FieldType drives the shape of the predicate compiled for a column.
type FieldType int

const (
	String FieldType = iota
	Integer
	DateTime
	Boolean
	Other
)

var _ types.BaseEnum = String

var fieldTypeNames = [...]string{"string", "integer", "datetime", "boolean", "other"}

var fieldTypeDescs = [...]string{
	"free text, filtered by substring",
	"whole number",
	"date or timestamp",
	"true/false flag",
	"any other scalar",
}

// FieldTypes lists every valid field type.
func FieldTypes() []FieldType {
	return []FieldType{String, Integer, DateTime, Boolean, Other}
}

// ParseFieldType resolves a type tag as written in descriptor files. A few
// common aliases are accepted.
func ParseFieldType(name string) (FieldType, bool) {
	switch name {
	case "text", "varchar", "char":
		return String, true
	case "int", "bigint", "number":
		return Integer, true
	case "date", "timestamp", "time":
		return DateTime, true
	case "bool":
		return Boolean, true
	}
	return types.ParseEnum(name, FieldTypes()...)
}

func (t FieldType) IsValid() bool { return t >= String && t <= Other }

func (t FieldType) Number() int {
	if !t.IsValid() {
		return types.IllegalValue
	}
	return int(t)
}

func (t FieldType) Name() string {
	if !t.IsValid() {
		return types.IllegalName
	}
	return fieldTypeNames[t]
}

func (t FieldType) Desc() string {
	if !t.IsValid() {
		return types.IllegalDesc
	}
	return fieldTypeDescs[t]
}

func (t FieldType) String() string { return t.Name() }
