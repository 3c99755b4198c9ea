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
	"errors"
	"fmt"
)

// ErrNotFound matches every NotFoundError with errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError reports an id absent within the caller's tenant scope.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return MsgNotFound(e.Entity)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// User-facing messages.
const (
	MsgCacheFlushed = "Limpeza de cache executado com sucesso"
	MsgNoCache      = "Não há cache para ser limpo"
	MsgCacheFailed  = "Falha ao limpar o cache"
)

func MsgDeactivated(entity string) string { return fmt.Sprintf("%s desativado(a) com sucesso", entity) }

func MsgReactivated(entity string) string { return fmt.Sprintf("%s reativado(a) com sucesso", entity) }

func MsgNotFound(entity string) string { return fmt.Sprintf("%s não encontrado(a)", entity) }
