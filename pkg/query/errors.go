// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package query holds the error taxonomy shared by the query front ends, the compiler
// and the query builder.
package query

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedInput is returned when a serialized query can not be decoded.
	ErrMalformedInput = errors.New("malformed query")
	// ErrFieldDoesNotExist is returned when a path resolves to no field.
	ErrFieldDoesNotExist = errors.New("field does not exist")
	// ErrJSONFieldRootNotSearchable is returned when a path stops at the root of a JSON field.
	ErrJSONFieldRootNotSearchable = errors.WithMessage(ErrFieldDoesNotExist, "json field root is not searchable")
	// ErrInvalidSearchTerm is returned when a literal does not fit the type of its field.
	ErrInvalidSearchTerm = errors.New("invalid search term")
	// ErrInvalidBoundary is returned when a range bound does not fit the type of its field.
	ErrInvalidBoundary = errors.New("invalid boundary")
	// ErrSchema is returned when a field misses a structural property required by the query.
	ErrSchema = errors.New("schema error")
	// ErrRangeQueryNotSupportedForField is returned when a field type can not be range ordered.
	ErrRangeQueryNotSupportedForField = errors.New("range query not supported for field")
	// ErrNotImplemented is returned for the combinations of query and field type that are not implemented.
	ErrNotImplemented = errors.New("not implemented")
	// ErrUserQueryNotParsed is returned when a user text node reaches the compiler.
	ErrUserQueryNotParsed = errors.New("user query should have been parsed")
	// ErrNoDefaultField is returned when a bare clause has no field to search.
	ErrNoDefaultField = errors.New("No default field declared and no field specified in query.")
	// ErrUnsupportedSetQuery is returned when a set query targets no field.
	ErrUnsupportedSetQuery = errors.New("Unsupported query: Set query need to target a specific field.")
	// ErrUnknownSortField is returned when the sort field is not in the schema.
	ErrUnknownSortField = errors.New("unknown sort by field")
	// ErrUnsortableField is returned when the sort field is not usable for sorting.
	ErrUnsortableField = errors.New("unsortable field")
	// ErrMissingFieldNorms is returned when sorting by score on fields without fieldnorms.
	ErrMissingFieldNorms = errors.New("missing fieldnorms")
)

// FieldDoesNotExist builds the error of an unresolved path.
func FieldDoesNotExist(fullPath string) error {
	return &fieldError{sentinel: ErrFieldDoesNotExist, msg: fmt.Sprintf("Field does not exist: '%s'", fullPath)}
}

// JSONFieldRootNotSearchable builds the error of a path stopping at a JSON field root.
func JSONFieldRootNotSearchable(fullPath string) error {
	return &fieldError{
		sentinel: ErrJSONFieldRootNotSearchable,
		msg:      fmt.Sprintf("Field does not exist: '%s'. Searching the root of a JSON field is not supported", fullPath),
	}
}

type fieldError struct {
	sentinel error
	msg      string
}

func (e *fieldError) Error() string { return e.msg }

func (e *fieldError) Unwrap() error { return e.sentinel }

// InvalidSearchTermError carries the context of a literal that failed to coerce.
type InvalidSearchTermError struct {
	ExpectedType string
	FieldName    string
	Value        string
}

func (e *InvalidSearchTermError) Error() string {
	return fmt.Sprintf("Expected a `%s` search value for field `%s`, got `%s`", e.ExpectedType, e.FieldName, e.Value)
}

// Is reports whether target is ErrInvalidSearchTerm.
func (e *InvalidSearchTermError) Is(target error) bool { return target == ErrInvalidSearchTerm }

// InvalidBoundaryError carries the context of a range bound that failed to coerce.
type InvalidBoundaryError struct {
	ExpectedType string
	FieldName    string
	Value        string
}

func (e *InvalidBoundaryError) Error() string {
	return fmt.Sprintf("Expected a `%s` boundary for field `%s`, got `%s`", e.ExpectedType, e.FieldName, e.Value)
}

// Is reports whether target is ErrInvalidBoundary.
func (e *InvalidBoundaryError) Is(target error) bool { return target == ErrInvalidBoundary }

// RangeNotSupportedError names the field and type a range query was rejected for.
type RangeNotSupportedError struct {
	ValueType   string
	FieldName   string
	Unsupported bool
}

func (e *RangeNotSupportedError) Error() string {
	if e.Unsupported {
		return fmt.Sprintf("Range queries on field `%s` of type `%s` are not implemented", e.FieldName, e.ValueType)
	}
	return fmt.Sprintf("Field `%s` is of type `%s`. Range queries are only supported on datetime, IP, and numeric fields",
		e.FieldName, e.ValueType)
}

// Is reports whether target is ErrRangeQueryNotSupportedForField, or ErrNotImplemented for the
// types that are not implemented yet.
func (e *RangeNotSupportedError) Is(target error) bool {
	if target == ErrRangeQueryNotSupportedForField {
		return true
	}
	return e.Unsupported && target == ErrNotImplemented
}

// IsFatal reports whether err must propagate even when validation is disabled.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUserQueryNotParsed) || errors.Is(err, ErrNotImplemented)
}
