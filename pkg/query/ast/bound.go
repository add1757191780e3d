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

package ast

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

var errInvalidBound = errors.New(`bound must be "Unbounded", {"Included":v} or {"Excluded":v}`)

// BoundKind tells whether a bound is inclusive, exclusive or absent.
type BoundKind uint8

// Bound kinds.
const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound is a range endpoint over T.
type Bound[T any] struct {
	Value T
	Kind  BoundKind
}

// IncludedBound returns an inclusive bound on v.
func IncludedBound[T any](v T) Bound[T] { return Bound[T]{Kind: Included, Value: v} }

// ExcludedBound returns an exclusive bound on v.
func ExcludedBound[T any](v T) Bound[T] { return Bound[T]{Kind: Excluded, Value: v} }

// UnboundedBound returns the absent bound.
func UnboundedBound[T any]() Bound[T] { return Bound[T]{} }

// IsUnbounded reports whether b has no endpoint.
func (b Bound[T]) IsUnbounded() bool { return b.Kind == Unbounded }

// MapBound converts the value of b with fn, keeping its kind.
func MapBound[T, U any](b Bound[T], fn func(T) (U, error)) (Bound[U], error) {
	if b.Kind == Unbounded {
		return Bound[U]{}, nil
	}
	v, err := fn(b.Value)
	if err != nil {
		return Bound[U]{}, err
	}
	return Bound[U]{Kind: b.Kind, Value: v}, nil
}

// MarshalJSON encodes b as "Unbounded", {"Included":v} or {"Excluded":v}.
func (b Bound[T]) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case Included:
		return json.Marshal(map[string]T{"Included": b.Value})
	case Excluded:
		return json.Marshal(map[string]T{"Excluded": b.Value})
	default:
		return []byte(`"Unbounded"`), nil
	}
}

// UnmarshalJSON decodes the forms written by MarshalJSON.
func (b *Bound[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != "Unbounded" {
			return errors.WithMessagef(errInvalidBound, "got %q", s)
		}
		*b = Bound[T]{}
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return errors.WithMessagef(errInvalidBound, "got %s", string(data))
	}
	for k, raw := range m {
		var kind BoundKind
		switch k {
		case "Included":
			kind = Included
		case "Excluded":
			kind = Excluded
		default:
			return errors.WithMessagef(errInvalidBound, "got key %q", k)
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		*b = Bound[T]{Kind: kind, Value: v}
	}
	return nil
}
