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

package compiler

import (
	"github.com/pkg/errors"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/inverted"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

type boundConverter func(schema.Field, ast.JSONLiteral) (inverted.Term, bool)

var boundConverters = map[schema.Type]struct {
	convert  boundConverter
	expected string
}{
	schema.TypeStr: {expected: "str", convert: func(f schema.Field, l ast.JSONLiteral) (inverted.Term, bool) {
		return inverted.StrTerm(f, l.String()), true
	}},
	schema.TypeU64: {expected: "u64", convert: func(f schema.Field, l ast.JSONLiteral) (inverted.Term, bool) {
		v, ok := l.InterpretU64()
		return inverted.U64Term(f, v), ok
	}},
	schema.TypeI64: {expected: "i64", convert: func(f schema.Field, l ast.JSONLiteral) (inverted.Term, bool) {
		v, ok := l.InterpretI64()
		return inverted.I64Term(f, v), ok
	}},
	schema.TypeF64: {expected: "f64", convert: func(f schema.Field, l ast.JSONLiteral) (inverted.Term, bool) {
		v, ok := l.InterpretF64()
		return inverted.F64Term(f, v), ok
	}},
	schema.TypeDate: {expected: "datetime", convert: func(f schema.Field, l ast.JSONLiteral) (inverted.Term, bool) {
		v, ok := l.InterpretDate()
		return inverted.DateTerm(f, v), ok
	}},
	schema.TypeIPAddr: {expected: "ip", convert: func(f schema.Field, l ast.JSONLiteral) (inverted.Term, bool) {
		v, ok := l.InterpretIP()
		if !ok {
			return inverted.Term{}, false
		}
		return inverted.IPTerm(f, v), true
	}},
}

var unsupportedRangeTypes = map[schema.Type]struct {
	name          string
	unimplemented bool
}{
	schema.TypeBool:  {name: "bool"},
	schema.TypeFacet: {name: "facet"},
	schema.TypeBytes: {name: "bytes", unimplemented: true},
	schema.TypeJSON:  {name: "json", unimplemented: true},
}

func (c *compiler) compileRange(q *ast.RangeQuery) (inverted.Query, error) {
	field, entry, _, err := schema.FindFieldOrHitDynamic(q.Field, c.schema)
	if err != nil {
		return nil, err
	}
	if !entry.IsFast() {
		return nil, errors.WithMessagef(query.ErrSchema,
			"Range queries are only supported for fast fields. (`%s` is not a fast field)", entry.Name)
	}
	if u, ok := unsupportedRangeTypes[entry.Type]; ok {
		return nil, &query.RangeNotSupportedError{ValueType: u.name, FieldName: entry.Name, Unsupported: u.unimplemented}
	}
	if entry.Type == schema.TypeStr && !c.schema.AllowTextRange() {
		return nil, &query.RangeNotSupportedError{ValueType: "str", FieldName: entry.Name}
	}
	conv, ok := boundConverters[entry.Type]
	if !ok {
		return nil, errors.WithMessagef(query.ErrNotImplemented, "range query on field `%s` of type %s", entry.Name, entry.Type)
	}
	convert := func(l ast.JSONLiteral) (inverted.Term, error) {
		t, ok := conv.convert(field, l)
		if !ok {
			return inverted.Term{}, &query.InvalidBoundaryError{ExpectedType: conv.expected, FieldName: entry.Name, Value: l.String()}
		}
		return t, nil
	}
	lower, err := ast.MapBound(q.LowerBound, convert)
	if err != nil {
		return nil, err
	}
	upper, err := ast.MapBound(q.UpperBound, convert)
	if err != nil {
		return nil, err
	}
	return &inverted.RangeQuery{Field: field, Type: entry.Type, Lower: lower, Upper: upper}, nil
}
