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

// Visitor is called by Walk for every node of a tree. When Visit returns a nil Visitor the
// children of the node are skipped.
type Visitor interface {
	Visit(q Query) Visitor
}

// Walk traverses q in pre-order, descending into the clauses of Bool and the child of Boost.
func Walk(v Visitor, q Query) {
	if q == nil {
		return
	}
	if v = v.Visit(q); v == nil {
		return
	}
	switch n := q.(type) {
	case *BoolQuery:
		for _, list := range [][]Query{n.Must, n.MustNot, n.Should, n.Filter} {
			for _, sub := range list {
				Walk(v, sub)
			}
		}
	case *BoostQuery:
		Walk(v, n.Underlying)
	}
}

type inspector func(Query) bool

func (f inspector) Visit(q Query) Visitor {
	if f(q) {
		return f
	}
	return nil
}

// Inspect traverses q in pre-order, calling f for every node while f returns true.
func Inspect(q Query, f func(Query) bool) {
	Walk(inspector(f), q)
}

// RangeFields collects the field of every range query in q.
func RangeFields(q Query) map[string]struct{} {
	fields := make(map[string]struct{})
	Inspect(q, func(n Query) bool {
		if r, ok := n.(*RangeQuery); ok {
			fields[r.Field] = struct{}{}
		}
		return true
	})
	return fields
}

// TermSetFields collects every field targeted by a term set query in q.
func TermSetFields(q Query) map[string]struct{} {
	fields := make(map[string]struct{})
	Inspect(q, func(n Query) bool {
		if ts, ok := n.(*TermSetQuery); ok {
			for f := range ts.TermsPerField {
				fields[f] = struct{}{}
			}
		}
		return true
	})
	return fields
}
