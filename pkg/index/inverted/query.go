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

package inverted

import (
	"strconv"

	"github.com/blugelabs/bluge"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/convert"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

// Query is a compiled query.
type Query interface {
	// QueryTerms calls visit with every leaf term of the query and whether the
	// evaluation of the term needs positions.
	QueryTerms(visit func(t Term, needPositions bool))
	// ToBluge translates the query for the bluge engine. Fields are named after s.
	ToBluge(s *schema.Schema) bluge.Query
	String() string
	describe(names namer) interface{}
}

type namer func(schema.Field) string

func ordinal(f schema.Field) string {
	return "#" + strconv.FormatUint(uint64(f), 10)
}

// Explain renders q as JSON, naming the fields after s.
func Explain(q Query, s *schema.Schema) string {
	return convert.JSONToString(q.describe(s.FieldName))
}

// Occur tells how a clause of a BoolQuery takes part in the match.
type Occur uint8

// Clause occurrences.
const (
	Must Occur = iota
	Should
	MustNot
	Filter
)

var occurNames = [...]string{"must", "should", "mustNot", "filter"}

func (o Occur) String() string { return occurNames[o] }

// Clause is an occurrence of a sub query.
type Clause struct {
	Query Query
	Occur Occur
}

// BoolQuery combines clauses. A document matches when it matches every Must and Filter
// clause, no MustNot clause and, when there are neither Must nor Filter clauses, at least
// one Should clause.
type BoolQuery struct {
	Clauses []Clause
}

// NewBoolQuery returns a boolean query over clauses.
func NewBoolQuery(clauses ...Clause) *BoolQuery {
	return &BoolQuery{Clauses: clauses}
}

// Add appends a clause.
func (q *BoolQuery) Add(occur Occur, sub Query) *BoolQuery {
	q.Clauses = append(q.Clauses, Clause{Occur: occur, Query: sub})
	return q
}

// QueryTerms implements Query.
func (q *BoolQuery) QueryTerms(visit func(Term, bool)) {
	for _, c := range q.Clauses {
		c.Query.QueryTerms(visit)
	}
}

func (q *BoolQuery) describe(names namer) interface{} {
	clauses := make([]map[string]interface{}, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		clauses = append(clauses, map[string]interface{}{c.Occur.String(): c.Query.describe(names)})
	}
	return map[string]interface{}{"bool": clauses}
}

func (q *BoolQuery) String() string { return convert.JSONToString(q.describe(ordinal)) }

// TermQuery matches a term.
type TermQuery struct {
	Term Term
}

// QueryTerms implements Query.
func (q *TermQuery) QueryTerms(visit func(Term, bool)) {
	visit(q.Term, false)
}

func (q *TermQuery) describe(names namer) interface{} {
	return map[string]interface{}{"term": q.Term.describe(names)}
}

func (q *TermQuery) String() string { return convert.JSONToString(q.describe(ordinal)) }

// PositionedTerm is a term of a phrase and its position in the phrase.
type PositionedTerm struct {
	Term   Term
	Offset int
}

// PhraseQuery matches terms in order, with Slop positions of tolerance.
type PhraseQuery struct {
	Terms []PositionedTerm
	Slop  uint32
}

// QueryTerms implements Query.
func (q *PhraseQuery) QueryTerms(visit func(Term, bool)) {
	for _, t := range q.Terms {
		visit(t.Term, true)
	}
}

func (q *PhraseQuery) describe(names namer) interface{} {
	return map[string]interface{}{"phrase": map[string]interface{}{
		"terms": describePositioned(q.Terms, names),
		"slop":  q.Slop,
	}}
}

func (q *PhraseQuery) String() string { return convert.JSONToString(q.describe(ordinal)) }

// PhrasePrefixQuery matches Terms as a phrase followed by a term starting with Prefix.
// The prefix is expanded at evaluation time and is not a leaf term.
type PhrasePrefixQuery struct {
	Terms  []PositionedTerm
	Prefix PositionedTerm
}

// QueryTerms implements Query.
func (q *PhrasePrefixQuery) QueryTerms(visit func(Term, bool)) {
	for _, t := range q.Terms {
		visit(t.Term, true)
	}
}

func (q *PhrasePrefixQuery) describe(names namer) interface{} {
	return map[string]interface{}{"phrasePrefix": map[string]interface{}{
		"terms":  describePositioned(q.Terms, names),
		"prefix": q.Prefix.Term.describe(names),
	}}
}

func (q *PhrasePrefixQuery) String() string { return convert.JSONToString(q.describe(ordinal)) }

func describePositioned(terms []PositionedTerm, names namer) []interface{} {
	out := make([]interface{}, 0, len(terms))
	for _, t := range terms {
		d := t.Term.describe(names)
		d["offset"] = t.Offset
		out = append(out, d)
	}
	return out
}

// TermSetQuery matches any of its terms. The terms may belong to several fields.
type TermSetQuery struct {
	Terms []Term
}

// QueryTerms implements Query.
func (q *TermSetQuery) QueryTerms(visit func(Term, bool)) {
	for _, t := range q.Terms {
		visit(t, false)
	}
}

func (q *TermSetQuery) describe(names namer) interface{} {
	terms := make([]interface{}, 0, len(q.Terms))
	for _, t := range q.Terms {
		terms = append(terms, t.describe(names))
	}
	return map[string]interface{}{"termSet": terms}
}

func (q *TermSetQuery) String() string { return convert.JSONToString(q.describe(ordinal)) }

// RangeQuery matches the values of a fast field between two bounds. Both bounds hold terms
// of Field and Type.
type RangeQuery struct {
	Lower ast.Bound[Term]
	Upper ast.Bound[Term]
	Path  string
	Field schema.Field
	Type  schema.Type
}

// QueryTerms implements Query. Ranges are served by the fast fields and have no leaf term.
func (q *RangeQuery) QueryTerms(func(Term, bool)) {}

func (q *RangeQuery) describe(names namer) interface{} {
	d := map[string]interface{}{
		"field": names(q.Field),
		"type":  q.Type.String(),
		"range": rangeText(q.Lower, q.Upper),
	}
	if q.Path != "" {
		d["path"] = q.Path
	}
	return map[string]interface{}{"range": d}
}

func (q *RangeQuery) String() string { return convert.JSONToString(q.describe(ordinal)) }

func rangeText(lower, upper ast.Bound[Term]) string {
	text := "(-inf"
	switch lower.Kind {
	case ast.Included:
		text = "[" + lower.Value.Text()
	case ast.Excluded:
		text = "(" + lower.Value.Text()
	}
	switch upper.Kind {
	case ast.Included:
		return text + " " + upper.Value.Text() + "]"
	case ast.Excluded:
		return text + " " + upper.Value.Text() + ")"
	}
	return text + " +inf)"
}

// BoostQuery multiplies the score of Underlying by Boost.
type BoostQuery struct {
	Underlying Query
	Boost      float32
}

// QueryTerms implements Query.
func (q *BoostQuery) QueryTerms(visit func(Term, bool)) {
	q.Underlying.QueryTerms(visit)
}

func (q *BoostQuery) describe(names namer) interface{} {
	return map[string]interface{}{"boost": map[string]interface{}{
		"query": q.Underlying.describe(names),
		"boost": q.Boost,
	}}
}

func (q *BoostQuery) String() string { return convert.JSONToString(q.describe(ordinal)) }

// AllQuery matches every document.
type AllQuery struct{}

// QueryTerms implements Query.
func (q *AllQuery) QueryTerms(func(Term, bool)) {}

func (q *AllQuery) describe(namer) interface{} { return "matchAll" }

func (q *AllQuery) String() string { return "matchAll" }

// EmptyQuery matches no document.
type EmptyQuery struct{}

// QueryTerms implements Query.
func (q *EmptyQuery) QueryTerms(func(Term, bool)) {}

func (q *EmptyQuery) describe(namer) interface{} { return "matchNone" }

func (q *EmptyQuery) String() string { return "matchNone" }

// IsEmpty reports whether q can match no document.
func IsEmpty(q Query) bool {
	_, ok := q.(*EmptyQuery)
	return ok
}

// IsAll reports whether q matches every document.
func IsAll(q Query) bool {
	_, ok := q.(*AllQuery)
	return ok
}
