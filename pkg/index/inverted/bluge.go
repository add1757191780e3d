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
	"math"
	"time"

	"github.com/blugelabs/bluge"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

// blugeField names the bluge field a term lives in. Values of JSON fields are flattened
// into one bluge field per path.
func blugeField(s *schema.Schema, f schema.Field, path string) string {
	name := s.FieldName(f)
	if path != "" {
		return name + "." + path
	}
	return name
}

func isNumeric(t schema.Type) bool {
	return t == schema.TypeU64 || t == schema.TypeI64 || t == schema.TypeF64
}

func termToBluge(s *schema.Schema, t Term) bluge.Query {
	field := blugeField(s, t.Field, t.Path)
	switch {
	case isNumeric(t.Type):
		v := t.Float()
		return bluge.NewNumericRangeInclusiveQuery(v, v, true, true).SetField(field)
	case t.Type == schema.TypeDate:
		v := t.Time()
		return bluge.NewDateRangeInclusiveQuery(v, v, true, true).SetField(field)
	}
	return bluge.NewTermQuery(t.Bytes).SetField(field)
}

// ToBluge implements Query.
func (q *TermQuery) ToBluge(s *schema.Schema) bluge.Query {
	return termToBluge(s, q.Term)
}

func phraseTerms(terms []PositionedTerm) [][]string {
	size := 0
	for _, t := range terms {
		size = max(size, t.Offset+1)
	}
	slots := make([][]string, size)
	for _, t := range terms {
		slots[t.Offset] = append(slots[t.Offset], t.Term.Bytes)
	}
	return slots
}

// ToBluge implements Query.
func (q *PhraseQuery) ToBluge(s *schema.Schema) bluge.Query {
	if len(q.Terms) == 0 {
		return bluge.NewMatchNoneQuery()
	}
	first := q.Terms[0].Term
	return bluge.NewMultiPhraseQuery(phraseTerms(q.Terms)).
		SetSlop(int(q.Slop)).
		SetField(blugeField(s, first.Field, first.Path))
}

// ToBluge implements Query. Bluge has no phrase prefix query: the phrase and the prefix
// are both required, ignoring the position of the prefix.
func (q *PhrasePrefixQuery) ToBluge(s *schema.Schema) bluge.Query {
	field := blugeField(s, q.Prefix.Term.Field, q.Prefix.Term.Path)
	prefix := bluge.NewPrefixQuery(q.Prefix.Term.Bytes).SetField(field)
	if len(q.Terms) == 0 {
		return prefix
	}
	phrase := bluge.NewMultiPhraseQuery(phraseTerms(q.Terms)).SetField(field)
	return bluge.NewBooleanQuery().AddMust(phrase, prefix)
}

// ToBluge implements Query.
func (q *TermSetQuery) ToBluge(s *schema.Schema) bluge.Query {
	if len(q.Terms) == 0 {
		return bluge.NewMatchNoneQuery()
	}
	query := bluge.NewBooleanQuery()
	for _, t := range q.Terms {
		query.AddShould(termToBluge(s, t))
	}
	return query.SetMinShould(1)
}

// ToBluge implements Query.
func (q *RangeQuery) ToBluge(s *schema.Schema) bluge.Query {
	field := blugeField(s, q.Field, q.Path)
	lowerIncl, upperIncl := q.Lower.Kind == ast.Included, q.Upper.Kind == ast.Included
	switch {
	case isNumeric(q.Type):
		lower, upper := math.Inf(-1), math.Inf(1)
		if !q.Lower.IsUnbounded() {
			lower = q.Lower.Value.Float()
		}
		if !q.Upper.IsUnbounded() {
			upper = q.Upper.Value.Float()
		}
		return bluge.NewNumericRangeInclusiveQuery(lower, upper, lowerIncl, upperIncl).SetField(field)
	case q.Type == schema.TypeDate:
		var lower, upper time.Time
		if !q.Lower.IsUnbounded() {
			lower = q.Lower.Value.Time()
		}
		if !q.Upper.IsUnbounded() {
			upper = q.Upper.Value.Time()
		}
		return bluge.NewDateRangeInclusiveQuery(lower, upper, lowerIncl, upperIncl).SetField(field)
	}
	var lower, upper string
	if !q.Lower.IsUnbounded() {
		lower = q.Lower.Value.Bytes
	}
	if !q.Upper.IsUnbounded() {
		upper = q.Upper.Value.Bytes
	}
	return bluge.NewTermRangeInclusiveQuery(lower, upper, lowerIncl, upperIncl).SetField(field)
}

// ToBluge implements Query. Filter clauses are evaluated as must clauses. A query made of
// exclusions only gets a match all clause to exclude from.
func (q *BoolQuery) ToBluge(s *schema.Schema) bluge.Query {
	query := bluge.NewBooleanQuery()
	var positive, should int
	for _, c := range q.Clauses {
		sub := c.Query.ToBluge(s)
		switch c.Occur {
		case Must, Filter:
			positive++
			query.AddMust(sub)
		case Should:
			should++
			query.AddShould(sub)
		case MustNot:
			query.AddMustNot(sub)
		}
	}
	if positive == 0 && should > 0 {
		query.SetMinShould(1)
	}
	if positive == 0 && should == 0 {
		query.AddMust(bluge.NewMatchAllQuery())
	}
	return query
}

// ToBluge implements Query. Boosts above a non boolean query wrap it into a boolean query.
func (q *BoostQuery) ToBluge(s *schema.Schema) bluge.Query {
	return bluge.NewBooleanQuery().AddMust(q.Underlying.ToBluge(s)).SetBoost(float64(q.Boost))
}

// ToBluge implements Query.
func (q *AllQuery) ToBluge(*schema.Schema) bluge.Query {
	return bluge.NewMatchAllQuery()
}

// ToBluge implements Query.
func (q *EmptyQuery) ToBluge(*schema.Schema) bluge.Query {
	return bluge.NewMatchNoneQuery()
}
