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
	"net/netip"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

type testSchema struct {
	s     *schema.Schema
	title schema.Field
	count schema.Field
	dt    schema.Field
	ip    schema.Field
	attrs schema.Field
}

func newTestSchema(t *testing.T) testSchema {
	b := schema.NewBuilder()
	ts := testSchema{
		title: b.AddTextField("title", schema.Text),
		count: b.AddU64Field("count", schema.Fast),
		dt:    b.AddDateField("dt", schema.Fast),
		ip:    b.AddIPAddrField("ip", schema.Fast),
		attrs: b.AddJSONField("attrs", schema.Text, false),
	}
	s, err := b.Build()
	require.NoError(t, err)
	ts.s = s
	return ts
}

func collectTerms(q Query) map[Term]bool {
	terms := make(map[Term]bool)
	q.QueryTerms(func(t Term, needPositions bool) {
		terms[t] = terms[t] || needPositions
	})
	return terms
}

func TestQueryTerms(t *testing.T) {
	ts := newTestSchema(t)
	hello, world := StrTerm(ts.title, "hello"), StrTerm(ts.title, "world")
	q := NewBoolQuery().
		Add(Must, &TermQuery{Term: hello}).
		Add(Should, &PhraseQuery{Terms: []PositionedTerm{{Term: hello}, {Term: world, Offset: 1}}}).
		Add(Filter, &RangeQuery{Field: ts.count, Type: schema.TypeU64, Lower: ast.IncludedBound(U64Term(ts.count, 1))}).
		Add(MustNot, &BoostQuery{Underlying: &TermSetQuery{Terms: []Term{U64Term(ts.count, 2)}}, Boost: 2}).
		Add(Should, &PhrasePrefixQuery{
			Terms:  []PositionedTerm{{Term: StrTerm(ts.title, "quick")}},
			Prefix: PositionedTerm{Term: StrTerm(ts.title, "br"), Offset: 1},
		}).
		Add(Should, &AllQuery{}).
		Add(Should, &EmptyQuery{})

	assert.Equal(t, map[Term]bool{
		hello:                      true,
		world:                      true,
		StrTerm(ts.title, "quick"): true,
		U64Term(ts.count, 2):       false,
	}, collectTerms(q))
}

func TestTermText(t *testing.T) {
	ts := newTestSchema(t)
	dt := time.Date(2023, 1, 10, 15, 13, 35, 0, time.UTC)
	assert.Equal(t, "42", U64Term(ts.count, 42).Text())
	assert.Equal(t, "-42", I64Term(ts.count, -42).Text())
	assert.Equal(t, "0.5", F64Term(ts.count, 0.5).Text())
	assert.Equal(t, "true", BoolTerm(ts.count, true).Text())
	assert.Equal(t, "2023-01-10T15:13:35Z", DateTerm(ts.dt, dt).Text())
	assert.Equal(t, dt, DateTerm(ts.dt, dt).Time())
	assert.Equal(t, "127.0.0.1", IPTerm(ts.ip, netip.MustParseAddr("::ffff:127.0.0.1")).Text())
	assert.Equal(t, "aGk=", BytesTerm(ts.title, []byte("hi")).Text())
	assert.Equal(t, "/a/b", FacetTerm(ts.title, "/a/b").Text())

	nested := I64Term(0, 7).InJSON(ts.attrs, "size")
	assert.Equal(t, ts.attrs, nested.Field)
	assert.Equal(t, "size", nested.Path)
	assert.Equal(t, schema.TypeI64, nested.Type)
}

func TestTermOrder(t *testing.T) {
	assert.Less(t, I64Term(0, -5).Bytes, I64Term(0, 3).Bytes)
	assert.Less(t, F64Term(0, -0.5).Bytes, F64Term(0, 0.25).Bytes)
	assert.Less(t, U64Term(0, 7).Bytes, U64Term(0, 300).Bytes)
}

func TestExplain(t *testing.T) {
	ts := newTestSchema(t)
	q := NewBoolQuery().
		Add(Must, &TermQuery{Term: StrTerm(ts.title, "hello")}).
		Add(Filter, &RangeQuery{
			Field: ts.count,
			Type:  schema.TypeU64,
			Lower: ast.ExcludedBound(U64Term(ts.count, 7)),
		})
	assert.JSONEq(t, `{"bool":[
		{"must":{"term":{"field":"title","type":"Str","value":"hello"}}},
		{"filter":{"range":{"field":"count","type":"U64","range":"(7 +inf)"}}}
	]}`, Explain(q, ts.s))
	assert.Contains(t, q.String(), `"field":"#0"`)
	assert.Equal(t, "matchAll", (&AllQuery{}).String())
}

func TestToBluge(t *testing.T) {
	ts := newTestSchema(t)
	tests := []struct {
		query Query
		want  bluge.Query
		name  string
	}{
		{name: "text term", query: &TermQuery{Term: StrTerm(ts.title, "hello")}, want: &bluge.TermQuery{}},
		{name: "numeric term", query: &TermQuery{Term: U64Term(ts.count, 1)}, want: &bluge.NumericRangeQuery{}},
		{name: "date term", query: &TermQuery{Term: DateTerm(ts.dt, time.Now())}, want: &bluge.DateRangeQuery{}},
		{name: "phrase", query: &PhraseQuery{Terms: []PositionedTerm{
			{Term: StrTerm(ts.title, "a")}, {Term: StrTerm(ts.title, "b"), Offset: 2},
		}}, want: &bluge.MultiPhraseQuery{}},
		{name: "lone prefix", query: &PhrasePrefixQuery{Prefix: PositionedTerm{Term: StrTerm(ts.title, "he")}}, want: &bluge.PrefixQuery{}},
		{name: "term set", query: &TermSetQuery{Terms: []Term{StrTerm(ts.title, "a")}}, want: &bluge.BooleanQuery{}},
		{name: "ip range", query: &RangeQuery{
			Field: ts.ip,
			Type:  schema.TypeIPAddr,
			Upper: ast.IncludedBound(IPTerm(ts.ip, netip.MustParseAddr("::1"))),
		}, want: &bluge.TermRangeQuery{}},
		{name: "date range", query: &RangeQuery{Field: ts.dt, Type: schema.TypeDate}, want: &bluge.DateRangeQuery{}},
		{name: "numeric range", query: &RangeQuery{Field: ts.count, Type: schema.TypeU64}, want: &bluge.NumericRangeQuery{}},
		{name: "boost", query: &BoostQuery{Underlying: &AllQuery{}, Boost: 2}, want: &bluge.BooleanQuery{}},
		{name: "exclusions only", query: NewBoolQuery().Add(MustNot, &AllQuery{}), want: &bluge.BooleanQuery{}},
		{name: "all", query: &AllQuery{}, want: &bluge.MatchAllQuery{}},
		{name: "none", query: &EmptyQuery{}, want: &bluge.MatchNoneQuery{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.IsType(t, tt.want, tt.query.ToBluge(ts.s))
		})
	}
}

func TestPhraseTermsGaps(t *testing.T) {
	slots := phraseTerms([]PositionedTerm{
		{Term: StrTerm(0, "a")},
		{Term: StrTerm(0, "b"), Offset: 2},
		{Term: StrTerm(0, "c"), Offset: 2},
	})
	assert.Equal(t, [][]string{{"a"}, nil, {"b", "c"}}, slots)
}
