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
	"testing"

	"github.com/stretchr/testify/assert"
)

func term(text string) Query {
	return &TermQuery{Term: StrTerm(0, text)}
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		in   Query
		want Query
		name string
	}{
		{name: "empty bool matches all", in: NewBoolQuery(), want: &AllQuery{}},
		{name: "single must collapses", in: NewBoolQuery().Add(Must, term("a")), want: term("a")},
		{name: "single should collapses", in: NewBoolQuery().Add(Should, term("a")), want: term("a")},
		{name: "single exclusion stays", in: NewBoolQuery().Add(MustNot, term("a")), want: NewBoolQuery().Add(MustNot, term("a"))},
		{name: "empty must prunes everything", in: NewBoolQuery().Add(Must, term("a")).Add(Must, &EmptyQuery{}), want: &EmptyQuery{}},
		{name: "empty should is dropped", in: NewBoolQuery().Add(Should, &EmptyQuery{}).Add(Should, term("a")), want: term("a")},
		{name: "only empty shoulds", in: NewBoolQuery().Add(Should, &EmptyQuery{}).Add(MustNot, term("a")), want: &EmptyQuery{}},
		{name: "empty exclusion is dropped", in: NewBoolQuery().Add(Must, term("a")).Add(MustNot, &EmptyQuery{}), want: term("a")},
		{name: "excluding all", in: NewBoolQuery().Add(Must, term("a")).Add(MustNot, &AllQuery{}), want: &EmptyQuery{}},
		{
			name: "nested musts flatten",
			in:   NewBoolQuery().Add(Must, NewBoolQuery().Add(Must, term("a")).Add(MustNot, term("b"))).Add(Must, term("c")),
			want: NewBoolQuery().Add(Must, term("a")).Add(MustNot, term("b")).Add(Must, term("c")),
		},
		{
			name: "nested filter flattens as filter",
			in:   NewBoolQuery().Add(Filter, NewBoolQuery().Add(Must, term("a")).Add(Must, term("b"))).Add(Must, term("c")),
			want: NewBoolQuery().Add(Filter, term("a")).Add(Filter, term("b")).Add(Must, term("c")),
		},
		{
			name: "nested filter keeps filtering under a must",
			in:   NewBoolQuery().Add(Must, NewBoolQuery().Add(Must, term("a")).Add(Filter, term("b"))).Add(Must, term("c")),
			want: NewBoolQuery().Add(Must, term("a")).Add(Filter, term("b")).Add(Must, term("c")),
		},
		{
			name: "nested filters flatten under a filter",
			in:   NewBoolQuery().Add(Filter, NewBoolQuery().Add(Filter, term("a")).Add(MustNot, term("b"))).Add(Must, term("c")),
			want: NewBoolQuery().Add(Filter, term("a")).Add(MustNot, term("b")).Add(Must, term("c")),
		},
		{
			name: "nested shoulds flatten",
			in:   NewBoolQuery().Add(Should, NewBoolQuery().Add(Should, term("a")).Add(Should, term("b"))).Add(Should, term("c")),
			want: NewBoolQuery().Add(Should, term("a")).Add(Should, term("b")).Add(Should, term("c")),
		},
		{
			name: "exclusions only do not flatten into musts",
			in:   NewBoolQuery().Add(Must, NewBoolQuery().Add(MustNot, term("a"))).Add(Should, term("b")),
			want: NewBoolQuery().Add(Must, NewBoolQuery().Add(MustNot, term("a"))).Add(Should, term("b")),
		},
		{
			name: "redundant match all",
			in:   NewBoolQuery().Add(Must, &AllQuery{}).Add(Must, term("a")),
			want: term("a"),
		},
		{
			name: "match all keeps exclusions meaningful",
			in:   NewBoolQuery().Add(Must, &AllQuery{}).Add(MustNot, term("a")),
			want: NewBoolQuery().Add(Must, &AllQuery{}).Add(MustNot, term("a")),
		},
		{name: "empty boost", in: &BoostQuery{Underlying: NewBoolQuery().Add(Must, &EmptyQuery{}), Boost: 2}, want: &EmptyQuery{}},
		{name: "boost keeps factor", in: &BoostQuery{Underlying: NewBoolQuery().Add(Must, term("a")), Boost: 2}, want: &BoostQuery{Underlying: term("a"), Boost: 2}},
		{name: "empty term set", in: &TermSetQuery{}, want: &EmptyQuery{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Simplify(tt.in))
		})
	}
}
