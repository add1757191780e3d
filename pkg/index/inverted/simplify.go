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

// Simplify rewrites q into an equivalent query with fewer nodes. Nested boolean queries
// of the same kind are flattened, single clause wrappers collapsed and clauses that can
// not match pruned.
func Simplify(q Query) Query {
	switch n := q.(type) {
	case *BoolQuery:
		return simplifyBool(n)
	case *BoostQuery:
		underlying := Simplify(n.Underlying)
		if IsEmpty(underlying) {
			return underlying
		}
		return &BoostQuery{Underlying: underlying, Boost: n.Boost}
	case *TermSetQuery:
		if len(n.Terms) == 0 {
			return &EmptyQuery{}
		}
	}
	return q
}

func simplifyBool(q *BoolQuery) Query {
	var (
		clauses   = make([]Clause, 0, len(q.Clauses))
		hadShould bool
	)
	for _, c := range q.Clauses {
		sub := Simplify(c.Query)
		switch c.Occur {
		case Must, Filter:
			if IsEmpty(sub) {
				return &EmptyQuery{}
			}
			if inner, ok := sub.(*BoolQuery); ok && conjunctive(inner) {
				for _, ic := range inner.Clauses {
					// Filter clauses stay unscored under a Must.
					if ic.Occur == Must {
						ic.Occur = c.Occur
					}
					clauses = append(clauses, ic)
				}
				continue
			}
		case Should:
			hadShould = true
			if IsEmpty(sub) {
				continue
			}
			if inner, ok := sub.(*BoolQuery); ok && disjunctive(inner) {
				clauses = append(clauses, inner.Clauses...)
				continue
			}
		case MustNot:
			if IsEmpty(sub) {
				continue
			}
			if IsAll(sub) {
				return &EmptyQuery{}
			}
		}
		clauses = append(clauses, Clause{Occur: c.Occur, Query: sub})
	}
	clauses = dropRedundantAll(clauses)

	var required, should, excluded int
	for _, c := range clauses {
		switch c.Occur {
		case Must, Filter:
			required++
		case Should:
			should++
		case MustNot:
			excluded++
		}
	}
	if hadShould && should == 0 && required == 0 {
		return &EmptyQuery{}
	}
	if len(clauses) == 0 {
		return &AllQuery{}
	}
	if len(clauses) == 1 && clauses[0].Occur != MustNot {
		return clauses[0].Query
	}
	return &BoolQuery{Clauses: clauses}
}

// dropRedundantAll removes the required match all clauses when another required
// clause remains.
func dropRedundantAll(clauses []Clause) []Clause {
	var required, all int
	for _, c := range clauses {
		if c.Occur == Must || c.Occur == Filter {
			required++
			if IsAll(c.Query) {
				all++
			}
		}
	}
	if all == 0 || (required == all && all == 1) {
		return clauses
	}
	keepOne := required == all
	out := clauses[:0]
	for _, c := range clauses {
		if (c.Occur == Must || c.Occur == Filter) && IsAll(c.Query) {
			if !keepOne {
				continue
			}
			keepOne = false
		}
		out = append(out, c)
	}
	return out
}

// conjunctive reports whether q has required clauses and no optional one. Such a query
// keeps its meaning when its clauses are merged into a parent's required clauses.
func conjunctive(q *BoolQuery) bool {
	required := false
	for _, c := range q.Clauses {
		switch c.Occur {
		case Should:
			return false
		case Must, Filter:
			required = true
		}
	}
	return required
}

func disjunctive(q *BoolQuery) bool {
	for _, c := range q.Clauses {
		if c.Occur != Should {
			return false
		}
	}
	return true
}
