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

package usertext

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
)

type occur uint8

const (
	occurDefault occur = iota
	occurMust
	occurMustNot
)

func parseOccur(s string) occur {
	switch s {
	case "+":
		return occurMust
	case "-", "NOT":
		return occurMustNot
	}
	return occurDefault
}

type leaf struct {
	q     ast.Query
	occur occur
}

type converter struct {
	defaultFields []string
	op            ast.DefaultOperator
}

// Parse parses text into a query tree. Clauses naming no field search every field of
// defaultFields; clauses without an explicit connective are combined with op.
func Parse(text string, defaultFields []string, op ast.DefaultOperator) (ast.Query, error) {
	if strings.TrimSpace(text) == "" {
		return &ast.MatchNoneQuery{}, nil
	}
	g, err := userTextParser.ParseString("", text)
	if err != nil {
		return nil, errors.WithMessagef(query.ErrMalformedInput, "parse %q: %s", text, err.Error())
	}
	c := &converter{defaultFields: defaultFields, op: op}
	return c.query(g)
}

func (c *converter) query(g *grammarQuery) (ast.Query, error) {
	if len(g.Items) == 0 {
		return &ast.MatchNoneQuery{}, nil
	}
	leaves := make([]leaf, 0, len(g.Items))
	explicit := false
	for i, it := range g.Items {
		if it.Connective != "" {
			if i == 0 {
				return nil, errors.WithMessagef(query.ErrMalformedInput, "%s: unexpected %s", it.Pos, it.Connective)
			}
			explicit = true
		}
		q, err := c.clause(it.Clause)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf{q: q, occur: parseOccur(it.Occur)})
	}
	if !explicit {
		return c.implicit(leaves), nil
	}

	// AND binds tighter than OR. A missing connective is the default operator.
	var (
		groups  [][]leaf
		current []leaf
	)
	for i, l := range leaves {
		if i > 0 && c.connective(g.Items[i].Connective) == "OR" {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, l)
	}
	groups = append(groups, current)
	if len(groups) == 1 {
		return conjunction(groups[0]), nil
	}
	b := &ast.BoolQuery{}
	for _, group := range groups {
		if len(group) > 1 {
			b.Should = append(b.Should, conjunction(group))
			continue
		}
		switch l := group[0]; l.occur {
		case occurMust:
			b.Must = append(b.Must, l.q)
		case occurMustNot:
			b.MustNot = append(b.MustNot, l.q)
		default:
			b.Should = append(b.Should, l.q)
		}
	}
	return matchAllIfNegative(b), nil
}

func (c *converter) connective(s string) string {
	if s != "" {
		return s
	}
	if c.op == ast.OperatorAnd {
		return "AND"
	}
	return "OR"
}

func (c *converter) implicit(leaves []leaf) ast.Query {
	if len(leaves) == 1 && leaves[0].occur == occurDefault {
		return leaves[0].q
	}
	b := &ast.BoolQuery{}
	for _, l := range leaves {
		switch {
		case l.occur == occurMust:
			b.Must = append(b.Must, l.q)
		case l.occur == occurMustNot:
			b.MustNot = append(b.MustNot, l.q)
		case c.op == ast.OperatorAnd:
			b.Must = append(b.Must, l.q)
		default:
			b.Should = append(b.Should, l.q)
		}
	}
	return matchAllIfNegative(b)
}

func conjunction(group []leaf) ast.Query {
	if len(group) == 1 && group[0].occur == occurDefault {
		return group[0].q
	}
	b := &ast.BoolQuery{}
	for _, l := range group {
		if l.occur == occurMustNot {
			b.MustNot = append(b.MustNot, l.q)
			continue
		}
		b.Must = append(b.Must, l.q)
	}
	return matchAllIfNegative(b)
}

// matchAllIfNegative gives a purely negative query a universe to exclude from.
func matchAllIfNegative(b *ast.BoolQuery) *ast.BoolQuery {
	if len(b.MustNot) > 0 && len(b.Must) == 0 && len(b.Should) == 0 && len(b.Filter) == 0 {
		b.Must = []ast.Query{&ast.MatchAllQuery{}}
	}
	return b
}

func (c *converter) clause(g *grammarClause) (ast.Query, error) {
	var (
		q   ast.Query
		err error
	)
	switch {
	case g.Group != nil:
		q, err = c.query(g.Group)
	case g.All:
		q = &ast.MatchAllQuery{}
	default:
		q, err = c.leaf(g.Leaf)
	}
	if err != nil || g.Boost == nil {
		return q, err
	}
	v := g.Boost.Value
	if g.Boost.Negative {
		v = "-" + v
	}
	boost, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return nil, errors.WithMessagef(query.ErrMalformedInput, "invalid boost %q", v)
	}
	boosted, err := ast.NewBoost(q, float32(boost))
	if err != nil {
		return nil, errors.WithMessage(query.ErrMalformedInput, err.Error())
	}
	return boosted, nil
}

func (c *converter) leaf(g *grammarLeaf) (ast.Query, error) {
	if g.Set != nil {
		if g.Field == "" {
			return nil, query.ErrUnsupportedSetQuery
		}
		values := make([]string, 0, len(g.Set.Values))
		for _, v := range g.Set.Values {
			values = append(values, value(v))
		}
		return &ast.TermSetQuery{TermsPerField: map[string][]string{fieldName(g.Field): values}}, nil
	}
	fields := c.defaultFields
	if g.Field != "" {
		fields = []string{fieldName(g.Field)}
	}
	if len(fields) == 0 {
		return nil, query.ErrNoDefaultField
	}
	var build func(field string) (ast.Query, error)
	switch {
	case g.Range != nil:
		lower, upper := rangeBounds(g.Range)
		build = func(field string) (ast.Query, error) {
			return &ast.RangeQuery{Field: field, LowerBound: lower, UpperBound: upper}, nil
		}
	case g.Phrase != nil:
		var slop uint64
		if g.Phrase.Slop != "" {
			var err error
			if slop, err = strconv.ParseUint(g.Phrase.Slop, 10, 32); err != nil {
				return nil, errors.WithMessagef(query.ErrMalformedInput, "invalid slop %q", g.Phrase.Slop)
			}
		}
		text := unquote(g.Phrase.Text)
		build = func(field string) (ast.Query, error) {
			if g.Phrase.Prefix {
				return &ast.TermQuery{Field: field, Value: text, IsPhrasePrefix: true}, nil
			}
			return &ast.PhraseQuery{Field: field, Phrase: text, Slop: uint32(slop)}, nil
		}
	default:
		text := unescape(g.Term.Value)
		if g.Term.Negative {
			text = "-" + text
		}
		build = func(field string) (ast.Query, error) {
			return &ast.TermQuery{Field: field, Value: text}, nil
		}
	}
	if len(fields) == 1 {
		return build(fields[0])
	}
	b := &ast.BoolQuery{}
	for _, f := range fields {
		q, err := build(f)
		if err != nil {
			return nil, err
		}
		b.Should = append(b.Should, q)
	}
	return b, nil
}

func rangeBounds(g *grammarRange) (lower, upper ast.Bound[ast.JSONLiteral]) {
	if g.Comparator != "" {
		b := bound(g.Bound, !strings.HasSuffix(g.Comparator, "="))
		if strings.HasPrefix(g.Comparator, ">") {
			return b, ast.UnboundedBound[ast.JSONLiteral]()
		}
		return ast.UnboundedBound[ast.JSONLiteral](), b
	}
	return bound(g.Lower, g.Open == "{"), bound(g.Upper, g.Close == "}")
}

func bound(g *grammarBound, exclusive bool) ast.Bound[ast.JSONLiteral] {
	if g.Unbounded {
		return ast.UnboundedBound[ast.JSONLiteral]()
	}
	v := value(g.Value)
	if g.Negative {
		v = "-" + v
	}
	if exclusive {
		return ast.ExcludedBound(ast.String(v))
	}
	return ast.IncludedBound(ast.String(v))
}

// value returns the text of a word or a quoted phrase token.
func value(token string) string {
	if strings.HasPrefix(token, `"`) {
		return unquote(token)
	}
	return unescape(token)
}

func unquote(phrase string) string {
	return unescape(phrase[1 : len(phrase)-1])
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// fieldName strips the trailing colon of a field token. Escaped dots are kept, as they
// tell a dot in a field name from a path separator.
func fieldName(token string) string {
	name := token[:len(token)-1]
	if !strings.Contains(name, `\`) {
		return name
	}
	var sb strings.Builder
	sb.Grow(len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' && i+1 < len(name) {
			if name[i+1] == '.' {
				sb.WriteByte('\\')
			}
			i++
		}
		sb.WriteByte(name[i])
	}
	return sb.String()
}
