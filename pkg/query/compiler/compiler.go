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

// Package compiler turns a query tree into the compiled query evaluated by the inverted
// index, checking every node against a schema.
package compiler

import (
	"sort"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/analyzer"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/inverted"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

var defaultTokenizers = analyzer.NewRegistry()

// Options tune a compilation.
type Options struct {
	// Tokenizers resolves the tokenizer names of the text fields. The built-in
	// analyzers are used when nil.
	Tokenizers *analyzer.Registry
	// WithValidation makes every node failure fail the compilation. Without it, a node
	// that fails to compile matches nothing.
	WithValidation bool
}

type compiler struct {
	schema     *schema.Schema
	tokenizers *analyzer.Registry
	validate   bool
}

// Compile compiles q against s, then simplifies the result.
//
// Parsing user text and reaching an unimplemented combination of query and field type
// fail the compilation in both validation modes.
func Compile(q ast.Query, s *schema.Schema, opts Options) (inverted.Query, error) {
	c := &compiler{schema: s, tokenizers: opts.Tokenizers, validate: opts.WithValidation}
	if c.tokenizers == nil {
		c.tokenizers = defaultTokenizers
	}
	compiled, err := c.call(q)
	if err != nil {
		return nil, err
	}
	return inverted.Simplify(compiled), nil
}

// call is the only entry into node compilation.
func (c *compiler) call(q ast.Query) (inverted.Query, error) {
	compiled, err := c.compile(q)
	if err != nil {
		if !c.validate && !query.IsFatal(err) {
			return &inverted.EmptyQuery{}, nil
		}
		return nil, err
	}
	return compiled, nil
}

func (c *compiler) compile(q ast.Query) (inverted.Query, error) {
	switch n := q.(type) {
	case *ast.BoolQuery:
		return c.compileBool(n)
	case *ast.TermQuery:
		return c.compileTerm(n)
	case *ast.TermSetQuery:
		return c.compileTermSet(n)
	case *ast.PhraseQuery:
		return c.compilePhrase(n)
	case *ast.RangeQuery:
		return c.compileRange(n)
	case *ast.BoostQuery:
		underlying, err := c.call(n.Underlying)
		if err != nil {
			return nil, err
		}
		return &inverted.BoostQuery{Underlying: underlying, Boost: n.Boost}, nil
	case *ast.MatchAllQuery:
		return &inverted.AllQuery{}, nil
	case *ast.MatchNoneQuery:
		return &inverted.EmptyQuery{}, nil
	case *ast.UserTextQuery:
		return nil, query.ErrUserQueryNotParsed
	}
	return nil, query.ErrMalformedInput
}

func (c *compiler) compileBool(q *ast.BoolQuery) (inverted.Query, error) {
	b := inverted.NewBoolQuery()
	for _, group := range []struct {
		list  []ast.Query
		occur inverted.Occur
	}{
		{q.Must, inverted.Must},
		{q.MustNot, inverted.MustNot},
		{q.Should, inverted.Should},
		{q.Filter, inverted.Filter},
	} {
		for _, sub := range group.list {
			compiled, err := c.call(sub)
			if err != nil {
				return nil, err
			}
			b.Add(group.occur, compiled)
		}
	}
	if len(b.Clauses) == 0 {
		return &inverted.AllQuery{}, nil
	}
	return b, nil
}

func (c *compiler) compileTerm(q *ast.TermQuery) (inverted.Query, error) {
	field, entry, path, err := schema.FindFieldOrHitDynamic(q.Field, c.schema)
	if err != nil {
		return nil, err
	}
	return c.fieldQuery(field, entry, path, q.Value, textMode{tokenize: true, phrasePrefix: q.IsPhrasePrefix})
}

func (c *compiler) compilePhrase(q *ast.PhraseQuery) (inverted.Query, error) {
	field, entry, path, err := schema.FindFieldOrHitDynamic(q.Field, c.schema)
	if err != nil {
		return nil, err
	}
	return c.fieldQuery(field, entry, path, q.Phrase, textMode{tokenize: true, slop: q.Slop})
}

func (c *compiler) compileTermSet(q *ast.TermSetQuery) (inverted.Query, error) {
	fields := make([]string, 0, len(q.TermsPerField))
	for f := range q.TermsPerField {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var terms []inverted.Term
	seen := make(map[inverted.Term]struct{})
	for _, fullPath := range fields {
		values := q.TermsPerField[fullPath]
		if len(values) == 0 {
			continue
		}
		field, entry, path, err := schema.FindFieldOrHitDynamic(fullPath, c.schema)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			valueTerms, err := c.verbatimTerms(field, entry, path, v)
			if err != nil {
				return nil, err
			}
			for _, t := range valueTerms {
				if _, ok := seen[t]; ok {
					continue
				}
				seen[t] = struct{}{}
				terms = append(terms, t)
			}
		}
	}
	if len(terms) == 0 {
		return &inverted.EmptyQuery{}, nil
	}
	return &inverted.TermSetQuery{Terms: terms}, nil
}
