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

// Package dsl converts the Elasticsearch query DSL into query trees.
package dsl

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
)

var (
	errUnknownClause   = errors.New("unknown clause")
	errSingleKey       = errors.New("a clause is an object with exactly one key")
	errSingleField     = errors.New("a leaf clause targets exactly one field")
	errMissingQuery    = errors.New("missing query")
	errUnknownMatch    = errors.New("unknown match type")
	errConflictedBound = errors.New("a range bound is set twice")
)

// Parse converts an Elasticsearch query into a query tree. Every failure matches
// query.ErrMalformedInput.
func Parse(data []byte) (ast.Query, error) {
	q, err := parseClause(data)
	if err != nil {
		return nil, errors.WithMessage(query.ErrMalformedInput, err.Error())
	}
	return q, nil
}

type clauseParser func(json.RawMessage) (ast.Query, error)

var clauseParsers map[string]clauseParser

// The table refers to parseBool which recurses into parseClause.
func init() {
	clauseParsers = map[string]clauseParser{
		"bool":         parseBool,
		"term":         parseTerm,
		"terms":        parseTerms,
		"match":        parseMatch,
		"match_phrase": parseMatchPhrase,
		"range":        parseRange,
		"query_string": parseQueryString,
		"match_all":    parseMatchAll,
		"match_none":   parseMatchNone,
	}
}

func parseClause(data []byte) (ast.Query, error) {
	var clause map[string]json.RawMessage
	if err := json.Unmarshal(data, &clause); err != nil {
		return nil, err
	}
	if len(clause) != 1 {
		return nil, errors.WithMessagef(errSingleKey, "got %d keys", len(clause))
	}
	for name, body := range clause {
		parse, ok := clauseParsers[name]
		if !ok {
			return nil, errors.WithMessagef(errUnknownClause, "%q", name)
		}
		q, err := parse(body)
		if err != nil {
			return nil, errors.WithMessage(err, name)
		}
		return q, nil
	}
	return nil, errSingleKey
}

// boosted wraps q when boost is set.
func boosted(q ast.Query, boost *float32) (ast.Query, error) {
	if boost == nil {
		return q, nil
	}
	return ast.NewBoost(q, *boost)
}

type boolClause struct {
	Boost   *float32        `json:"boost"`
	Must    json.RawMessage `json:"must"`
	MustNot json.RawMessage `json:"must_not"`
	Should  json.RawMessage `json:"should"`
	Filter  json.RawMessage `json:"filter"`
}

func parseBool(data json.RawMessage) (ast.Query, error) {
	var c boolClause
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	b := &ast.BoolQuery{}
	for _, occur := range []struct {
		dst  *[]ast.Query
		raw  json.RawMessage
		name string
	}{
		{&b.Must, c.Must, "must"},
		{&b.MustNot, c.MustNot, "must_not"},
		{&b.Should, c.Should, "should"},
		{&b.Filter, c.Filter, "filter"},
	} {
		list, err := parseClauses(occur.raw)
		if err != nil {
			return nil, errors.WithMessage(err, occur.name)
		}
		*occur.dst = list
	}
	return boosted(b, c.Boost)
}

// parseClauses accepts a single clause or a list of clauses.
func parseClauses(data json.RawMessage) ([]ast.Query, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] != '[' {
		q, err := parseClause(data)
		if err != nil {
			return nil, err
		}
		return []ast.Query{q}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]ast.Query, 0, len(raw))
	for _, r := range raw {
		q, err := parseClause(r)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// fieldClause splits the body of a leaf clause into its field and parameters. The
// parameters are either a bare value or an object.
func fieldClause(data json.RawMessage) (string, json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, err
	}
	if len(fields) != 1 {
		return "", nil, errors.WithMessagef(errSingleField, "got %d fields", len(fields))
	}
	for name, params := range fields {
		return name, params, nil
	}
	return "", nil, errSingleField
}

func isObject(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

// literal decodes a string, number or bool into its text.
func literal(data json.RawMessage) (string, error) {
	var l ast.JSONLiteral
	if err := json.Unmarshal(data, &l); err != nil {
		return "", err
	}
	return l.String(), nil
}

type termParams struct {
	Value json.RawMessage `json:"value"`
	Boost *float32        `json:"boost"`
}

func parseTerm(data json.RawMessage) (ast.Query, error) {
	field, params, err := fieldClause(data)
	if err != nil {
		return nil, err
	}
	p := termParams{Value: params}
	if isObject(params) {
		p = termParams{}
		if err = json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
	}
	if len(p.Value) == 0 {
		return nil, errors.WithMessagef(errMissingQuery, "no value for field %q", field)
	}
	value, err := literal(p.Value)
	if err != nil {
		return nil, err
	}
	return boosted(&ast.TermQuery{Field: field, Value: value}, p.Boost)
}

func parseTerms(data json.RawMessage) (ast.Query, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	var boost *float32
	if raw, ok := body["boost"]; ok {
		boost = new(float32)
		if err := json.Unmarshal(raw, boost); err != nil {
			return nil, err
		}
		delete(body, "boost")
	}
	if len(body) != 1 {
		return nil, errors.WithMessagef(errSingleField, "got %d fields", len(body))
	}
	termsPerField := make(map[string][]string, 1)
	for field, raw := range body {
		var values []json.RawMessage
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, err
		}
		texts := make([]string, 0, len(values))
		for _, v := range values {
			text, err := literal(v)
			if err != nil {
				return nil, err
			}
			texts = append(texts, text)
		}
		termsPerField[field] = texts
	}
	return boosted(&ast.TermSetQuery{TermsPerField: termsPerField}, boost)
}

type matchParams struct {
	Boost    *float32        `json:"boost"`
	Query    json.RawMessage `json:"query"`
	Type     string          `json:"type"`
	Operator string          `json:"operator"`
	Slop     uint32          `json:"slop"`
}

func parseMatchParams(data json.RawMessage) (string, *matchParams, error) {
	field, params, err := fieldClause(data)
	if err != nil {
		return "", nil, err
	}
	p := &matchParams{Query: params}
	if isObject(params) {
		p = &matchParams{}
		if err = json.Unmarshal(params, p); err != nil {
			return "", nil, err
		}
	}
	if len(p.Query) == 0 {
		return "", nil, errors.WithMessagef(errMissingQuery, "no query for field %q", field)
	}
	return field, p, nil
}

func parseMatch(data json.RawMessage) (ast.Query, error) {
	field, p, err := parseMatchParams(data)
	if err != nil {
		return nil, err
	}
	text, err := literal(p.Query)
	if err != nil {
		return nil, err
	}
	var q ast.Query
	switch strings.ToLower(p.Type) {
	case "", "boolean":
		op := ast.OperatorOr
		if p.Operator != "" {
			if op, err = ast.ParseDefaultOperator(strings.ToUpper(p.Operator)); err != nil {
				return nil, err
			}
		}
		q = matchTokens(field, text, op)
	case "phrase":
		q = &ast.PhraseQuery{Field: field, Phrase: text, Slop: p.Slop}
	case "phrase_prefix":
		q = &ast.TermQuery{Field: field, Value: text, IsPhrasePrefix: true}
	default:
		return nil, errors.WithMessagef(errUnknownMatch, "%q", p.Type)
	}
	return boosted(q, p.Boost)
}

// matchTokens searches field for the whitespace separated tokens of text. Any token matches
// under OperatorOr, all of them are required under OperatorAnd.
func matchTokens(field, text string, op ast.DefaultOperator) ast.Query {
	tokens := strings.Fields(text)
	switch len(tokens) {
	case 0:
		return &ast.MatchNoneQuery{}
	case 1:
		return &ast.TermQuery{Field: field, Value: tokens[0]}
	}
	terms := make([]ast.Query, 0, len(tokens))
	for _, token := range tokens {
		terms = append(terms, &ast.TermQuery{Field: field, Value: token})
	}
	if op == ast.OperatorAnd {
		return &ast.BoolQuery{Must: terms}
	}
	return &ast.BoolQuery{Should: terms}
}

func parseMatchPhrase(data json.RawMessage) (ast.Query, error) {
	field, p, err := parseMatchParams(data)
	if err != nil {
		return nil, err
	}
	text, err := literal(p.Query)
	if err != nil {
		return nil, err
	}
	return boosted(&ast.PhraseQuery{Field: field, Phrase: text, Slop: p.Slop}, p.Boost)
}

type rangeParams struct {
	Gt    *ast.JSONLiteral `json:"gt"`
	Gte   *ast.JSONLiteral `json:"gte"`
	Lt    *ast.JSONLiteral `json:"lt"`
	Lte   *ast.JSONLiteral `json:"lte"`
	Boost *float32         `json:"boost"`
}

func bound(included, excluded *ast.JSONLiteral) (ast.Bound[ast.JSONLiteral], error) {
	switch {
	case included != nil && excluded != nil:
		return ast.Bound[ast.JSONLiteral]{}, errConflictedBound
	case included != nil:
		return ast.IncludedBound(*included), nil
	case excluded != nil:
		return ast.ExcludedBound(*excluded), nil
	}
	return ast.UnboundedBound[ast.JSONLiteral](), nil
}

func parseRange(data json.RawMessage) (ast.Query, error) {
	field, params, err := fieldClause(data)
	if err != nil {
		return nil, err
	}
	var p rangeParams
	if err = json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	lower, err := bound(p.Gte, p.Gt)
	if err != nil {
		return nil, errors.WithMessage(err, "lower")
	}
	upper, err := bound(p.Lte, p.Lt)
	if err != nil {
		return nil, errors.WithMessage(err, "upper")
	}
	return boosted(&ast.RangeQuery{Field: field, LowerBound: lower, UpperBound: upper}, p.Boost)
}

type queryStringParams struct {
	Query           *string  `json:"query"`
	Boost           *float32 `json:"boost"`
	DefaultField    string   `json:"default_field"`
	DefaultOperator string   `json:"default_operator"`
	Fields          []string `json:"fields"`
}

func parseQueryString(data json.RawMessage) (ast.Query, error) {
	var p queryStringParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Query == nil {
		return nil, errMissingQuery
	}
	u := &ast.UserTextQuery{UserText: *p.Query, DefaultOperator: ast.OperatorOr}
	if p.DefaultOperator != "" {
		op, err := ast.ParseDefaultOperator(strings.ToUpper(p.DefaultOperator))
		if err != nil {
			return nil, err
		}
		u.DefaultOperator = op
	}
	fields := p.Fields
	if p.DefaultField != "" {
		fields = append([]string{p.DefaultField}, fields...)
	}
	u.DefaultFields = dedup(fields)
	return boosted(u, p.Boost)
}

func dedup(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

type matchAllParams struct {
	Boost *float32 `json:"boost"`
}

func parseMatchAll(data json.RawMessage) (ast.Query, error) {
	var p matchAllParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return boosted(&ast.MatchAllQuery{}, p.Boost)
}

func parseMatchNone(data json.RawMessage) (ast.Query, error) {
	if err := json.Unmarshal(data, &matchAllParams{}); err != nil {
		return nil, err
	}
	return &ast.MatchNoneQuery{}, nil
}

// Clauses returns the names of the supported clauses.
func Clauses() []string {
	names := make([]string, 0, len(clauseParsers))
	for name := range clauseParsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
