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

// Package builder turns a search request into a compiled query and the plan of the index
// resources its execution loads.
package builder

import (
	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/analyzer"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/inverted"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/compiler"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/usertext"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

// SearchRequest is the part of a search request the builder reads.
type SearchRequest struct {
	IndexID string `json:"index_id"`
	// QueryAST is the query tree in its JSON form.
	QueryAST string `json:"query_ast"`
	// SortByField is a field name, optionally prefixed by the sort order, or `_score`.
	SortByField string `json:"sort_by_field,omitempty"`
	// SearchFields replace the default search fields of the schema.
	SearchFields []string `json:"search_fields,omitempty"`
	MaxHits      uint64   `json:"max_hits"`
	StartOffset  uint64   `json:"start_offset"`
}

// QueryParserError wraps every failure of building a query.
type QueryParserError struct {
	err error
}

func (e *QueryParserError) Error() string {
	return e.err.Error()
}

// Unwrap returns the cause.
func (e *QueryParserError) Unwrap() error {
	return e.err
}

func parserError(err error) error {
	return &QueryParserError{err: err}
}

// BuildQuery decodes the query of req, validates it against s and compiles it. Without
// validation, the nodes failing to compile match no document.
func BuildQuery(req *SearchRequest, s *schema.Schema, withValidation bool) (inverted.Query, *WarmupInfo, error) {
	return buildQuery(req, s, compiler.Options{WithValidation: withValidation})
}

func buildQuery(req *SearchRequest, s *schema.Schema, opts compiler.Options) (inverted.Query, *WarmupInfo, error) {
	q, err := ast.Unmarshal([]byte(req.QueryAST))
	if err != nil {
		return nil, nil, parserError(err)
	}
	searchFields, err := resolveSearchFields(req.SearchFields, s)
	if err != nil {
		return nil, nil, parserError(err)
	}
	defaultFields := req.SearchFields
	if len(defaultFields) == 0 {
		defaultFields = s.DefaultSearchFields()
	}
	if q, err = usertext.ResolveUserText(q, defaultFields); err != nil {
		return nil, nil, parserError(err)
	}

	warmup := NewWarmupInfo()
	warmup.FastFieldNames = ast.RangeFields(q)
	warmup.TermDictFieldNames = ast.TermSetFields(q)
	mergeSet(warmup.PostingFieldNames, warmup.TermDictFieldNames)

	if err = validateSortByField(req.SortByField, searchFields, s); err != nil {
		return nil, nil, parserError(err)
	}
	compiled, err := compiler.Compile(q, s, opts)
	if err != nil {
		return nil, nil, parserError(err)
	}
	warmup.TermsGroupedByField = collectTerms(compiled)
	return compiled, warmup, nil
}

// Options of a Builder.
type Options struct {
	// Tokenizers resolves the tokenizers of the text fields. The built-in analyzers are
	// used when nil.
	Tokenizers *analyzer.Registry
}
