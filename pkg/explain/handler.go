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

package explain

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/inverted"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/logger"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/builder"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/dsl"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

const maxBodySize = 1 << 20

var errNoQuery = errors.New("one of query, query_ast and user_text is required")

// CompileRequest is the body of a compile request. Exactly one of Query, an Elasticsearch
// query, QueryAST, a query tree, and UserText holds the query.
type CompileRequest struct {
	WithValidation *bool           `json:"with_validation,omitempty"`
	Query          json.RawMessage `json:"query,omitempty"`
	QueryAST       json.RawMessage `json:"query_ast,omitempty"`
	UserText       string          `json:"user_text,omitempty"`
	SortByField    string          `json:"sort_by_field,omitempty"`
	SearchFields   []string        `json:"search_fields,omitempty"`
}

// CompileResponse describes a compiled query.
type CompileResponse struct {
	Query       json.RawMessage      `json:"query"`
	Index       string               `json:"index"`
	Fingerprint string               `json:"fingerprint"`
	Warmup      builder.WarmupReport `json:"warmup"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Fingerprint hashes the description of a compiled query. Equivalent compilations share
// their fingerprint.
func Fingerprint(description string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(description))
}

// Resolve returns the query tree of r in its JSON form.
func (r *CompileRequest) Resolve() (string, error) {
	var sources int
	for _, set := range []bool{len(r.Query) > 0, len(r.QueryAST) > 0, r.UserText != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return "", errors.WithMessage(query.ErrMalformedInput, errNoQuery.Error())
	}
	switch {
	case len(r.Query) > 0:
		q, err := dsl.Parse(r.Query)
		if err != nil {
			return "", err
		}
		data, err := ast.Marshal(q)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case len(r.QueryAST) > 0:
		return string(r.QueryAST), nil
	}
	return ast.QueryStringWithDefaultFields(r.UserText, r.SearchFields)
}

func (s *Server) compile(w http.ResponseWriter, r *http.Request) {
	index := chi.URLParam(r, "index")
	l := s.l.Named("compile")
	ctx := logger.WithContext(r.Context(), l)

	var req CompileRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		s.fail(w, "compile", errors.WithMessage(query.ErrMalformedInput, err.Error()))
		return
	}
	sc, err := s.schemas.Get(index)
	if err != nil {
		s.fail(w, "compile", err)
		return
	}
	queryAST, err := req.Resolve()
	if err != nil {
		s.fail(w, "compile", err)
		return
	}
	withValidation := s.cfg.WithValidation
	if req.WithValidation != nil {
		withValidation = *req.WithValidation
	}
	searchReq := &builder.SearchRequest{
		IndexID:      index,
		QueryAST:     queryAST,
		SortByField:  req.SortByField,
		SearchFields: req.SearchFields,
	}
	compiled, warmup, err := s.builder.Build(ctx, searchReq, sc, withValidation)
	if err != nil {
		s.fail(w, "compile", err)
		return
	}
	s.reply(w, "compile", http.StatusOK, NewCompileResponse(index, compiled, warmup, sc))
}

// NewCompileResponse describes the compilation of a query of index.
func NewCompileResponse(index string, compiled inverted.Query, warmup *builder.WarmupInfo, s *schema.Schema) *CompileResponse {
	description := inverted.Explain(compiled, s)
	return &CompileResponse{
		Index:       index,
		Query:       json.RawMessage(description),
		Fingerprint: Fingerprint(description),
		Warmup:      warmup.Report(s),
	}
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	index := chi.URLParam(r, "index")
	s.schemas.Invalidate(index)
	s.l.Info().Str("index", index).Msg("invalidated the cached schema")
	s.requests.Inc(1, "schema", strconv.Itoa(http.StatusNoContent))
	w.WriteHeader(http.StatusNoContent)
}

func statusOf(err error) int {
	var parserErr *builder.QueryParserError
	switch {
	case errors.Is(err, schema.ErrIndexNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrInvalidIndexName), errors.Is(err, query.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrUserQueryNotParsed):
		return http.StatusInternalServerError
	case errors.Is(err, query.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.As(err, &parserErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, route string, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.l.Error().Err(err).Str("route", route).Msg("failed to serve the request")
	}
	s.reply(w, route, code, &ErrorResponse{Error: err.Error()})
}

func (s *Server) reply(w http.ResponseWriter, route string, code int, body interface{}) {
	s.requests.Inc(1, route, strconv.Itoa(code))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.l.Warn().Err(err).Msg("failed to write the response")
	}
}
