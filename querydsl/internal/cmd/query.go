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

package cmd

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/explain"
	"github.com/apache/skywalking-banyandb-querydsl/querydsl/pkg/file"
)

var errNoQuery = errors.New("one of --query, --query-ast and --file is required")

// queryFlags select the queries to compile.
type queryFlags struct {
	queryAST     string
	text         string
	path         string
	sortBy       string
	searchFields []string
	lenient      bool
}

func (q *queryFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&q.text, "query", "q", "", "the query in the free text syntax")
	fs.StringVar(&q.queryAST, "query-ast", "", "the query tree in its JSON form")
	fs.StringVarP(&q.path, "file", "f", "", "a file, a directory or - (stdin) holding Elasticsearch queries")
	fs.StringSliceVar(&q.searchFields, "search-field", nil, "the fields searched by the clauses without a field")
	fs.StringVar(&q.sortBy, "sort-by", "", "the field the hits are sorted by, or _score")
	fs.BoolVar(&q.lenient, "lenient", false, "make the clauses failing validation match nothing instead of failing")
}

type sourcedRequest struct {
	source string
	req    explain.CompileRequest
}

func (q *queryFlags) requests(stdin io.Reader) ([]sourcedRequest, error) {
	base := explain.CompileRequest{SearchFields: q.searchFields, SortByField: q.sortBy}
	if q.lenient {
		withValidation := false
		base.WithValidation = &withValidation
	}
	var sources int
	for _, s := range []string{q.text, q.queryAST, q.path} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, errNoQuery
	}
	switch {
	case q.text != "":
		base.UserText = q.text
		return []sourcedRequest{{source: "--query", req: base}}, nil
	case q.queryAST != "":
		base.QueryAST = json.RawMessage(q.queryAST)
		return []sourcedRequest{{source: "--query-ast", req: base}}, nil
	}
	contents, err := file.Read(q.path, stdin, ".json")
	if err != nil {
		return nil, err
	}
	requests := make([]sourcedRequest, 0, len(contents))
	for _, c := range contents {
		req := base
		req.Query = c.Data
		requests = append(requests, sourcedRequest{source: c.Path, req: req})
	}
	return requests, nil
}
