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
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/dsl"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/usertext"
	"github.com/apache/skywalking-banyandb-querydsl/querydsl/pkg/file"
)

var errNoText = errors.New("a query text or --file is required")

func newParseCmd(p *printer) *cobra.Command {
	var (
		searchFields []string
		operator     string
		path         string
		describe     bool
	)
	parseCmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Parse a free text or an Elasticsearch query into a query tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			var queries []ast.Query
			switch {
			case path != "":
				contents, err := file.Read(path, cmd.InOrStdin(), ".json")
				if err != nil {
					return err
				}
				for _, c := range contents {
					q, err := dsl.Parse(c.Data)
					if err != nil {
						return errors.WithMessage(err, c.Path)
					}
					queries = append(queries, q)
				}
			case len(args) > 0:
				op, err := ast.ParseDefaultOperator(strings.ToUpper(operator))
				if err != nil {
					return err
				}
				q, err := usertext.Parse(strings.Join(args, " "), searchFields, op)
				if err != nil {
					return err
				}
				queries = append(queries, q)
			default:
				return errNoText
			}
			out := cmd.OutOrStdout()
			for i, q := range queries {
				if describe {
					fmt.Fprintln(out, ast.Describe(q))
					continue
				}
				if err := p.print(out, i, q); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags := parseCmd.Flags()
	flags.StringSliceVar(&searchFields, "search-field", nil, "the fields searched by the clauses without a field")
	flags.StringVar(&operator, "default-operator", "and", "the operator joining the clauses without a connective, and or or")
	flags.StringVarP(&path, "file", "f", "", "a file, a directory or - (stdin) holding Elasticsearch queries")
	flags.BoolVar(&describe, "describe", false, "print the compact form of the tree")
	return parseCmd
}
