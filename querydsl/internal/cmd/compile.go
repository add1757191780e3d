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
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/explain"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/builder"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

var errNoSchema = errors.New("one of --schema and --index is required")

type schemaFlags struct {
	file      string
	index     string
	dir       string
	cacheSize int
}

func (f *schemaFlags) load() (*schema.Schema, string, error) {
	switch {
	case f.file != "" && f.index == "":
		s, err := schema.LoadFile(f.file)
		if err != nil {
			return nil, "", err
		}
		return s, strings.TrimSuffix(filepath.Base(f.file), filepath.Ext(f.file)), nil
	case f.file == "" && f.index != "":
		registry, err := schema.NewRegistry(f.dir, f.cacheSize, nil)
		if err != nil {
			return nil, "", err
		}
		s, err := registry.Get(f.index)
		if err != nil {
			return nil, "", err
		}
		return s, f.index, nil
	}
	return nil, "", errNoSchema
}

func newCompileCmd(p *printer) *cobra.Command {
	var (
		sf schemaFlags
		qf queryFlags
	)
	compileCmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile queries against a schema and plan their warmup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, index, err := sf.load()
			if err != nil {
				return err
			}
			requests, err := qf.requests(cmd.InOrStdin())
			if err != nil {
				return err
			}
			b := builder.NewBuilder(nil, builder.Options{})
			for i, r := range requests {
				queryAST, err := r.req.Resolve()
				if err != nil {
					return errors.WithMessage(err, r.source)
				}
				compiled, warmup, err := b.Build(cmd.Context(), &builder.SearchRequest{
					IndexID:      index,
					QueryAST:     queryAST,
					SortByField:  r.req.SortByField,
					SearchFields: r.req.SearchFields,
				}, s, !qf.lenient)
				if err != nil {
					return errors.WithMessage(err, r.source)
				}
				if err = p.print(cmd.OutOrStdout(), i, explain.NewCompileResponse(index, compiled, warmup, s)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags := compileCmd.Flags()
	flags.StringVarP(&sf.file, "schema", "s", "", "the schema definition file")
	flags.StringVarP(&sf.index, "index", "i", "", "the index whose schema is read from --schema-dir")
	flags.StringVar(&sf.dir, "schema-dir", ".", "the directory of the schema definitions")
	flags.IntVar(&sf.cacheSize, "schema-cache-size", 1, "the number of cached schemas")
	qf.register(flags)
	return compileCmd
}
