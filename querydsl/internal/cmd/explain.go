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
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/explain"
)

const defaultAddr = "127.0.0.1:17990"

var errNoIndex = errors.New("--index is required")

func baseURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return "http://" + addr
}

func newExplainCmd(p *printer) *cobra.Command {
	var (
		addr  string
		index string
		qf    queryFlags
	)
	explainCmd := &cobra.Command{
		Use:   "explain",
		Short: "Compile queries on a running explain server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if index == "" {
				return errNoIndex
			}
			requests, err := qf.requests(cmd.InOrStdin())
			if err != nil {
				return err
			}
			client := resty.New().SetBaseURL(baseURL(addr))
			for i, r := range requests {
				resp, err := client.R().
					SetPathParam("index", index).
					SetBody(r.req).
					SetError(&explain.ErrorResponse{}).
					Post("/api/v1/{index}/compile")
				if err != nil {
					return err
				}
				if resp.IsError() {
					if e, ok := resp.Error().(*explain.ErrorResponse); ok && e.Error != "" {
						return errors.Errorf("%s: %s: %s", r.source, resp.Status(), e.Error)
					}
					return errors.Errorf("%s: %s", r.source, resp.Status())
				}
				if err = p.printRaw(cmd.OutOrStdout(), i, resp.Body()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags := explainCmd.Flags()
	flags.StringVarP(&addr, "addr", "a", defaultAddr, "the address of the explain server")
	flags.StringVarP(&index, "index", "i", "", "the index whose schema compiles the queries")
	qf.register(flags)
	return explainCmd
}
