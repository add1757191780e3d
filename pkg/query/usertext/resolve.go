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
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
)

// ResolveUserText returns q with every user text node replaced by its parsed tree. A node
// searches its own default fields when it has some, defaultFields otherwise. q is left
// untouched.
func ResolveUserText(q ast.Query, defaultFields []string) (ast.Query, error) {
	switch n := q.(type) {
	case *ast.UserTextQuery:
		fields := n.DefaultFields
		if len(fields) == 0 {
			fields = defaultFields
		}
		return Parse(n.UserText, fields, n.DefaultOperator)
	case *ast.BoolQuery:
		b := &ast.BoolQuery{}
		for _, group := range []struct {
			src []ast.Query
			dst *[]ast.Query
		}{
			{n.Must, &b.Must},
			{n.MustNot, &b.MustNot},
			{n.Should, &b.Should},
			{n.Filter, &b.Filter},
		} {
			for _, sub := range group.src {
				resolved, err := ResolveUserText(sub, defaultFields)
				if err != nil {
					return nil, err
				}
				*group.dst = append(*group.dst, resolved)
			}
		}
		return b, nil
	case *ast.BoostQuery:
		underlying, err := ResolveUserText(n.Underlying, defaultFields)
		if err != nil {
			return nil, err
		}
		return &ast.BoostQuery{Underlying: underlying, Boost: n.Boost}, nil
	}
	return q, nil
}
