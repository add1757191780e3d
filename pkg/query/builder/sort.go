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

package builder

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

type searchField struct {
	entry *schema.FieldEntry
	name  string
}

// resolveSearchFields resolves the search fields of a request. Each of them must be a field
// of s, or a path into its dynamic field.
func resolveSearchFields(names []string, s *schema.Schema) ([]searchField, error) {
	fields := make([]searchField, 0, len(names))
	for _, name := range names {
		_, entry, _, err := schema.FindFieldOrHitDynamic(name, s)
		if err != nil {
			return nil, err
		}
		fields = append(fields, searchField{name: name, entry: entry})
	}
	return fields, nil
}

// validateSortByField checks the field the hits are sorted by can be sorted by. Sorting by
// score needs the fieldnorms of every search field.
func validateSortByField(sortBy string, searchFields []searchField, s *schema.Schema) error {
	name := strings.TrimLeft(sortBy, "+-")
	if name == "" {
		return nil
	}
	if name == schema.ScoreFieldName {
		for _, f := range searchFields {
			if !f.entry.HasFieldnorms() {
				return errors.WithMessagef(query.ErrMissingFieldNorms,
					"Fieldnorms for field `%s` is missing. Fieldnorms must be stored for the field to compute the BM25 score of the documents.",
					f.name)
			}
		}
		return nil
	}
	f, ok := s.GetField(name)
	if !ok {
		return errors.WithMessagef(query.ErrUnknownSortField, "Unknown sort by field: `%s`", name)
	}
	entry := s.FieldEntry(f)
	if entry.Type == schema.TypeStr {
		return errors.WithMessagef(query.ErrUnsortableField, "Sort by field on type text is currently not supported `%s`.", name)
	}
	if !entry.IsFast() {
		return errors.WithMessagef(query.ErrUnsortableField,
			"Sort by field must be a fast field, please add the fast property to your field `%s`.", name)
	}
	return nil
}
