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

package schema

import (
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
)

// FindFieldOrHitDynamic resolves fullPath against s. Paths without a matching field fall back
// to the dynamic field, the whole path becoming the sub path into it.
//
// The root of a JSON field is not searchable, and only JSON fields accept a sub path.
func FindFieldOrHitDynamic(fullPath string, s *Schema) (Field, *FieldEntry, string, error) {
	field, path, ok := s.FindField(fullPath)
	if !ok {
		dynamic, found := s.GetField(DynamicFieldName)
		if !found {
			return 0, nil, "", query.FieldDoesNotExist(fullPath)
		}
		field, path = dynamic, fullPath
	}
	entry := s.FieldEntry(field)
	if path == "" {
		if entry.Type == TypeJSON {
			return 0, nil, "", query.JSONFieldRootNotSearchable(fullPath)
		}
	} else if entry.Type != TypeJSON {
		return 0, nil, "", query.FieldDoesNotExist(fullPath)
	}
	return field, entry, path, nil
}
