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
	"sort"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/inverted"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

// TermsByField maps the fields of the compiled terms to the terms, each flagged when its
// positions must be loaded.
type TermsByField map[schema.Field]map[inverted.Term]bool

// WarmupInfo lists the index resources a compiled query touches, so that they can be
// fetched ahead of its execution.
type WarmupInfo struct {
	// FastFieldNames are the fields whose columnar data must be loaded.
	FastFieldNames map[string]struct{}
	// TermDictFieldNames are the fields whose whole term dictionary must be loaded.
	TermDictFieldNames map[string]struct{}
	// PostingFieldNames are the fields whose whole posting lists must be loaded.
	PostingFieldNames map[string]struct{}
	// TermsGroupedByField are the terms whose posting lists must be loaded.
	TermsGroupedByField TermsByField
}

// NewWarmupInfo returns an empty WarmupInfo.
func NewWarmupInfo() *WarmupInfo {
	return &WarmupInfo{
		FastFieldNames:      make(map[string]struct{}),
		TermDictFieldNames:  make(map[string]struct{}),
		PostingFieldNames:   make(map[string]struct{}),
		TermsGroupedByField: make(TermsByField),
	}
}

// Merge adds the resources of other to w. Positions are needed by the merged terms when
// either side needs them.
func (w *WarmupInfo) Merge(other *WarmupInfo) {
	mergeSet(w.FastFieldNames, other.FastFieldNames)
	mergeSet(w.TermDictFieldNames, other.TermDictFieldNames)
	mergeSet(w.PostingFieldNames, other.PostingFieldNames)
	for field, terms := range other.TermsGroupedByField {
		for t, needsPosition := range terms {
			w.TermsGroupedByField.add(field, t, needsPosition)
		}
	}
}

// IsEmpty reports whether nothing has to be loaded.
func (w *WarmupInfo) IsEmpty() bool {
	return len(w.FastFieldNames) == 0 && len(w.TermDictFieldNames) == 0 &&
		len(w.PostingFieldNames) == 0 && len(w.TermsGroupedByField) == 0
}

// TermCount returns the number of distinct terms.
func (w *WarmupInfo) TermCount() int {
	n := 0
	for _, terms := range w.TermsGroupedByField {
		n += len(terms)
	}
	return n
}

func (t TermsByField) add(field schema.Field, term inverted.Term, needsPosition bool) {
	terms, ok := t[field]
	if !ok {
		terms = make(map[inverted.Term]bool)
		t[field] = terms
	}
	terms[term] = terms[term] || needsPosition
}

// collectTerms walks the leaf terms of q.
func collectTerms(q inverted.Query) TermsByField {
	terms := make(TermsByField)
	q.QueryTerms(func(t inverted.Term, needsPosition bool) {
		terms.add(t.Field, t, needsPosition)
	})
	return terms
}

func mergeSet(dst, src map[string]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}

// WarmupTerm is a term of a WarmupReport.
type WarmupTerm struct {
	Field         string `json:"field"`
	Path          string `json:"path,omitempty"`
	Type          string `json:"type"`
	Term          string `json:"term"`
	NeedsPosition bool   `json:"needs_position"`
}

// WarmupReport is the sorted, serializable form of a WarmupInfo.
type WarmupReport struct {
	FastFieldNames     []string     `json:"fast_field_names"`
	TermDictFieldNames []string     `json:"term_dict_field_names"`
	PostingFieldNames  []string     `json:"posting_field_names"`
	Terms              []WarmupTerm `json:"terms"`
}

// Report renders w with the field names of s.
func (w *WarmupInfo) Report(s *schema.Schema) WarmupReport {
	r := WarmupReport{
		FastFieldNames:     sortedSet(w.FastFieldNames),
		TermDictFieldNames: sortedSet(w.TermDictFieldNames),
		PostingFieldNames:  sortedSet(w.PostingFieldNames),
		Terms:              make([]WarmupTerm, 0, w.TermCount()),
	}
	for field, terms := range w.TermsGroupedByField {
		for t, needsPosition := range terms {
			r.Terms = append(r.Terms, WarmupTerm{
				Field:         s.FieldName(field),
				Path:          t.Path,
				Type:          t.Type.String(),
				Term:          t.Text(),
				NeedsPosition: needsPosition,
			})
		}
	}
	sort.Slice(r.Terms, func(i, j int) bool {
		a, b := r.Terms[i], r.Terms[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Term < b.Term
	})
	return r
}

func sortedSet(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
