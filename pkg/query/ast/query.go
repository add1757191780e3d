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

// Package ast defines the serializable query tree exchanged between the query languages
// and the compiler.
package ast

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
)

var (
	errNaNBoost           = errors.New("boost must not be NaN")
	errUnknownType        = errors.New("unknown query type")
	errUnknownOperator    = errors.New("unknown default operator")
	errMissingUnderlying  = errors.New("boost query has no underlying query")
	errMissingQueryFields = errors.New("missing required field")
)

// Query is a node of the query tree. The set of implementations is closed.
type Query interface {
	json.Marshaler
	isQuery()
}

// BoolQuery combines sub queries. Must and Filter clauses are conjunctive, Should clauses
// disjunctive and MustNot clauses exclude documents. Filter clauses do not score.
type BoolQuery struct {
	Must    []Query
	MustNot []Query
	Should  []Query
	Filter  []Query
}

// TermQuery matches the value of a field. When IsPhrasePrefix is set, the last token of
// the value is matched as a prefix.
type TermQuery struct {
	Field          string
	Value          string
	IsPhrasePrefix bool
}

// TermSetQuery matches documents where any listed field holds one of its values.
type TermSetQuery struct {
	TermsPerField map[string][]string
}

// PhraseQuery matches the tokens of Phrase in order, at most Slop positions apart.
type PhraseQuery struct {
	Field  string
	Phrase string
	Slop   uint32
}

// RangeQuery matches the values of Field between two bounds.
type RangeQuery struct {
	Field      string
	LowerBound Bound[JSONLiteral]
	UpperBound Bound[JSONLiteral]
}

// UserTextQuery holds free text that must be parsed before compilation.
type UserTextQuery struct {
	UserText        string
	DefaultFields   []string
	DefaultOperator DefaultOperator
}

// MatchAllQuery matches every document.
type MatchAllQuery struct{}

// MatchNoneQuery matches no document.
type MatchNoneQuery struct{}

// BoostQuery multiplies the score of Underlying by Boost.
type BoostQuery struct {
	Underlying Query
	Boost      float32
}

// NewBoost wraps q into a boost query. A NaN boost is rejected.
func NewBoost(q Query, boost float32) (*BoostQuery, error) {
	if math.IsNaN(float64(boost)) {
		return nil, errNaNBoost
	}
	return &BoostQuery{Underlying: q, Boost: boost}, nil
}

func (*BoolQuery) isQuery()      {}
func (*TermQuery) isQuery()      {}
func (*TermSetQuery) isQuery()   {}
func (*PhraseQuery) isQuery()    {}
func (*RangeQuery) isQuery()     {}
func (*UserTextQuery) isQuery()  {}
func (*MatchAllQuery) isQuery()  {}
func (*MatchNoneQuery) isQuery() {}
func (*BoostQuery) isQuery()     {}

// DefaultOperator combines the clauses of a free text query that have no explicit connective.
type DefaultOperator uint8

// Default operators. Or is the zero value.
const (
	OperatorOr DefaultOperator = iota
	OperatorAnd
)

func (o DefaultOperator) String() string {
	if o == OperatorAnd {
		return "And"
	}
	return "Or"
}

// MarshalJSON encodes o as "And" or "Or".
func (o DefaultOperator) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts "And", "Or" and their upper case aliases.
func (o *DefaultOperator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	op, err := ParseDefaultOperator(s)
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// ParseDefaultOperator parses "And", "AND", "Or" or "OR".
func ParseDefaultOperator(s string) (DefaultOperator, error) {
	switch s {
	case "And", "AND":
		return OperatorAnd, nil
	case "Or", "OR":
		return OperatorOr, nil
	}
	return OperatorOr, errors.WithMessagef(errUnknownOperator, "%q", s)
}

// MarshalJSON implements json.Marshaler.
func (q *BoolQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string  `json:"type"`
		Must    []Query `json:"must,omitempty"`
		MustNot []Query `json:"must_not,omitempty"`
		Should  []Query `json:"should,omitempty"`
		Filter  []Query `json:"filter,omitempty"`
	}{"Bool", q.Must, q.MustNot, q.Should, q.Filter})
}

// MarshalJSON implements json.Marshaler.
func (q *TermQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type           string `json:"type"`
		Field          string `json:"field"`
		Value          string `json:"value"`
		IsPhrasePrefix bool   `json:"is_phrase_prefix,omitempty"`
	}{"Term", q.Field, q.Value, q.IsPhrasePrefix})
}

// MarshalJSON implements json.Marshaler.
func (q *TermSetQuery) MarshalJSON() ([]byte, error) {
	terms := q.TermsPerField
	if terms == nil {
		terms = map[string][]string{}
	}
	return json.Marshal(struct {
		Type          string              `json:"type"`
		TermsPerField map[string][]string `json:"terms_per_field"`
	}{"TermSet", terms})
}

// MarshalJSON implements json.Marshaler.
func (q *PhraseQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Field  string `json:"field"`
		Phrase string `json:"phrase"`
		Slop   uint32 `json:"slop"`
	}{"Phrase", q.Field, q.Phrase, q.Slop})
}

// MarshalJSON implements json.Marshaler.
func (q *RangeQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string             `json:"type"`
		Field      string             `json:"field"`
		LowerBound Bound[JSONLiteral] `json:"lower_bound"`
		UpperBound Bound[JSONLiteral] `json:"upper_bound"`
	}{"Range", q.Field, q.LowerBound, q.UpperBound})
}

// MarshalJSON implements json.Marshaler.
func (q *UserTextQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type            string          `json:"type"`
		UserText        string          `json:"user_text"`
		DefaultFields   []string        `json:"default_fields,omitempty"`
		DefaultOperator DefaultOperator `json:"default_operator"`
	}{"UserText", q.UserText, q.DefaultFields, q.DefaultOperator})
}

// MarshalJSON implements json.Marshaler.
func (*MatchAllQuery) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"MatchAll"}`), nil
}

// MarshalJSON implements json.Marshaler.
func (*MatchNoneQuery) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"MatchNone"}`), nil
}

// MarshalJSON implements json.Marshaler.
func (q *BoostQuery) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(q.Boost)) {
		return nil, errNaNBoost
	}
	return json.Marshal(struct {
		Type       string  `json:"type"`
		Underlying Query   `json:"underlying"`
		Boost      float32 `json:"boost"`
	}{"Boost", q.Underlying, q.Boost})
}

// Marshal serializes q.
func Marshal(q Query) ([]byte, error) {
	return json.Marshal(q)
}

type envelope struct {
	LowerBound      *Bound[JSONLiteral] `json:"lower_bound"`
	UpperBound      *Bound[JSONLiteral] `json:"upper_bound"`
	DefaultOperator *DefaultOperator    `json:"default_operator"`
	Boost           *float32            `json:"boost"`
	TermsPerField   map[string][]string `json:"terms_per_field"`
	Type            string              `json:"type"`
	Field           *string             `json:"field"`
	Value           *string             `json:"value"`
	Phrase          *string             `json:"phrase"`
	UserText        *string             `json:"user_text"`
	Must            []json.RawMessage   `json:"must"`
	MustNot         []json.RawMessage   `json:"must_not"`
	Should          []json.RawMessage   `json:"should"`
	Filter          []json.RawMessage   `json:"filter"`
	DefaultFields   []string            `json:"default_fields"`
	Underlying      json.RawMessage     `json:"underlying"`
	Slop            uint32              `json:"slop"`
	IsPhrasePrefix  bool                `json:"is_phrase_prefix"`
}

// Unmarshal decodes a serialized query. Every failure matches query.ErrMalformedInput.
func Unmarshal(data []byte) (Query, error) {
	q, err := decode(data)
	if err != nil {
		return nil, errors.WithMessage(query.ErrMalformedInput, err.Error())
	}
	return q, nil
}

func decode(data []byte) (Query, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case "Bool":
		b := &BoolQuery{}
		var err error
		for _, c := range []struct {
			dst *[]Query
			raw []json.RawMessage
		}{{&b.Must, e.Must}, {&b.MustNot, e.MustNot}, {&b.Should, e.Should}, {&b.Filter, e.Filter}} {
			if *c.dst, err = decodeList(c.raw); err != nil {
				return nil, err
			}
		}
		return b, nil
	case "Term":
		if e.Value == nil || e.Field == nil {
			return nil, errors.WithMessage(errMissingQueryFields, "term query needs field and value")
		}
		return &TermQuery{Field: *e.Field, Value: *e.Value, IsPhrasePrefix: e.IsPhrasePrefix}, nil
	case "TermSet":
		if e.TermsPerField == nil {
			return nil, errors.WithMessage(errMissingQueryFields, "term set query needs terms_per_field")
		}
		return &TermSetQuery{TermsPerField: e.TermsPerField}, nil
	case "Phrase":
		if e.Phrase == nil || e.Field == nil {
			return nil, errors.WithMessage(errMissingQueryFields, "phrase query needs field and phrase")
		}
		return &PhraseQuery{Field: *e.Field, Phrase: *e.Phrase, Slop: e.Slop}, nil
	case "Range":
		if e.Field == nil {
			return nil, errors.WithMessage(errMissingQueryFields, "range query needs a field")
		}
		r := &RangeQuery{Field: *e.Field}
		if e.LowerBound != nil {
			r.LowerBound = *e.LowerBound
		}
		if e.UpperBound != nil {
			r.UpperBound = *e.UpperBound
		}
		return r, nil
	case "UserText":
		if e.UserText == nil {
			return nil, errors.WithMessage(errMissingQueryFields, "user text query needs user_text")
		}
		u := &UserTextQuery{UserText: *e.UserText, DefaultFields: e.DefaultFields}
		if e.DefaultOperator != nil {
			u.DefaultOperator = *e.DefaultOperator
		}
		return u, nil
	case "MatchAll":
		return &MatchAllQuery{}, nil
	case "MatchNone":
		return &MatchNoneQuery{}, nil
	case "Boost":
		if len(e.Underlying) == 0 || e.Boost == nil {
			return nil, errMissingUnderlying
		}
		underlying, err := decode(e.Underlying)
		if err != nil {
			return nil, err
		}
		return NewBoost(underlying, *e.Boost)
	}
	return nil, errors.WithMessagef(errUnknownType, "%q", e.Type)
}

func decodeList(raw []json.RawMessage) ([]Query, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Query, 0, len(raw))
	for _, r := range raw {
		q, err := decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// QueryString serializes a user text query over text, combining clauses with And.
func QueryString(text string) (string, error) {
	return QueryStringWithDefaultFields(text, nil)
}

// QueryStringWithDefaultFields is QueryString searching fields for bare clauses.
func QueryStringWithDefaultFields(text string, fields []string) (string, error) {
	data, err := Marshal(&UserTextQuery{UserText: text, DefaultFields: fields, DefaultOperator: OperatorAnd})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Describe renders q in a compact textual form used by logs and the command line.
func Describe(q Query) string {
	var sb strings.Builder
	describe(&sb, q)
	return sb.String()
}

func describe(sb *strings.Builder, q Query) {
	switch n := q.(type) {
	case *BoolQuery:
		sb.WriteString("(")
		first := true
		for _, c := range []struct {
			prefix string
			list   []Query
		}{{"+", n.Must}, {"-", n.MustNot}, {"", n.Should}, {"#", n.Filter}} {
			for _, sub := range c.list {
				if !first {
					sb.WriteString(" ")
				}
				first = false
				sb.WriteString(c.prefix)
				describe(sb, sub)
			}
		}
		sb.WriteString(")")
	case *TermQuery:
		sb.WriteString(n.Field + ":" + n.Value)
		if n.IsPhrasePrefix {
			sb.WriteString("*")
		}
	case *TermSetQuery:
		data, _ := json.Marshal(n.TermsPerField)
		sb.WriteString("IN" + string(data))
	case *PhraseQuery:
		sb.WriteString(n.Field + ":\"" + n.Phrase + "\"")
	case *RangeQuery:
		sb.WriteString(n.Field + ":")
		describeBound(sb, n.LowerBound, true)
		sb.WriteString(" TO ")
		describeBound(sb, n.UpperBound, false)
	case *UserTextQuery:
		sb.WriteString("UserText(" + n.UserText + ")")
	case *MatchAllQuery:
		sb.WriteString("*")
	case *MatchNoneQuery:
		sb.WriteString("<none>")
	case *BoostQuery:
		describe(sb, n.Underlying)
		data, _ := json.Marshal(n.Boost)
		sb.WriteString("^" + string(data))
	}
}

func describeBound(sb *strings.Builder, b Bound[JSONLiteral], lower bool) {
	v := "*"
	if !b.IsUnbounded() {
		v = b.Value.String()
	}
	open, closing := "[", "]"
	if b.Kind == Excluded {
		open, closing = "{", "}"
	}
	if lower {
		sb.WriteString(open + v)
		return
	}
	sb.WriteString(v + closing)
}
