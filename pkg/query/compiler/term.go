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

package compiler

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/analyzer"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/inverted"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

// textMode tells how a text value is matched.
type textMode struct {
	slop         uint32
	tokenize     bool
	phrasePrefix bool
}

// fieldQuery matches value against a resolved field.
func (c *compiler) fieldQuery(field schema.Field, entry *schema.FieldEntry, path, value string, mode textMode) (inverted.Query, error) {
	switch entry.Type {
	case schema.TypeStr:
		return c.textQuery(entry, value, mode, func(text string) inverted.Term {
			return inverted.StrTerm(field, text)
		})
	case schema.TypeJSON:
		return c.jsonQuery(field, entry, path, value, mode)
	}
	t, err := typedTerm(field, entry, value)
	if err != nil {
		return nil, err
	}
	return &inverted.TermQuery{Term: t}, nil
}

// verbatimTerms returns the terms matching value without tokenizing it.
func (c *compiler) verbatimTerms(field schema.Field, entry *schema.FieldEntry, path, value string) ([]inverted.Term, error) {
	switch entry.Type {
	case schema.TypeStr:
		return []inverted.Term{inverted.StrTerm(field, value)}, nil
	case schema.TypeJSON:
		jsonPath := normalizeJSONPath(path, entry.ExpandDots)
		terms := make([]inverted.Term, 0, 2)
		if t, ok := jsonTypedTerm(value); ok {
			terms = append(terms, t.InJSON(field, jsonPath))
		}
		return append(terms, inverted.StrTerm(field, value).InJSON(field, jsonPath)), nil
	}
	t, err := typedTerm(field, entry, value)
	if err != nil {
		return nil, err
	}
	return []inverted.Term{t}, nil
}

func invalidSearchTerm(expected string, entry *schema.FieldEntry, value string) error {
	return &query.InvalidSearchTermError{ExpectedType: expected, FieldName: entry.Name, Value: value}
}

// typedTerm parses value as a term of a non text field.
func typedTerm(field schema.Field, entry *schema.FieldEntry, value string) (inverted.Term, error) {
	switch entry.Type {
	case schema.TypeU64:
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return inverted.Term{}, invalidSearchTerm("u64", entry, value)
		}
		return inverted.U64Term(field, v), nil
	case schema.TypeI64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return inverted.Term{}, invalidSearchTerm("i64", entry, value)
		}
		return inverted.I64Term(field, v), nil
	case schema.TypeF64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return inverted.Term{}, invalidSearchTerm("f64", entry, value)
		}
		return inverted.F64Term(field, v), nil
	case schema.TypeBool:
		v, ok := ast.String(value).InterpretBool()
		if !ok {
			return inverted.Term{}, invalidSearchTerm("bool", entry, value)
		}
		return inverted.BoolTerm(field, v), nil
	case schema.TypeDate:
		v, ok := ast.ParseDate(value)
		if !ok {
			return inverted.Term{}, invalidSearchTerm("datetime", entry, value)
		}
		return inverted.DateTerm(field, v), nil
	case schema.TypeIPAddr:
		v, ok := ast.ParseIP(value)
		if !ok {
			return inverted.Term{}, invalidSearchTerm("ip_address", entry, value)
		}
		return inverted.IPTerm(field, v), nil
	case schema.TypeFacet:
		return inverted.FacetTerm(field, value), nil
	case schema.TypeBytes:
		v, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return inverted.Term{}, invalidSearchTerm("base64 bytes", entry, value)
		}
		return inverted.BytesTerm(field, v), nil
	}
	return inverted.Term{}, errors.WithMessagef(query.ErrNotImplemented, "term query on field `%s` of type %s", entry.Name, entry.Type)
}

// jsonTypedTerm interprets the text searched in a JSON field as a number, a boolean or a
// datetime. The field of the returned term is unset.
func jsonTypedTerm(value string) (inverted.Term, bool) {
	if v, ok := ast.ParseDate(value); ok {
		return inverted.DateTerm(0, v), true
	}
	if v, err := strconv.ParseInt(value, 10, 64); err == nil {
		return inverted.I64Term(0, v), true
	}
	if v, err := strconv.ParseUint(value, 10, 64); err == nil {
		return inverted.U64Term(0, v), true
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return inverted.F64Term(0, v), true
	}
	if v, ok := ast.String(value).InterpretBool(); ok {
		return inverted.BoolTerm(0, v), true
	}
	return inverted.Term{}, false
}

// normalizeJSONPath removes the escaping of the dots when the field expands dots into
// nested objects.
func normalizeJSONPath(path string, expandDots bool) string {
	if expandDots {
		return strings.ReplaceAll(path, `\.`, ".")
	}
	return path
}

// jsonQuery matches both the typed and the text interpretations of value, as the type of a
// value in a JSON field is only known at lookup.
func (c *compiler) jsonQuery(field schema.Field, entry *schema.FieldEntry, path, value string, mode textMode) (inverted.Query, error) {
	jsonPath := normalizeJSONPath(path, entry.ExpandDots)
	b := inverted.NewBoolQuery()
	if t, ok := jsonTypedTerm(value); ok {
		b.Add(inverted.Should, &inverted.TermQuery{Term: t.InJSON(field, jsonPath)})
	}
	text, err := c.textQuery(entry, value, mode, func(text string) inverted.Term {
		return inverted.StrTerm(field, text).InJSON(field, jsonPath)
	})
	if err != nil {
		return nil, err
	}
	if inverted.IsEmpty(text) {
		return text, nil
	}
	return b.Add(inverted.Should, text), nil
}

func (c *compiler) tokenize(entry *schema.FieldEntry, value string, enabled bool) ([]analyzer.Token, bool) {
	if !enabled || entry.Text == nil {
		return nil, false
	}
	return c.tokenizers.Tokenize(entry.Text.Tokenizer, value)
}

// textQuery matches value against a text field. Tokenized values give no match for zero
// tokens, a term for one token and a phrase for more.
func (c *compiler) textQuery(entry *schema.FieldEntry, value string, mode textMode, mk func(string) inverted.Term) (inverted.Query, error) {
	tokens, ok := c.tokenize(entry, value, mode.tokenize)
	if !ok {
		t := mk(value)
		if mode.phrasePrefix {
			return &inverted.PhrasePrefixQuery{Prefix: inverted.PositionedTerm{Term: t}}, nil
		}
		return &inverted.TermQuery{Term: t}, nil
	}
	if len(tokens) == 0 {
		return &inverted.EmptyQuery{}, nil
	}
	positioned := make([]inverted.PositionedTerm, 0, len(tokens))
	for _, tok := range tokens {
		positioned = append(positioned, inverted.PositionedTerm{Term: mk(tok.Text), Offset: tok.Position})
	}
	if mode.phrasePrefix {
		last := len(positioned) - 1
		var terms []inverted.PositionedTerm
		if last > 0 {
			if err := requirePositions(entry); err != nil {
				return nil, err
			}
			terms = positioned[:last]
		}
		return &inverted.PhrasePrefixQuery{Terms: terms, Prefix: positioned[last]}, nil
	}
	if len(positioned) == 1 {
		return &inverted.TermQuery{Term: positioned[0].Term}, nil
	}
	if err := requirePositions(entry); err != nil {
		return nil, err
	}
	return &inverted.PhraseQuery{Terms: positioned, Slop: mode.slop}, nil
}

func requirePositions(entry *schema.FieldEntry) error {
	if entry.Text != nil && entry.Text.Record.HasPositions() {
		return nil
	}
	return errors.WithMessagef(query.ErrSchema, "Phrase queries require positions. (`%s` is indexed without positions)", entry.Name)
}
