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

// Package schema implements the field catalog queries are compiled against.
package schema

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	// DynamicFieldName is the catch-all JSON field receiving every unmapped path.
	DynamicFieldName = "_dynamic"
	// SourceFieldName is the field storing the original document.
	SourceFieldName = "_source"
	// ScoreFieldName is the pseudo field used to sort by relevance.
	ScoreFieldName = "_score"
)

var (
	errDuplicatedField     = errors.New("duplicated field")
	errUnknownDefaultField = errors.New("default search field is not in the schema")
)

// Type is the concrete type of a field.
type Type uint8

// Field types.
const (
	TypeUnspecified Type = iota
	TypeStr
	TypeU64
	TypeI64
	TypeF64
	TypeBool
	TypeDate
	TypeFacet
	TypeBytes
	TypeJSON
	TypeIPAddr
)

var typeNames = map[Type]string{
	TypeStr:    "Str",
	TypeU64:    "U64",
	TypeI64:    "I64",
	TypeF64:    "F64",
	TypeBool:   "Bool",
	TypeDate:   "Date",
	TypeFacet:  "Facet",
	TypeBytes:  "Bytes",
	TypeJSON:   "Json",
	TypeIPAddr: "IpAddr",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// IndexRecordOption describes how much information the inverted index keeps for a term.
type IndexRecordOption uint8

// Record options, from the least to the most detailed.
const (
	RecordBasic IndexRecordOption = iota
	RecordWithFreqs
	RecordWithFreqsAndPositions
)

// HasPositions reports whether the positions of the terms are indexed.
func (o IndexRecordOption) HasPositions() bool {
	return o == RecordWithFreqsAndPositions
}

// TextIndexing are the indexing settings of a text or JSON field.
type TextIndexing struct {
	Tokenizer  string
	Record     IndexRecordOption
	Fieldnorms bool
}

var (
	// Text tokenizes values with the default tokenizer and records positions.
	Text = &TextIndexing{Tokenizer: "default", Record: RecordWithFreqsAndPositions, Fieldnorms: true}
	// Raw indexes values verbatim.
	Raw = &TextIndexing{Tokenizer: "raw", Record: RecordBasic, Fieldnorms: true}
)

// Flag is a set of field properties.
type Flag uint8

// Field properties.
const (
	Indexed Flag = 1 << iota
	Stored
	Fast
)

// Field is the ordinal of a field in its schema.
type Field uint32

// FieldEntry describes a field of the schema.
type FieldEntry struct {
	Text       *TextIndexing
	Name       string
	Type       Type
	Flags      Flag
	ExpandDots bool
}

// IsFast reports whether the field is stored in a columnar layout.
func (e *FieldEntry) IsFast() bool { return e.Flags&Fast != 0 }

// IsStored reports whether the field value is stored.
func (e *FieldEntry) IsStored() bool { return e.Flags&Stored != 0 }

// IsIndexed reports whether the field is searchable.
func (e *FieldEntry) IsIndexed() bool {
	if e.Type == TypeStr || e.Type == TypeJSON {
		return e.Text != nil
	}
	return e.Flags&Indexed != 0
}

// HasFieldnorms reports whether the field keeps the norms required by BM25.
func (e *FieldEntry) HasFieldnorms() bool {
	if e.Type == TypeStr || e.Type == TypeJSON {
		return e.Text != nil && e.Text.Fieldnorms
	}
	return e.Flags&Indexed != 0
}

// Schema is an immutable field catalog. It is safe for concurrent use.
type Schema struct {
	byName              map[string]Field
	fields              []FieldEntry
	defaultSearchFields []string
	allowTextRange      bool
}

// GetField returns the field named name.
func (s *Schema) GetField(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// FieldEntry returns the entry of f.
func (s *Schema) FieldEntry(f Field) *FieldEntry {
	return &s.fields[f]
}

// FieldName returns the name of f.
func (s *Schema) FieldName(f Field) string {
	return s.fields[f].Name
}

// Fields returns all the entries in declaration order.
func (s *Schema) Fields() []FieldEntry {
	return s.fields
}

// DefaultSearchFields returns the fields searched by clauses that name none.
func (s *Schema) DefaultSearchFields() []string {
	return s.defaultSearchFields
}

// AllowTextRange reports whether range queries are accepted on fast text fields.
func (s *Schema) AllowTextRange() bool {
	return s.allowTextRange
}

// FindField resolves the longest field name prefixing fullPath. The prefix has to end
// at an unescaped dot. The rest of the path is returned as the sub path.
func (s *Schema) FindField(fullPath string) (Field, string, bool) {
	if f, ok := s.byName[fullPath]; ok {
		return f, "", true
	}
	dots := splittingDots(fullPath)
	for i := len(dots) - 1; i >= 0; i-- {
		pos := dots[i]
		if f, ok := s.byName[fullPath[:pos]]; ok {
			return f, fullPath[pos+1:], true
		}
	}
	return 0, "", false
}

func splittingDots(path string) []int {
	var dots []int
	escaped := false
	for i := 0; i < len(path); i++ {
		switch {
		case escaped:
			escaped = false
		case path[i] == '\\':
			escaped = true
		case path[i] == '.':
			dots = append(dots, i)
		}
	}
	return dots
}

// Builder assembles a Schema.
type Builder struct {
	err    error
	schema *Schema
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{schema: &Schema{byName: make(map[string]Field)}}
}

func (b *Builder) add(entry FieldEntry) Field {
	if f, ok := b.schema.byName[entry.Name]; ok {
		b.err = multierr.Append(b.err, errors.WithMessagef(errDuplicatedField, "%q", entry.Name))
		return f
	}
	f := Field(len(b.schema.fields))
	b.schema.fields = append(b.schema.fields, entry)
	b.schema.byName[entry.Name] = f
	return f
}

func mergeFlags(flags []Flag) Flag {
	var merged Flag
	for _, f := range flags {
		merged |= f
	}
	return merged
}

// AddTextField adds a string field. A nil indexing leaves the field unsearchable.
func (b *Builder) AddTextField(name string, indexing *TextIndexing, flags ...Flag) Field {
	return b.add(FieldEntry{Name: name, Type: TypeStr, Text: indexing, Flags: mergeFlags(flags)})
}

// AddJSONField adds a JSON object field.
func (b *Builder) AddJSONField(name string, indexing *TextIndexing, expandDots bool, flags ...Flag) Field {
	return b.add(FieldEntry{Name: name, Type: TypeJSON, Text: indexing, ExpandDots: expandDots, Flags: mergeFlags(flags)})
}

// AddU64Field adds an unsigned integer field.
func (b *Builder) AddU64Field(name string, flags ...Flag) Field {
	return b.add(FieldEntry{Name: name, Type: TypeU64, Flags: mergeFlags(flags)})
}

// AddI64Field adds a signed integer field.
func (b *Builder) AddI64Field(name string, flags ...Flag) Field {
	return b.add(FieldEntry{Name: name, Type: TypeI64, Flags: mergeFlags(flags)})
}

// AddF64Field adds a float field.
func (b *Builder) AddF64Field(name string, flags ...Flag) Field {
	return b.add(FieldEntry{Name: name, Type: TypeF64, Flags: mergeFlags(flags)})
}

// AddBoolField adds a boolean field.
func (b *Builder) AddBoolField(name string, flags ...Flag) Field {
	return b.add(FieldEntry{Name: name, Type: TypeBool, Flags: mergeFlags(flags)})
}

// AddDateField adds a datetime field.
func (b *Builder) AddDateField(name string, flags ...Flag) Field {
	return b.add(FieldEntry{Name: name, Type: TypeDate, Flags: mergeFlags(flags)})
}

// AddIPAddrField adds an IP address field.
func (b *Builder) AddIPAddrField(name string, flags ...Flag) Field {
	return b.add(FieldEntry{Name: name, Type: TypeIPAddr, Flags: mergeFlags(flags)})
}

// AddBytesField adds a binary field.
func (b *Builder) AddBytesField(name string, flags ...Flag) Field {
	return b.add(FieldEntry{Name: name, Type: TypeBytes, Flags: mergeFlags(flags)})
}

// AddFacetField adds a hierarchical facet field.
func (b *Builder) AddFacetField(name string, flags ...Flag) Field {
	return b.add(FieldEntry{Name: name, Type: TypeFacet, Flags: mergeFlags(flags)})
}

// SetDefaultSearchFields sets the fields searched by clauses naming no field.
func (b *Builder) SetDefaultSearchFields(fields ...string) *Builder {
	b.schema.defaultSearchFields = fields
	return b
}

// SetAllowTextRange toggles range queries on fast text fields.
func (b *Builder) SetAllowTextRange(allow bool) *Builder {
	b.schema.allowTextRange = allow
	return b
}

// Build returns the schema, or the errors met while adding fields.
func (b *Builder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	_, hasDynamic := b.schema.byName[DynamicFieldName]
	for _, name := range b.schema.defaultSearchFields {
		if _, _, ok := b.schema.FindField(name); !ok && !hasDynamic {
			return nil, errors.WithMessagef(errUnknownDefaultField, "%q", name)
		}
	}
	return b.schema, nil
}
