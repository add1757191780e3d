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
	"os"
	"strings"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

var (
	errUnknownFieldType = errors.New("unknown field type")
	errUnknownRecord    = errors.New("unknown index record option")
)

// Definition is the serializable form of a schema.
type Definition struct {
	DefaultSearchFields []string          `json:"default_search_fields,omitempty"`
	Fields              []FieldDefinition `json:"fields"`
	AllowTextRange      bool              `json:"allow_text_range,omitempty"`
}

// FieldDefinition is the serializable form of a field entry.
type FieldDefinition struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Tokenizer  string `json:"tokenizer,omitempty"`
	Record     string `json:"record,omitempty"`
	Fieldnorms *bool  `json:"fieldnorms,omitempty"`
	Indexed    bool   `json:"indexed,omitempty"`
	Stored     bool   `json:"stored,omitempty"`
	Fast       bool   `json:"fast,omitempty"`
	ExpandDots bool   `json:"expand_dots,omitempty"`
}

// Parse decodes a YAML or JSON definition into a Schema.
func Parse(data []byte) (*Schema, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.Wrap(err, "decode schema definition")
	}
	return def.Build()
}

// LoadFile reads and parses the definition stored at path.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "schema file %s", path)
	}
	return s, nil
}

// Build turns the definition into a Schema.
func (d *Definition) Build() (*Schema, error) {
	b := NewBuilder()
	for i := range d.Fields {
		fd := &d.Fields[i]
		var flags Flag
		if fd.Indexed {
			flags |= Indexed
		}
		if fd.Stored {
			flags |= Stored
		}
		if fd.Fast {
			flags |= Fast
		}
		switch strings.ToLower(fd.Type) {
		case "text", "str", "string":
			indexing, err := fd.textIndexing()
			if err != nil {
				return nil, err
			}
			b.AddTextField(fd.Name, indexing, flags)
		case "json", "object":
			indexing, err := fd.textIndexing()
			if err != nil {
				return nil, err
			}
			b.AddJSONField(fd.Name, indexing, fd.ExpandDots, flags)
		case "u64":
			b.AddU64Field(fd.Name, flags)
		case "i64":
			b.AddI64Field(fd.Name, flags)
		case "f64":
			b.AddF64Field(fd.Name, flags)
		case "bool":
			b.AddBoolField(fd.Name, flags)
		case "datetime", "date":
			b.AddDateField(fd.Name, flags)
		case "ip":
			b.AddIPAddrField(fd.Name, flags)
		case "bytes":
			b.AddBytesField(fd.Name, flags)
		case "facet":
			b.AddFacetField(fd.Name, flags)
		default:
			return nil, errors.WithMessagef(errUnknownFieldType, "field %q has type %q", fd.Name, fd.Type)
		}
	}
	b.SetDefaultSearchFields(d.DefaultSearchFields...)
	b.SetAllowTextRange(d.AllowTextRange)
	return b.Build()
}

func (fd *FieldDefinition) textIndexing() (*TextIndexing, error) {
	if !fd.Indexed {
		return nil, nil
	}
	indexing := &TextIndexing{Tokenizer: fd.Tokenizer, Record: RecordWithFreqsAndPositions, Fieldnorms: true}
	if indexing.Tokenizer == "" {
		indexing.Tokenizer = Text.Tokenizer
	}
	switch strings.ToLower(fd.Record) {
	case "", "position":
	case "freq":
		indexing.Record = RecordWithFreqs
	case "basic":
		indexing.Record = RecordBasic
	default:
		return nil, errors.WithMessagef(errUnknownRecord, "field %q has record %q", fd.Name, fd.Record)
	}
	if fd.Fieldnorms != nil {
		indexing.Fieldnorms = *fd.Fieldnorms
	}
	return indexing, nil
}
