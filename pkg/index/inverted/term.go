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

// Package inverted implements the compiled form of a query: the tree of term level queries
// an inverted index evaluates.
package inverted

import (
	"encoding/base64"
	"net/netip"
	"strconv"
	"time"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/convert"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

// Term is a value of a field in its indexed encoding. Terms of JSON fields carry the path
// of the value inside the object and the type the value was indexed as.
//
// Term is comparable and can be used as a map key.
type Term struct {
	Path  string
	Bytes string
	Field schema.Field
	Type  schema.Type
}

// StrTerm returns the term of a text value.
func StrTerm(field schema.Field, text string) Term {
	return Term{Field: field, Type: schema.TypeStr, Bytes: text}
}

// U64Term returns the term of an unsigned integer.
func U64Term(field schema.Field, v uint64) Term {
	return Term{Field: field, Type: schema.TypeU64, Bytes: string(convert.Uint64ToBytes(v))}
}

// I64Term returns the term of a signed integer.
func I64Term(field schema.Field, v int64) Term {
	return Term{Field: field, Type: schema.TypeI64, Bytes: string(convert.Int64ToBytes(v))}
}

// F64Term returns the term of a float.
func F64Term(field schema.Field, v float64) Term {
	return Term{Field: field, Type: schema.TypeF64, Bytes: string(convert.Float64ToBytes(v))}
}

// BoolTerm returns the term of a boolean.
func BoolTerm(field schema.Field, v bool) Term {
	return Term{Field: field, Type: schema.TypeBool, Bytes: string(convert.BoolToBytes(v))}
}

// DateTerm returns the term of a point in time, encoded as nanoseconds since the epoch.
func DateTerm(field schema.Field, v time.Time) Term {
	return Term{Field: field, Type: schema.TypeDate, Bytes: string(convert.Int64ToBytes(v.UnixNano()))}
}

// IPTerm returns the term of an address in its 16 bytes form.
func IPTerm(field schema.Field, v netip.Addr) Term {
	b := v.As16()
	return Term{Field: field, Type: schema.TypeIPAddr, Bytes: string(b[:])}
}

// FacetTerm returns the term of a facet path.
func FacetTerm(field schema.Field, path string) Term {
	return Term{Field: field, Type: schema.TypeFacet, Bytes: path}
}

// BytesTerm returns the term of a binary value.
func BytesTerm(field schema.Field, v []byte) Term {
	return Term{Field: field, Type: schema.TypeBytes, Bytes: string(v)}
}

// InJSON moves t under path of a JSON field. The type of t becomes the type of the value.
func (t Term) InJSON(field schema.Field, path string) Term {
	t.Field, t.Path = field, path
	return t
}

// Text decodes the value of t into a readable form.
func (t Term) Text() string {
	b := convert.StringToBytes(t.Bytes)
	switch t.Type {
	case schema.TypeU64:
		return strconv.FormatUint(convert.BytesToUint64(b), 10)
	case schema.TypeI64:
		return strconv.FormatInt(convert.BytesToInt64(b), 10)
	case schema.TypeF64:
		return strconv.FormatFloat(convert.BytesToFloat64(b), 'f', -1, 64)
	case schema.TypeBool:
		return strconv.FormatBool(convert.BytesToBool(b))
	case schema.TypeDate:
		return t.Time().Format(time.RFC3339Nano)
	case schema.TypeIPAddr:
		if len(b) != 16 {
			return base64.StdEncoding.EncodeToString(b)
		}
		return netip.AddrFrom16([16]byte(b)).Unmap().String()
	case schema.TypeBytes:
		return base64.StdEncoding.EncodeToString(b)
	default:
		return t.Bytes
	}
}

// Time decodes the value of a date term.
func (t Term) Time() time.Time {
	return time.Unix(0, convert.BytesToInt64(convert.StringToBytes(t.Bytes))).UTC()
}

// Float decodes the value of a numeric term.
func (t Term) Float() float64 {
	b := convert.StringToBytes(t.Bytes)
	switch t.Type {
	case schema.TypeU64:
		return float64(convert.BytesToUint64(b))
	case schema.TypeI64:
		return float64(convert.BytesToInt64(b))
	case schema.TypeF64:
		return convert.BytesToFloat64(b)
	}
	return 0
}

func (t Term) describe(names namer) map[string]interface{} {
	d := map[string]interface{}{
		"field": names(t.Field),
		"type":  t.Type.String(),
		"value": t.Text(),
	}
	if t.Path != "" {
		d["path"] = t.Path
	}
	return d
}
