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

package ast

import (
	"bytes"
	"encoding/json"
	"math"
	"net/netip"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var errUnsupportedLiteral = errors.New("literal must be a string, a number or a bool")

// LiteralKind is the dynamic type of a JSONLiteral.
type LiteralKind uint8

// Literal kinds.
const (
	KindString LiteralKind = iota
	KindI64
	KindU64
	KindF64
	KindBool
)

// JSONLiteral is an untyped value supplied by a query. It is immutable.
type JSONLiteral struct {
	s    string
	i    int64
	u    uint64
	f    float64
	kind LiteralKind
	b    bool
}

// String returns a string literal.
func String(s string) JSONLiteral { return JSONLiteral{kind: KindString, s: s} }

// I64 returns a signed integer literal.
func I64(i int64) JSONLiteral { return JSONLiteral{kind: KindI64, i: i} }

// U64 returns an unsigned integer literal.
func U64(u uint64) JSONLiteral { return JSONLiteral{kind: KindU64, u: u} }

// F64 returns a float literal.
func F64(f float64) JSONLiteral { return JSONLiteral{kind: KindF64, f: f} }

// Bool returns a boolean literal.
func Bool(b bool) JSONLiteral { return JSONLiteral{kind: KindBool, b: b} }

// Kind returns the dynamic type of l.
func (l JSONLiteral) Kind() LiteralKind { return l.kind }

// String renders the canonical text of l.
func (l JSONLiteral) String() string {
	switch l.kind {
	case KindI64:
		return strconv.FormatInt(l.i, 10)
	case KindU64:
		return strconv.FormatUint(l.u, 10)
	case KindF64:
		return strconv.FormatFloat(l.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(l.b)
	default:
		return l.s
	}
}

// MarshalJSON encodes l as a bare JSON value.
func (l JSONLiteral) MarshalJSON() ([]byte, error) {
	switch l.kind {
	case KindI64:
		return json.Marshal(l.i)
	case KindU64:
		return json.Marshal(l.u)
	case KindF64:
		return json.Marshal(l.f)
	case KindBool:
		return json.Marshal(l.b)
	default:
		return json.Marshal(l.s)
	}
}

// UnmarshalJSON decodes a bare JSON value. Non-negative integers become U64, negative
// integers I64 and every other number F64.
func (l *JSONLiteral) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*l = String(t)
	case bool:
		*l = Bool(t)
	case json.Number:
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			*l = U64(u)
			return nil
		}
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			*l = I64(i)
			return nil
		}
		f, err := t.Float64()
		if err != nil {
			return err
		}
		*l = F64(f)
	default:
		return errors.WithMessagef(errUnsupportedLiteral, "got %s", string(data))
	}
	return nil
}

// InterpretU64 coerces l into an unsigned integer.
func (l JSONLiteral) InterpretU64() (uint64, bool) {
	switch l.kind {
	case KindU64:
		return l.u, true
	case KindI64:
		if l.i >= 0 {
			return uint64(l.i), true
		}
	case KindString:
		if u, err := strconv.ParseUint(l.s, 10, 64); err == nil {
			return u, true
		}
	}
	return 0, false
}

// InterpretI64 coerces l into a signed integer.
func (l JSONLiteral) InterpretI64() (int64, bool) {
	switch l.kind {
	case KindI64:
		return l.i, true
	case KindU64:
		if l.u <= math.MaxInt64 {
			return int64(l.u), true
		}
	case KindString:
		if i, err := strconv.ParseInt(l.s, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// InterpretF64 coerces l into a float.
func (l JSONLiteral) InterpretF64() (float64, bool) {
	switch l.kind {
	case KindF64:
		return l.f, true
	case KindI64:
		return float64(l.i), true
	case KindU64:
		return float64(l.u), true
	case KindString:
		if f, err := strconv.ParseFloat(l.s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// InterpretBool coerces l into a boolean.
func (l JSONLiteral) InterpretBool() (bool, bool) {
	switch l.kind {
	case KindBool:
		return l.b, true
	case KindString:
		switch l.s {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// InterpretDate coerces l into a point in time. Strings are RFC 3339 datetimes and integers
// Unix timestamps in seconds.
func (l JSONLiteral) InterpretDate() (time.Time, bool) {
	switch l.kind {
	case KindString:
		return ParseDate(l.s)
	case KindI64:
		return dateInRange(time.Unix(l.i, 0))
	case KindU64:
		if l.u <= math.MaxInt64 {
			return dateInRange(time.Unix(int64(l.u), 0))
		}
	}
	return time.Time{}, false
}

// InterpretIP coerces l into an IPv6 address. IPv4 addresses are mapped into IPv6.
func (l JSONLiteral) InterpretIP() (netip.Addr, bool) {
	if l.kind != KindString {
		return netip.Addr{}, false
	}
	return ParseIP(l.s)
}

// MinDate and MaxDate bound the datetimes a term can hold. Terms count nanoseconds since the
// epoch in an int64.
var (
	MinDate = time.Unix(0, math.MinInt64).UTC()
	MaxDate = time.Unix(0, math.MaxInt64).UTC()
)

// ParseDate parses an RFC 3339 datetime between MinDate and MaxDate.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return dateInRange(t)
}

func dateInRange(t time.Time) (time.Time, bool) {
	if t.Before(MinDate) || t.After(MaxDate) {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ParseIP parses an IPv4 or IPv6 address, returning its IPv6 form.
func ParseIP(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return netip.AddrFrom16(addr.As16()), true
}
