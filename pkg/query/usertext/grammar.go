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

// Package usertext parses the free text query language into query trees.
//
//nolint:govet // ignore fieldalignment in this file; layout is the grammar
package usertext

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// grammarQuery is a sequence of clauses, optionally joined by connectives.
type grammarQuery struct {
	Items []*grammarItem `parser:"@@*"`
}

type grammarItem struct {
	Pos        lexer.Position
	Connective string         `parser:"@('AND' | 'OR')?"`
	Occur      string         `parser:"@('+' | '-' | 'NOT')?"`
	Clause     *grammarClause `parser:"@@"`
}

type grammarClause struct {
	Group *grammarQuery `parser:"(  '(' @@ ')'"`
	All   bool          `parser:" | @'*'"`
	Leaf  *grammarLeaf  `parser:" | @@ )"`
	Boost *grammarBoost `parser:"@@?"`
}

type grammarBoost struct {
	Negative bool   `parser:"'^' @'-'?"`
	Value    string `parser:"@Word"`
}

type grammarLeaf struct {
	Field  string         `parser:"@Field?"`
	Set    *grammarSet    `parser:"(  @@"`
	Range  *grammarRange  `parser:" | @@"`
	Phrase *grammarPhrase `parser:" | @@"`
	Term   *grammarTerm   `parser:" | @@ )"`
}

type grammarTerm struct {
	Negative bool   `parser:"@'-'?"`
	Value    string `parser:"@(IPv6 | Word)"`
}

type grammarSet struct {
	Values []string `parser:"'IN' '[' @(IPv6 | Word | Phrase)* ']'"`
}

type grammarRange struct {
	Open       string        `parser:"(  @('[' | '{')"`
	Lower      *grammarBound `parser:"   @@ 'TO'"`
	Upper      *grammarBound `parser:"   @@"`
	Close      string        `parser:"   @(']' | '}')"`
	Comparator string        `parser:" | @('>=' | '<=' | '>' | '<')"`
	Bound      *grammarBound `parser:"   @@ )"`
}

type grammarBound struct {
	Unbounded bool   `parser:"(  @'*'"`
	Negative  bool   `parser:" | @'-'?"`
	Value     string `parser:"   @(IPv6 | Word | Phrase) )"`
}

type grammarPhrase struct {
	Text   string `parser:"@Phrase"`
	Slop   string `parser:"( '~' @Word )?"`
	Prefix bool   `parser:"@'*'?"`
}

// ipv6Pattern matches full and compressed IPv6 addresses, with an optional dotted IPv4 tail.
// It is tried before fields, so the first group of an address is not taken for a field
// name.
const ipv6Pattern = `(?:[0-9A-Fa-f]{1,4}:){7}[0-9A-Fa-f]{1,4}` +
	`|(?:[0-9A-Fa-f]{1,4}(?::[0-9A-Fa-f]{1,4})*)?::(?:[0-9A-Fa-f]{1,4}(?::[0-9A-Fa-f]{1,4})*(?:\.[0-9]{1,3}){0,3})?`

var (
	userTextLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "whitespace", Pattern: `\s+`},
		{Name: "Phrase", Pattern: `"(?:[^"\\]|\\.)*"`},
		{Name: "Keyword", Pattern: `(?:AND|OR|NOT|TO|IN)\b`},
		{Name: "IPv6", Pattern: ipv6Pattern},
		{Name: "Field", Pattern: `(?:[A-Za-z_@]|\\.)(?:[^\s"()\[\]{}:^~*\\]|\\.)*:`},
		{Name: "Word", Pattern: `(?:[^\s"()\[\]{}:^~*+\-><=\\]|\\.)(?:[^\s"()\[\]{}^~*\\]|\\.)*`},
		{Name: "Operators", Pattern: `>=|<=|[-+:()\[\]{}^~*<>]`},
	})

	userTextParser = participle.MustBuild[grammarQuery](
		participle.Lexer(userTextLexer),
		participle.UseLookahead(2),
	)
)
