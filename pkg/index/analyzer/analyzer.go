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

// Package analyzer implements a registry of named tokenizers backed by bluge analyzers.
package analyzer

import (
	"bytes"
	"sort"
	"sync"
	"unicode"

	"github.com/blugelabs/bluge/analysis"
	"github.com/blugelabs/bluge/analysis/analyzer"
	"github.com/blugelabs/bluge/analysis/token"
	"github.com/blugelabs/bluge/analysis/tokenizer"
)

// Names of the built-in analyzers.
const (
	Raw        = "raw"
	Default    = "default"
	Standard   = "standard"
	Simple     = "simple"
	Whitespace = "whitespace"
	Lowercase  = "lowercase"
	URL        = "url"
)

// Token is a term emitted by an analyzer and its position in the token stream.
type Token struct {
	Text     string
	Position int
}

// Registry maps tokenizer names to analyzers. It is safe for concurrent use.
type Registry struct {
	analyzers map[string]*analysis.Analyzer
	mu        sync.RWMutex
}

// NewRegistry returns a registry holding the built-in analyzers.
func NewRegistry() *Registry {
	return &Registry{analyzers: map[string]*analysis.Analyzer{
		Raw:      analyzer.NewKeywordAnalyzer(),
		Standard: analyzer.NewStandardAnalyzer(),
		Simple:   analyzer.NewSimpleAnalyzer(),
		Default: {
			Tokenizer:    tokenizer.NewCharacterTokenizer(isAlphanumeric),
			TokenFilters: []analysis.TokenFilter{token.NewLowerCaseFilter()},
		},
		Whitespace: {Tokenizer: tokenizer.NewWhitespaceTokenizer()},
		Lowercase: {
			Tokenizer:    tokenizer.NewSingleTokenTokenizer(),
			TokenFilters: []analysis.TokenFilter{token.NewLowerCaseFilter()},
		},
		URL: newURLAnalyzer(),
	}}
}

// Register adds a, replacing the analyzer already registered under name.
func (r *Registry) Register(name string, a *analysis.Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[name] = a
}

// Get returns the analyzer registered under name.
func (r *Registry) Get(name string) (*analysis.Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[name]
	return a, ok
}

// Names lists the registered analyzers in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.analyzers))
	for n := range r.analyzers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Tokenize runs the analyzer named name over text. It reports false when no such analyzer exists.
func (r *Registry) Tokenize(name, text string) ([]Token, bool) {
	a, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	stream := a.Analyze([]byte(text))
	tokens := make([]Token, 0, len(stream))
	pos := -1
	for _, t := range stream {
		if len(t.Term) == 0 {
			continue
		}
		if t.PositionIncr > 0 || pos < 0 {
			pos += max(t.PositionIncr, 1)
		}
		tokens = append(tokens, Token{Text: string(t.Term), Position: pos})
	}
	return tokens, true
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

func newURLAnalyzer() *analysis.Analyzer {
	return &analysis.Analyzer{
		Tokenizer:    tokenizer.NewCharacterTokenizer(isAlphanumeric),
		TokenFilters: []analysis.TokenFilter{alphanumericFilter{}, token.NewLowerCaseFilter()},
	}
}

type alphanumericFilter struct{}

func (alphanumericFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, t := range input {
		termRunes := make([]rune, 0, len(t.Term))
		for _, r := range bytes.Runes(t.Term) {
			if isAlphanumeric(r) {
				termRunes = append(termRunes, r)
			}
		}
		t.Term = analysis.BuildTermFromRunes(termRunes)
	}
	return input
}
