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
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/logger"
)

var (
	// ErrIndexNotFound is returned when no definition exists for an index.
	ErrIndexNotFound = errors.New("index not found")

	// ErrInvalidIndexName is returned for the index names that are not a plain file name.
	ErrInvalidIndexName = errors.New("invalid index name")

	definitionExtensions = []string{".yaml", ".yml", ".json"}
)

// Registry serves the schemas of the indexes defined under a directory. Parsed schemas are
// kept in an LRU cache; a definition file is read once until it is evicted or invalidated.
type Registry struct {
	cache *lru.Cache
	l     *logger.Logger
	dir   string
}

// NewRegistry returns a registry reading definitions from dir and caching up to size schemas.
func NewRegistry(dir string, size int, l *logger.Logger) (*Registry, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.WithMessage(err, "schema cache")
	}
	if l == nil {
		l = logger.GetLogger("schema", "registry")
	}
	return &Registry{cache: cache, dir: dir, l: l}, nil
}

// Get returns the schema of index, loading `<dir>/<index>.yaml` on a cache miss.
func (r *Registry) Get(index string) (*Schema, error) {
	if index == "" || strings.ContainsAny(index, `/\`) || index == "." || index == ".." {
		return nil, errors.WithMessagef(ErrInvalidIndexName, "%q", index)
	}
	if v, ok := r.cache.Get(index); ok {
		return v.(*Schema), nil
	}
	for _, ext := range definitionExtensions {
		path := filepath.Join(r.dir, index+ext)
		s, err := LoadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if r.cache.Add(index, s) {
			r.l.Debug().Str("index", index).Msg("evicted a schema from the cache")
		}
		r.l.Debug().Str("index", index).Str("path", path).Int("fields", len(s.Fields())).Msg("loaded schema")
		return s, nil
	}
	return nil, errors.WithMessagef(ErrIndexNotFound, "%q in %s", index, r.dir)
}

// Put caches s as the schema of index, shadowing its definition file.
func (r *Registry) Put(index string, s *Schema) {
	r.cache.Add(index, s)
}

// Invalidate drops the cached schema of index.
func (r *Registry) Invalidate(index string) {
	r.cache.Remove(index)
}

// Len returns the number of cached schemas.
func (r *Registry) Len() int {
	return r.cache.Len()
}
