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
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/logger"
)

const watchedOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher invalidates the cached schema of an index when its definition file changes. It
// watches the directory, so definitions created after the watch started are tracked too.
type Watcher struct {
	watcher  *fsnotify.Watcher
	registry *Registry
	l        *logger.Logger
}

// Watch starts watching the definition directory of r.
func (r *Registry) Watch() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithMessage(err, "create schema watcher")
	}
	if err = w.Add(r.dir); err != nil {
		_ = w.Close()
		return nil, errors.WithMessagef(err, "watch %s", r.dir)
	}
	return &Watcher{watcher: w, registry: r, l: r.l.Named("watcher")}, nil
}

// Run handles the file events until ctx is done or w is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.l.Error().Err(err).Msg("schema watcher failed")
		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&watchedOps == 0 {
		return
	}
	index, ok := definitionIndex(event.Name)
	if !ok {
		return
	}
	w.registry.Invalidate(index)
	w.l.Info().Str("index", index).Str("op", event.Op.String()).Msg("invalidated schema")
}

// definitionIndex returns the index a definition file defines.
func definitionIndex(path string) (string, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	for _, e := range definitionExtensions {
		if ext == e && len(base) > len(ext) {
			return strings.TrimSuffix(base, ext), true
		}
	}
	return "", false
}
