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

package builder

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/inverted"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/logger"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/meter"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/compiler"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

const (
	outcomeOK          = "ok"
	outcomeMalformed   = "malformed"
	outcomeInvalid     = "invalid"
	outcomeInternal    = "internal"
	outcomeUnsupported = "unsupported"
)

// Builder builds queries, recording how each build went.
type Builder struct {
	l       *logger.Logger
	opts    Options
	total   meter.Counter
	latency meter.Histogram
	terms   meter.Gauge
}

// NewBuilder returns a Builder whose instruments are created by provider.
func NewBuilder(provider meter.Provider, opts Options) *Builder {
	if provider == nil {
		provider = meter.NoopProvider()
	}
	return &Builder{
		l:       logger.GetLogger("query", "builder"),
		opts:    opts,
		total:   provider.Counter("total", "outcome"),
		latency: provider.Histogram("latency", meter.DefBuckets, "outcome"),
		terms:   provider.Gauge("terms"),
	}
}

// Build is BuildQuery with the tokenizers of b. The logger carried by ctx, if any, logs
// the build.
func (b *Builder) Build(ctx context.Context, req *SearchRequest, s *schema.Schema, withValidation bool) (inverted.Query, *WarmupInfo, error) {
	l := logger.FetchOrDefault(ctx, "builder", b.l)
	start := time.Now()
	compiled, warmup, err := buildQuery(req, s, compiler.Options{Tokenizers: b.opts.Tokenizers, WithValidation: withValidation})
	outcome := classify(err)
	b.total.Inc(1, outcome)
	meter.ObserveSince(b.latency, start, outcome)
	if err != nil {
		l.Debug().Err(err).Str("index", req.IndexID).Str("outcome", outcome).Msg("failed to build the query")
		return nil, nil, err
	}
	b.terms.Set(float64(warmup.TermCount()))
	if e := l.Debug(); e.Enabled() {
		e.Str("index", req.IndexID).
			Int("fast_fields", len(warmup.FastFieldNames)).
			Int("term_dict_fields", len(warmup.TermDictFieldNames)).
			Int("term_fields", len(warmup.TermsGroupedByField)).
			Int("terms", warmup.TermCount()).
			Msg("built the query")
	}
	return compiled, warmup, nil
}

func classify(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, query.ErrMalformedInput):
		return outcomeMalformed
	case errors.Is(err, query.ErrUserQueryNotParsed):
		return outcomeInternal
	case errors.Is(err, query.ErrNotImplemented):
		return outcomeUnsupported
	}
	return outcomeInvalid
}
