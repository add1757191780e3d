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

// Package explain serves the compilation of queries over HTTP.
package explain

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/logger"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/meter"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/meter/prom"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/builder"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

const (
	defaultReadHeaderTimeout = 3 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

var errNoAddr = errors.New("no address")

// Config holds the settings of the explain server.
type Config struct {
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// WithValidation is the validation mode of the requests that do not set one.
	WithValidation bool
}

// Server compiles the queries posted to `/api/v1/{index}/compile` against the schemas of a
// registry and exposes its metrics on `/metrics`.
type Server struct {
	srv      *http.Server
	mux      *chi.Mux
	schemas  *schema.Registry
	builder  *builder.Builder
	requests meter.Counter
	l        *logger.Logger
	cfg      Config
}

// NewServer returns a server reading the schemas from schemas. Its metrics are registered
// in reg.
func NewServer(cfg Config, schemas *schema.Registry, reg *prometheus.Registry) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, errNoAddr
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	scope := meter.NewScope("querydsl")
	s := &Server{
		cfg:      cfg,
		schemas:  schemas,
		l:        logger.GetLogger("explain"),
		builder:  builder.NewBuilder(prom.NewProvider(scope.SubScope("builder"), reg), builder.Options{}),
		requests: prom.NewProvider(scope.SubScope("http"), reg).Counter("requests", "route", "code"),
	}
	s.mux = chi.NewRouter()
	s.mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.mux.Route("/api/v1/{index}", func(r chi.Router) {
		r.Post("/compile", s.compile)
		r.Delete("/schema", s.invalidate)
	})
	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s, nil
}

// Handler returns the router of s.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve listens to the configured address until GracefulStop is called.
func (s *Server) Serve() error {
	s.l.Info().Str("listenAddr", s.cfg.ListenAddr).Msg("start explain server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// GracefulStop waits for the in-flight requests within the shutdown timeout.
func (s *Server) GracefulStop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.l.Warn().Err(err).Msg("failed to shut down the explain server")
		return
	}
	s.l.Info().Msg("explain server stopped")
}
