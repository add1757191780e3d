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

package cmd

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/explain"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/logger"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

var errNotDir = errors.New("the schema directory is not a directory")

func newServeCmd() *cobra.Command {
	var (
		cfg       explain.Config
		dir       string
		cacheSize int
		watch     bool
	)
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the explain server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := logger.GetLogger("serve")
			info, err := os.Stat(dir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return errors.WithMessage(errNotDir, dir)
			}
			if _, err = maxprocs.Set(maxprocs.Logger(logger.Infof)); err != nil {
				l.Warn().Err(err).Msg("failed to set GOMAXPROCS")
			}
			registry, err := schema.NewRegistry(dir, cacheSize, l.Named("registry"))
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			srv, err := explain.NewServer(cfg, registry, reg)
			if err != nil {
				return err
			}

			var g run.Group
			g.Add(srv.Serve, func(error) {
				srv.GracefulStop()
			})
			if watch {
				watcher, watchErr := registry.Watch()
				if watchErr != nil {
					return watchErr
				}
				ctx, cancel := context.WithCancel(cmd.Context())
				g.Add(func() error {
					return watcher.Run(ctx)
				}, func(error) {
					cancel()
					if closeErr := watcher.Close(); closeErr != nil {
						l.Warn().Err(closeErr).Msg("failed to close the schema watcher")
					}
				})
			}
			g.Add(run.SignalHandler(cmd.Context(), os.Interrupt, syscall.SIGTERM))
			err = g.Run()
			var sig run.SignalError
			if errors.As(err, &sig) {
				l.Info().Str("signal", sig.Signal.String()).Msg("stopped by signal")
				return nil
			}
			return err
		},
	}
	flags := serveCmd.Flags()
	flags.StringVar(&cfg.ListenAddr, "addr", defaultAddr, "the listen address")
	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 5*time.Second, "the time given to the in-flight requests on shutdown")
	flags.BoolVar(&cfg.WithValidation, "with-validation", true, "fail the requests whose clauses fail validation by default")
	flags.StringVar(&dir, "schema-dir", ".", "the directory of the schema definitions")
	flags.IntVar(&cacheSize, "schema-cache-size", 128, "the number of cached schemas")
	flags.BoolVar(&watch, "watch-schema-dir", true, "reload the schema of an index when its definition file changes")
	return serveCmd
}
