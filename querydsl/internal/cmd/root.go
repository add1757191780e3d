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

// Package cmd is the command line interface of querydsl.
package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/config"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/logger"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/version"
)

const configName = "querydsl"

// NewRoot returns the root command of querydsl.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:               "querydsl",
		DisableAutoGenTag: true,
		Version:           version.Parse(),
		Short:             "querydsl compiles search queries against index schemas",
		SilenceUsage:      true,
	}
	RootCmdFlags(root)
	return root
}

// RootCmdFlags adds the persistent flags and the sub commands of querydsl to command.
func RootCmdFlags(command *cobra.Command) {
	var (
		logging    logger.Logging
		configFile string
		p          printer
	)
	command.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := config.LoadFile(configName, configFile, cmd.Flags()); err != nil {
			return errors.WithMessage(err, "failed to load the config")
		}
		return logger.Init(logging)
	}
	flags := command.PersistentFlags()
	config.RegisterLoggingFlags(flags, &logging)
	flags.StringVar(&configFile, "config", "", "the config file, querydsl.yaml in the working directory by default")
	flags.StringVarP(&p.format, "output", "o", formatJSON, "the output format, json or yaml")
	command.AddCommand(newParseCmd(&p), newCompileCmd(&p), newExplainCmd(&p), newServeCmd(), newVersionCmd())
}
