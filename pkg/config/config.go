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

// Package config loads the settings of the querydsl tools from a config file, env vars and flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/logger"
)

// EnvPrefix prefixes every environment variable bound to a flag.
const EnvPrefix = "QDSL"

// Load applies the config file named name, searched in the working directory, and the
// QDSL_ prefixed environment variables to the flags of fs that are not set explicitly.
func Load(name string, fs *pflag.FlagSet) error {
	return LoadFile(name, "", fs)
}

// LoadFile behaves as Load. A non empty file is read in place of the named config and
// must exist.
func LoadFile(name, file string, fs *pflag.FlagSet) error {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(name)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if file != "" || !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return err
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return BindFlags(fs, v, EnvPrefix)
}

// BindFlags copies the viper value of every flag that is not changed on the command line.
// Dashed flag names bind to underscored environment variables.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper, envPrefix string) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			err = multierr.Append(err, v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)))
		}
		if !f.Changed && v.IsSet(f.Name) {
			err = multierr.Append(err, fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))))
		}
	})
	return err
}

// RegisterLoggingFlags adds the flags filling cfg.
func RegisterLoggingFlags(fs *pflag.FlagSet, cfg *logger.Logging) {
	fs.StringVar(&cfg.Env, "logging-env", "prod", "the logging environment, dev or prod")
	fs.StringVar(&cfg.Level, "logging-level", "info", "the root level of logging")
	fs.StringSliceVar(&cfg.Modules, "logging-modules", nil, "the specific module names whose level is overridden")
	fs.StringSliceVar(&cfg.Levels, "logging-levels", nil, "the levels of the modules in logging-modules")
}
