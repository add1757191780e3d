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

// Package version reports the build of the binary, as stamped by the linker from
// `git describe`.
package version

import (
	"fmt"
	"io"
	"strings"
)

// build is set with -ldflags "-X github.com/apache/skywalking-banyandb-querydsl/pkg/version.build=...".
var build string

// Build returns the raw build stamp.
func Build() string {
	return build
}

// Show writes the version line of serviceName to w.
func Show(w io.Writer, serviceName string) {
	fmt.Fprintln(w, serviceName+" "+Parse())
}

// Parse renders the build stamp, of the form
// `<release tag>-<commits since release tag>-g<commit hash>-<branch name>`.
func Parse() string {
	return parse(build)
}

func parse(stamp string) string {
	v := strings.SplitN(stamp, "-", 4)
	if len(v) != 4 {
		return "v0.0.0-unofficial"
	}
	if v[0] != "" && !strings.HasPrefix(strings.ToLower(v[0]), "v") {
		v[0] = "v" + v[0]
	}
	switch {
	case v[1] != "0":
		return fmt.Sprintf("%s-%s (%s, +%s)", v[0], v[3], strings.TrimPrefix(v[2], "g"), v[1])
	case v[3] != "main" && v[3] != "master":
		return v[0] + "-" + v[3]
	default:
		return v[0]
	}
}
