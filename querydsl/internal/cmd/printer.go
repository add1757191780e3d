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
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var errUnknownFormat = errors.New("unknown output format")

type printer struct {
	format string
}

// print writes the index-th result v to w.
func (p *printer) print(w io.Writer, index int, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.printRaw(w, index, data)
}

// printRaw writes the index-th result, a JSON document, to w.
func (p *printer) printRaw(w io.Writer, index int, data []byte) error {
	switch p.format {
	case formatJSON:
		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "  "); err != nil {
			return err
		}
		out.WriteByte('\n')
		_, err := w.Write(out.Bytes())
		return err
	case formatYAML:
		yamlResult, err := yaml.JSONToYAML(data)
		if err != nil {
			return err
		}
		if index > 0 {
			fmt.Fprintln(w, "---")
		}
		_, err = w.Write(yamlResult)
		return err
	}
	return errors.WithMessagef(errUnknownFormat, "%q", p.format)
}
