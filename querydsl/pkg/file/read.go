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

// Package file reads the inputs of the command line tool.
package file

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Content is the data read from a path.
type Content struct {
	Path string
	Data []byte
}

// Read reads path, or reader when path is `-`. A directory yields every file with one of
// exts in it, ordered by path.
func Read(path string, reader io.Reader, exts ...string) ([]Content, error) {
	if path == "-" {
		b, err := io.ReadAll(bufio.NewReader(reader))
		if err != nil {
			return nil, err
		}
		return []Content{{Path: path, Data: b}}, nil
	}
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fileInfo.IsDir() {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Content{{Path: path, Data: b}}, nil
	}
	var contents []Content
	err = filepath.Walk(path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !matchExt(path, exts) {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		contents = append(contents, Content{Path: path, Data: b})
		return nil
	})
	sort.Slice(contents, func(i, j int) bool { return contents[i].Path < contents[j].Path })
	return contents, err
}

func matchExt(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
