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

package cmd_test

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/zenizh/go-capturer"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/explain"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/builder"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
	"github.com/apache/skywalking-banyandb-querydsl/querydsl/internal/cmd"
)

const definition = `
default_search_fields: [title]
fields:
  - name: title
    type: text
    indexed: true
  - name: dt
    type: datetime
    fast: true
  - name: u64_fast
    type: u64
    fast: true
    stored: true
`

func newRootCmd(args ...string) *cobra.Command {
	rootCmd := &cobra.Command{Use: "root"}
	cmd.RootCmdFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd
}

func execute(args ...string) string {
	return capturer.CaptureStdout(func() {
		err := newRootCmd(args...).Execute()
		Expect(err).NotTo(HaveOccurred())
	})
}

func schemaDir() string {
	dir, err := os.MkdirTemp("", "querydsl")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)
	Expect(os.WriteFile(filepath.Join(dir, "logs.yaml"), []byte(definition), 0o600)).To(Succeed())
	return dir
}

func decodeResponses(out string) []explain.CompileResponse {
	var responses []explain.CompileResponse
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		var resp explain.CompileResponse
		Expect(dec.Decode(&resp)).To(Succeed())
		responses = append(responses, resp)
	}
	return responses
}

var _ = Describe("parse", func() {
	It("prints the tree of a free text", func() {
		out := execute("parse", "title:hello", "AND", "dt:[2023-01-10T15:13:35Z TO *]")
		Expect(out).To(MatchJSON(`{
			"type": "Bool",
			"must": [
				{"type": "Term", "field": "title", "value": "hello"},
				{"type": "Range", "field": "dt", "lower_bound": {"Included": "2023-01-10T15:13:35Z"}, "upper_bound": "Unbounded"}
			]
		}`))
	})

	It("describes the tree", func() {
		out := execute("parse", "--describe", "--search-field", "title", "--default-operator", "or", "a b")
		Expect(out).To(Equal("(title:a title:b)\n"))
	})

	It("prints yaml", func() {
		out := execute("parse", "-o", "yaml", "title:hello")
		Expect(out).To(Equal("field: title\ntype: Term\nvalue: hello\n"))
	})

	It("parses elasticsearch queries from stdin", func() {
		rootCmd := newRootCmd("parse", "--describe", "-f", "-")
		rootCmd.SetIn(strings.NewReader(`{"bool": {"must": {"term": {"a": "b"}}, "must_not": {"match_all": {}}}}`))
		out := capturer.CaptureStdout(func() {
			Expect(rootCmd.Execute()).To(Succeed())
		})
		Expect(out).To(Equal("(+a:b -*)\n"))
	})

	It("needs a query", func() {
		Expect(newRootCmd("parse").Execute()).To(HaveOccurred())
	})

	It("fails on a bare term without search field", func() {
		err := newRootCmd("parse", "hello").Execute()
		Expect(err).To(MatchError(ContainSubstring("No default field declared")))
	})
})

var _ = Describe("compile", func() {
	var dir string

	BeforeEach(func() {
		dir = schemaDir()
	})

	It("compiles a free text against a schema file", func() {
		out := execute("compile", "--schema", filepath.Join(dir, "logs.yaml"), "-q", "title:hello AND u64_fast:[1 TO 5]")
		responses := decodeResponses(out)
		Expect(responses).To(HaveLen(1))
		Expect(responses[0].Index).To(Equal("logs"))
		Expect(responses[0].Warmup.FastFieldNames).To(Equal([]string{"u64_fast"}))
		Expect(responses[0].Warmup.Terms).To(Equal([]builder.WarmupTerm{{Field: "title", Type: "Str", Term: "hello"}}))
	})

	It("compiles a query tree against an index of a schema directory", func() {
		queryAST, err := ast.QueryStringWithDefaultFields("hello", []string{"title"})
		Expect(err).NotTo(HaveOccurred())
		out := execute("compile", "--schema-dir", dir, "--index", "logs", "--query-ast", queryAST)
		responses := decodeResponses(out)
		Expect(responses).To(HaveLen(1))
		Expect(responses[0].Warmup.Terms).To(Equal([]builder.WarmupTerm{{Field: "title", Type: "Str", Term: "hello"}}))
	})

	It("compiles every query of a directory", func() {
		queries := filepath.Join(dir, "queries")
		Expect(os.Mkdir(queries, 0o700)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(queries, "a.json"), []byte(`{"terms": {"title": ["x", "y"]}}`), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(queries, "b.json"), []byte(`{"range": {"dt": {"gte": "2023-01-10T15:13:35Z"}}}`), 0o600)).To(Succeed())
		out := execute("compile", "--schema", filepath.Join(dir, "logs.yaml"), "-f", queries)
		responses := decodeResponses(out)
		Expect(responses).To(HaveLen(2))
		Expect(responses[0].Warmup.TermDictFieldNames).To(Equal([]string{"title"}))
		Expect(responses[1].Warmup.FastFieldNames).To(Equal([]string{"dt"}))
	})

	It("separates yaml documents", func() {
		queries := filepath.Join(dir, "queries")
		Expect(os.Mkdir(queries, 0o700)).To(Succeed())
		for _, name := range []string{"a.json", "b.json"} {
			Expect(os.WriteFile(filepath.Join(queries, name), []byte(`{"match_all": {}}`), 0o600)).To(Succeed())
		}
		out := execute("compile", "-o", "yaml", "--schema", filepath.Join(dir, "logs.yaml"), "-f", queries)
		Expect(strings.Count(out, "---\n")).To(Equal(1))
		Expect(strings.Count(out, "index: logs\n")).To(Equal(2))
	})

	It("drops the invalid clauses when lenient", func() {
		args := []string{"compile", "--schema", filepath.Join(dir, "logs.yaml"), "-q", "title:a OR u64_fast:abc"}
		err := newRootCmd(args...).Execute()
		Expect(err).To(MatchError(ContainSubstring("Expected a `u64` search value for field `u64_fast`")))
		responses := decodeResponses(execute(append(args, "--lenient")...))
		Expect(responses[0].Warmup.Terms).To(HaveLen(1))
	})

	It("reads the flags from the environment", func() {
		Expect(os.Setenv("QDSL_SORT_BY", "title")).To(Succeed())
		DeferCleanup(os.Unsetenv, "QDSL_SORT_BY")
		err := newRootCmd("compile", "--schema", filepath.Join(dir, "logs.yaml"), "-q", "*").Execute()
		Expect(err).To(MatchError(ContainSubstring("Sort by field on type text is currently not supported `title`.")))
	})

	It("reads the flags from a config file", func() {
		config := filepath.Join(dir, "querydsl.yaml")
		Expect(os.WriteFile(config, []byte("output: yaml\n"), 0o600)).To(Succeed())
		out := execute("compile", "--config", config, "--schema", filepath.Join(dir, "logs.yaml"), "-q", "*")
		Expect(out).To(ContainSubstring("index: logs\n"))
	})

	DescribeTable("rejects invalid invocations",
		func(args ...string) {
			Expect(newRootCmd(append([]string{"compile"}, args...)...).Execute()).To(HaveOccurred())
		},
		Entry("no schema", "-q", "*"),
		Entry("no query", "--index", "logs"),
		Entry("two queries", "--index", "logs", "-q", "*", "--query-ast", `{"type":"MatchAll"}`),
		Entry("unknown index", "--index", "traces", "-q", "*"),
		Entry("unknown output", "-o", "xml", "--index", "logs", "-q", "*"),
	)
})

var _ = Describe("explain", func() {
	var addr string

	BeforeEach(func() {
		registry, err := schema.NewRegistry(schemaDir(), 4, nil)
		Expect(err).NotTo(HaveOccurred())
		s, err := explain.NewServer(explain.Config{ListenAddr: "127.0.0.1:0", WithValidation: true}, registry, prometheus.NewRegistry())
		Expect(err).NotTo(HaveOccurred())
		ts := httptest.NewServer(s.Handler())
		DeferCleanup(ts.Close)
		addr = ts.URL
	})

	It("compiles on the server", func() {
		out := execute("explain", "--addr", addr, "--index", "logs", "-q", "title:hello")
		local := decodeResponses(execute("compile", "--schema", filepath.Join(schemaDir(), "logs.yaml"), "-q", "title:hello"))
		remote := decodeResponses(out)
		Expect(remote).To(HaveLen(1))
		Expect(remote[0].Fingerprint).To(Equal(local[0].Fingerprint))
		Expect(remote[0].Warmup).To(Equal(local[0].Warmup))
	})

	It("reports the errors of the server", func() {
		err := newRootCmd("explain", "--addr", addr, "--index", "logs", "-q", "foo:bar").Execute()
		Expect(err).To(MatchError(ContainSubstring("Field does not exist: 'foo'")))
		err = newRootCmd("explain", "--addr", addr, "--index", "traces", "-q", "*").Execute()
		Expect(err).To(MatchError(ContainSubstring("404")))
	})

	It("needs an index", func() {
		Expect(newRootCmd("explain", "--addr", addr, "-q", "*").Execute()).To(HaveOccurred())
	})
})

var _ = Describe("serve", func() {
	It("needs a schema directory", func() {
		Expect(newRootCmd("serve", "--schema-dir", filepath.Join(os.TempDir(), "querydsl-missing")).Execute()).To(HaveOccurred())
		f, err := os.CreateTemp("", "querydsl")
		Expect(err).NotTo(HaveOccurred())
		f.Close()
		DeferCleanup(os.Remove, f.Name())
		Expect(newRootCmd("serve", "--schema-dir", f.Name()).Execute()).To(HaveOccurred())
	})

	It("fails on an invalid address", func() {
		Expect(newRootCmd("serve", "--schema-dir", schemaDir(), "--addr", "127.0.0.1:-1").Execute()).To(HaveOccurred())
	})
})

var _ = Describe("version", func() {
	It("prints the version", func() {
		Expect(execute("version")).To(Equal("querydsl v0.0.0-unofficial\n"))
	})
})
