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

package explain_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/explain"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/builder"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

const logs = `
default_search_fields: [title]
fields:
  - name: title
    type: text
    indexed: true
  - name: dt
    type: datetime
    fast: true
  - name: ip
    type: ip
    stored: true
`

var _ = Describe("Server", func() {
	var (
		dir string
		ts  *httptest.Server
	)

	post := func(index string, body string) (int, []byte) {
		resp, err := http.Post(ts.URL+"/api/v1/"+index+"/compile", "application/json", bytes.NewBufferString(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, data
	}

	compile := func(body string) *explain.CompileResponse {
		code, data := post("logs", body)
		Expect(code).To(Equal(http.StatusOK), string(data))
		var resp explain.CompileResponse
		Expect(json.Unmarshal(data, &resp)).To(Succeed())
		return &resp
	}

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "explain")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		Expect(os.WriteFile(filepath.Join(dir, "logs.yaml"), []byte(logs), 0o600)).To(Succeed())
		registry, err := schema.NewRegistry(dir, 8, nil)
		Expect(err).NotTo(HaveOccurred())
		s, err := explain.NewServer(explain.Config{ListenAddr: "127.0.0.1:0", WithValidation: true}, registry, prometheus.NewRegistry())
		Expect(err).NotTo(HaveOccurred())
		ts = httptest.NewServer(s.Handler())
		DeferCleanup(ts.Close)
	})

	It("compiles user text", func() {
		resp := compile(`{"user_text": "title:hello AND dt:[2023-01-10T15:13:35Z TO *]"}`)
		Expect(resp.Index).To(Equal("logs"))
		Expect(resp.Fingerprint).To(HaveLen(16))
		Expect(resp.Warmup.FastFieldNames).To(Equal([]string{"dt"}))
		Expect(resp.Warmup.TermDictFieldNames).To(BeEmpty())
		Expect(resp.Warmup.Terms).To(Equal([]builder.WarmupTerm{{Field: "title", Type: "Str", Term: "hello"}}))
	})

	It("compiles elasticsearch queries", func() {
		resp := compile(`{"query": {"bool": {"should": [{"terms": {"title": ["a", "b"]}}, {"match_phrase": {"title": "c d"}}]}}}`)
		Expect(resp.Warmup.TermDictFieldNames).To(Equal([]string{"title"}))
		Expect(resp.Warmup.PostingFieldNames).To(Equal([]string{"title"}))
		Expect(resp.Warmup.Terms).To(Equal([]builder.WarmupTerm{
			{Field: "title", Type: "Str", Term: "a"},
			{Field: "title", Type: "Str", Term: "b"},
			{Field: "title", Type: "Str", Term: "c", NeedsPosition: true},
			{Field: "title", Type: "Str", Term: "d", NeedsPosition: true},
		}))
	})

	It("fingerprints equivalent queries alike", func() {
		queryAST, err := ast.QueryString("title:hello")
		Expect(err).NotTo(HaveOccurred())
		fromAST := compile(`{"query_ast": ` + queryAST + `}`)
		fromText := compile(`{"user_text": "title:hello"}`)
		fromDSL := compile(`{"query": {"term": {"title": "hello"}}}`)
		Expect(fromAST.Fingerprint).To(Equal(fromText.Fingerprint))
		Expect(fromDSL.Fingerprint).To(Equal(fromText.Fingerprint))
		Expect(fromAST.Query).To(MatchJSON(fromText.Query))
		Expect(compile(`{"user_text": "title:world"}`).Fingerprint).NotTo(Equal(fromText.Fingerprint))
	})

	It("searches the default fields of the schema", func() {
		resp := compile(`{"user_text": "hello"}`)
		Expect(resp.Warmup.Terms).To(Equal([]builder.WarmupTerm{{Field: "title", Type: "Str", Term: "hello"}}))
	})

	It("drops the invalid clauses without validation", func() {
		code, _ := post("logs", `{"user_text": "title:a OR foo:bar"}`)
		Expect(code).To(Equal(http.StatusBadRequest))
		resp := compile(`{"user_text": "title:a OR foo:bar", "with_validation": false}`)
		Expect(resp.Warmup.Terms).To(HaveLen(1))
	})

	DescribeTable("rejects the invalid requests",
		func(index, body string, status int, message string) {
			code, data := post(index, body)
			Expect(code).To(Equal(status))
			var resp explain.ErrorResponse
			Expect(json.Unmarshal(data, &resp)).To(Succeed())
			Expect(resp.Error).To(ContainSubstring(message))
		},
		Entry("unknown index", "traces", `{"user_text": "*"}`, http.StatusNotFound, "index not found"),
		Entry("invalid body", "logs", `{`, http.StatusBadRequest, "malformed query"),
		Entry("no query", "logs", `{}`, http.StatusBadRequest, "one of query, query_ast and user_text is required"),
		Entry("two queries", "logs", `{"user_text": "*", "query": {"match_all": {}}}`, http.StatusBadRequest, "is required"),
		Entry("unknown clause", "logs", `{"query": {"fuzzy": {"title": "a"}}}`, http.StatusBadRequest, "unknown clause"),
		Entry("unknown field", "logs", `{"user_text": "foo:bar"}`, http.StatusBadRequest, "Field does not exist: 'foo'"),
		Entry("non fast range", "logs", `{"user_text": "ip:[1.1.1.1 TO *]"}`, http.StatusBadRequest, "`ip` is not a fast field"),
		Entry("unsortable field", "logs", `{"user_text": "*", "sort_by_field": "title"}`, http.StatusBadRequest,
			"Sort by field on type text is currently not supported `title`."),
	)

	It("reloads an invalidated schema", func() {
		code, _ := post("logs", `{"user_text": "desc:a"}`)
		Expect(code).To(Equal(http.StatusBadRequest))
		Expect(os.WriteFile(filepath.Join(dir, "logs.yaml"), []byte(logs+`
  - name: desc
    type: text
    indexed: true
`), 0o600)).To(Succeed())
		code, _ = post("logs", `{"user_text": "desc:a"}`)
		Expect(code).To(Equal(http.StatusBadRequest))

		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/logs/schema", http.NoBody)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		code, _ = post("logs", `{"user_text": "desc:a"}`)
		Expect(code).To(Equal(http.StatusOK))
	})

	It("exposes its metrics", func() {
		compile(`{"user_text": "title:hello"}`)
		post("traces", `{"user_text": "*"}`)
		resp, err := http.Get(ts.URL + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`querydsl_builder_total{outcome="ok"} 1`))
		Expect(string(data)).To(ContainSubstring(`querydsl_http_requests{code="200",route="compile"} 1`))
		Expect(string(data)).To(ContainSubstring(`querydsl_http_requests{code="404",route="compile"} 1`))
	})

	It("is healthy", func() {
		resp, err := http.Get(ts.URL + "/healthz")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})
})

var _ = Describe("NewServer", func() {
	It("needs an address", func() {
		registry, err := schema.NewRegistry(os.TempDir(), 1, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = explain.NewServer(explain.Config{}, registry, prometheus.NewRegistry())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Fingerprint", func() {
	It("is stable", func() {
		Expect(explain.Fingerprint(`{"term":"a"}`)).To(Equal(explain.Fingerprint(`{"term":"a"}`)))
		Expect(explain.Fingerprint("")).To(Equal("ef46db3751d8e999"))
	})
})
