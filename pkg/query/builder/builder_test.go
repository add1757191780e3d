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

package builder_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/index/inverted"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/meter"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/meter/prom"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/ast"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/query/builder"
	"github.com/apache/skywalking-banyandb-querydsl/pkg/schema"
)

func makeSchema(dynamic bool) *schema.Schema {
	b := schema.NewBuilder()
	b.AddTextField("title", schema.Text)
	b.AddTextField("desc", schema.Text, schema.Stored)
	b.AddTextField("server.name", schema.Text, schema.Stored)
	b.AddTextField("server.mem", schema.Text)
	b.AddBoolField("server.running", schema.Fast, schema.Stored, schema.Indexed)
	b.AddTextField(schema.SourceFieldName, schema.Text)
	if dynamic {
		b.AddJSONField(schema.DynamicFieldName, schema.Text, false)
	}
	b.AddIPAddrField("ip", schema.Fast, schema.Stored)
	b.AddIPAddrField("ips", schema.Fast)
	b.AddIPAddrField("ip_notff", schema.Stored)
	b.AddDateField("dt", schema.Fast)
	b.AddU64Field("u64_fast", schema.Fast, schema.Stored)
	b.AddI64Field("i64_fast", schema.Fast, schema.Stored)
	b.AddF64Field("f64_fast", schema.Fast, schema.Stored)
	s, err := b.Build()
	Expect(err).NotTo(HaveOccurred())
	return s
}

func request(text string, searchFields ...string) *builder.SearchRequest {
	data, err := ast.QueryString(text)
	Expect(err).NotTo(HaveOccurred())
	return &builder.SearchRequest{IndexID: "test", QueryAST: data, SearchFields: searchFields, MaxHits: 10}
}

func set(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

var _ = Describe("BuildQuery", func() {
	DescribeTable("validates user text queries",
		func(text string, searchFields []string, dynamic bool, expectedErr string) {
			_, _, err := builder.BuildQuery(request(text, searchFields...), makeSchema(dynamic), true)
			if expectedErr == "" {
				Expect(err).NotTo(HaveOccurred())
				return
			}
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(expectedErr))
		},
		Entry("match all", "*", nil, false, ""),
		Entry("unknown field", "foo:bar", nil, false, "Field does not exist: 'foo'"),
		Entry("unknown field with a dynamic field", "foo:bar", nil, true, ""),
		Entry("unknown nested field", "server.type:hpc server.mem:4GB", nil, false, "Field does not exist: 'server.type'"),
		Entry("nested field with a dynamic field", "server.type:hpc server.mem:4GB", nil, true, ""),
		Entry("text range", "title:[a TO b]", nil, false, "`title` is not a fast field"),
		Entry("exclusive text range", "title:{a TO b} desc:foo", nil, false, "`title` is not a fast field"),
		Entry("text comparison", "title:>foo", nil, false, "`title` is not a fast field"),
		Entry("fielded clauses", "title:foo desc:bar _source:baz", nil, false, ""),
		Entry("unknown search field", "title:foo desc:bar", []string{"url"}, false, "Field does not exist: 'url'"),
		Entry("search field hitting the dynamic field", "title:foo desc:bar", []string{"url"}, true, ""),
		Entry("search field on a json root", "title:foo", []string{schema.DynamicFieldName}, true,
			"Searching the root of a JSON field is not supported"),
		Entry("quoted values", `server.name:".bar:" server.mem:4GB`, nil, false, ""),
		Entry("bool", "server.running:true", nil, false, ""),
		Entry("invalid bool", "server.running:not a bool", []string{"title"}, false,
			"Expected a `bool` search value for field `server.running`"),
		Entry("bare term", "foo", nil, false, "No default field declared and no field specified in query."),
		Entry("bare term in a group", "title:hello AND (Jane OR desc:world)", nil, false,
			"No default field declared and no field specified in query."),
		Entry("bare term with search fields", "title:hello AND (Jane OR desc:world)", []string{"desc"}, false, ""),
		Entry("term set", "title: IN [hello]", nil, false, ""),
		Entry("term set without field", "IN [hello]", nil, false, "Set query need to target a specific field."),
		Entry("date range", "dt:[2023-01-10T15:13:35Z TO 2023-01-10T15:13:40Z]", nil, false, ""),
		Entry("date comparison", "dt:<2023-01-10T15:13:35Z", nil, false, ""),
		Entry("ip range", "ip:[127.0.0.1 TO 127.1.1.1]", nil, false, ""),
		Entry("ip comparison", "ip:<127.0.0.1", nil, false, ""),
		Entry("ips range", "ips:[127.0.0.1 TO 127.1.1.1]", nil, false, ""),
		Entry("ip range on a non fast field", "ip_notff:[0.0.0.0 TO *]", nil, false,
			"Range queries are only supported for fast fields. (`ip_notff` is not a fast field)"),
		Entry("f64 range", "f64_fast:[7.7 TO 77.7]", nil, false, ""),
		Entry("f64 comparison", "f64_fast:>7", nil, false, ""),
		Entry("i64 range", "i64_fast:[-7 TO 77]", nil, false, ""),
		Entry("i64 comparison", "i64_fast:>7", nil, false, ""),
		Entry("u64 range", "u64_fast:[7 TO 77]", nil, false, ""),
		Entry("u64 comparison", "u64_fast:>7", nil, false, ""),
		Entry("invalid u64 boundary", "u64_fast:>seven", nil, false, "Expected a `u64` boundary for field `u64_fast`"),
		Entry("bool range", "server.running:[false TO true]", nil, false, "Range queries are only supported on"),
	)

	It("plans nothing for match all", func() {
		q, warmup, err := builder.BuildQuery(request("*"), makeSchema(false), true)
		Expect(err).NotTo(HaveOccurred())
		Expect(q).To(Equal(&inverted.AllQuery{}))
		Expect(warmup.IsEmpty()).To(BeTrue())
	})

	It("fails on an unknown field", func() {
		_, _, err := builder.BuildQuery(request("foo:bar"), makeSchema(false), true)
		Expect(errors.Is(err, query.ErrFieldDoesNotExist)).To(BeTrue())
		var parserErr *builder.QueryParserError
		Expect(errors.As(err, &parserErr)).To(BeTrue())
	})

	It("fails on a text range", func() {
		_, _, err := builder.BuildQuery(request("title:[a TO b]"), makeSchema(false), true)
		Expect(errors.Is(err, query.ErrSchema)).To(BeTrue())
	})

	It("loads the fast fields of the ranges", func() {
		q, warmup, err := builder.BuildQuery(request("dt:[2023-01-10T15:13:35Z TO 2023-01-10T15:13:40Z]"), makeSchema(false), true)
		Expect(err).NotTo(HaveOccurred())
		s := makeSchema(false)
		dt, _ := s.GetField("dt")
		lower := time.Date(2023, 1, 10, 15, 13, 35, 0, time.UTC)
		Expect(q).To(Equal(&inverted.RangeQuery{
			Field: dt,
			Type:  schema.TypeDate,
			Lower: ast.IncludedBound(inverted.DateTerm(dt, lower)),
			Upper: ast.IncludedBound(inverted.DateTerm(dt, lower.Add(5*time.Second))),
		}))
		Expect(warmup.FastFieldNames).To(Equal(set("dt")))
		Expect(warmup.TermDictFieldNames).To(BeEmpty())
		Expect(warmup.TermsGroupedByField).To(BeEmpty())
	})

	It("loads the term dictionaries of the term sets", func() {
		s := makeSchema(false)
		title, _ := s.GetField("title")
		q, warmup, err := builder.BuildQuery(request("title: IN [hello]"), s, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(q).To(Equal(&inverted.TermSetQuery{Terms: []inverted.Term{inverted.StrTerm(title, "hello")}}))
		Expect(warmup.TermDictFieldNames).To(Equal(set("title")))
		Expect(warmup.PostingFieldNames).To(Equal(warmup.TermDictFieldNames))
		Expect(warmup.FastFieldNames).To(BeEmpty())
	})

	It("loads no term dictionary for plain terms", func() {
		s := makeSchema(false)
		title, _ := s.GetField("title")
		_, warmup, err := builder.BuildQuery(request("title:hello"), s, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(warmup.TermDictFieldNames).To(BeEmpty())
		Expect(warmup.PostingFieldNames).To(BeEmpty())
		Expect(warmup.TermsGroupedByField).To(Equal(builder.TermsByField{
			title: {inverted.StrTerm(title, "hello"): false},
		}))
	})

	It("needs the positions of a term used by a phrase", func() {
		s := makeSchema(false)
		title, _ := s.GetField("title")
		_, warmup, err := builder.BuildQuery(request(`title:hello OR title:"hello world"`), s, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(warmup.TermsGroupedByField).To(Equal(builder.TermsByField{
			title: {
				inverted.StrTerm(title, "hello"): true,
				inverted.StrTerm(title, "world"): true,
			},
		}))
	})

	It("groups the terms of json fields by the json field", func() {
		s := makeSchema(true)
		dynamic, _ := s.GetField(schema.DynamicFieldName)
		_, warmup, err := builder.BuildQuery(request("server.type:hpc"), s, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(warmup.TermsGroupedByField).To(Equal(builder.TermsByField{
			dynamic: {inverted.StrTerm(dynamic, "hpc").InJSON(dynamic, "server.type"): false},
		}))
	})

	It("fails on a bare term without default fields", func() {
		for _, withValidation := range []bool{true, false} {
			_, _, err := builder.BuildQuery(request("foo"), makeSchema(false), withValidation)
			Expect(errors.Is(err, query.ErrNoDefaultField)).To(BeTrue())
		}
	})

	It("searches the default fields of the schema", func() {
		b := schema.NewBuilder()
		title := b.AddTextField("title", schema.Text)
		b.SetDefaultSearchFields("title")
		s, err := b.Build()
		Expect(err).NotTo(HaveOccurred())
		q, _, err := builder.BuildQuery(request("foo"), s, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(q).To(Equal(&inverted.TermQuery{Term: inverted.StrTerm(title, "foo")}))
	})

	It("fails on malformed input", func() {
		_, _, err := builder.BuildQuery(&builder.SearchRequest{QueryAST: `{"type":"Bool","must":[{"type":"Nope"}]}`}, makeSchema(false), false)
		Expect(errors.Is(err, query.ErrMalformedInput)).To(BeTrue())
		_, _, err = builder.BuildQuery(&builder.SearchRequest{QueryAST: "not json"}, makeSchema(false), false)
		Expect(errors.Is(err, query.ErrMalformedInput)).To(BeTrue())
	})

	Context("without validation", func() {
		It("drops the failing clauses but plans their fast fields", func() {
			s := makeSchema(false)
			title, _ := s.GetField("title")
			req := request("title:foo OR ip_notff:[0.0.0.0 TO *] OR u64_fast:abc")
			_, _, err := builder.BuildQuery(req, s, true)
			Expect(errors.Is(err, query.ErrSchema)).To(BeTrue())

			q, warmup, err := builder.BuildQuery(req, s, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(q).To(Equal(&inverted.TermQuery{Term: inverted.StrTerm(title, "foo")}))
			Expect(warmup.FastFieldNames).To(Equal(set("ip_notff")))
		})

		It("matches everything with an empty bool", func() {
			data, err := ast.Marshal(&ast.BoolQuery{})
			Expect(err).NotTo(HaveOccurred())
			q, _, err := builder.BuildQuery(&builder.SearchRequest{QueryAST: string(data)}, makeSchema(false), false)
			Expect(err).NotTo(HaveOccurred())
			Expect(q).To(Equal(&inverted.AllQuery{}))
		})

		It("keeps failing on unimplemented ranges", func() {
			b := schema.NewBuilder()
			b.AddBytesField("blob", schema.Fast, schema.Indexed)
			s, err := b.Build()
			Expect(err).NotTo(HaveOccurred())
			_, _, err = builder.BuildQuery(request("blob:[a TO b]"), s, false)
			Expect(errors.Is(err, query.ErrNotImplemented)).To(BeTrue())
		})
	})

	DescribeTable("validates the sort field",
		func(sortBy string, searchFields []string, target error, message string) {
			req := request("title:foo", searchFields...)
			req.SortByField = sortBy
			_, _, err := builder.BuildQuery(req, makeSchema(false), true)
			if target == nil {
				Expect(err).NotTo(HaveOccurred())
				return
			}
			Expect(errors.Is(err, target)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(message))
		},
		Entry("no sort", "", nil, nil, ""),
		Entry("score", "_score", []string{"title", "desc"}, nil, ""),
		Entry("score without fieldnorms", "_score", []string{"title", "ip"}, query.ErrMissingFieldNorms,
			"Fieldnorms for field `ip` is missing. Fieldnorms must be stored for the field to compute the BM25 score of the documents."),
		Entry("fast field", "u64_fast", nil, nil, ""),
		Entry("descending fast field", "-dt", nil, nil, ""),
		Entry("unknown field", "timestamp", nil, query.ErrUnknownSortField, "Unknown sort by field: `timestamp`"),
		Entry("text field", "title", nil, query.ErrUnsortableField, "Sort by field on type text is currently not supported `title`."),
		Entry("non fast field", "ip_notff", nil, query.ErrUnsortableField,
			"Sort by field must be a fast field, please add the fast property to your field `ip_notff`."),
	)

	It("checks the search fields without validation", func() {
		_, _, err := builder.BuildQuery(request("title:foo", "url"), makeSchema(false), false)
		Expect(errors.Is(err, query.ErrFieldDoesNotExist)).To(BeTrue())
		var parserErr *builder.QueryParserError
		Expect(errors.As(err, &parserErr)).To(BeTrue())
	})

	It("checks the search fields before the score fieldnorms", func() {
		req := request("title:foo", "url", "ip")
		req.SortByField = schema.ScoreFieldName
		_, _, err := builder.BuildQuery(req, makeSchema(false), true)
		Expect(errors.Is(err, query.ErrFieldDoesNotExist)).To(BeTrue())
	})

	It("validates the sort field before compiling", func() {
		req := request("foo:bar")
		req.SortByField = "title"
		_, _, err := builder.BuildQuery(req, makeSchema(false), true)
		Expect(errors.Is(err, query.ErrUnsortableField)).To(BeTrue())
	})

	It("compiles deterministically", func() {
		s := makeSchema(true)
		req := request(`title:"a b" OR desc: IN [x y] OR server.type:42 OR u64_fast:[1 TO 5}`)
		first, firstWarmup, err := builder.BuildQuery(req, s, true)
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < 5; i++ {
			q, warmup, err := builder.BuildQuery(req, s, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(q).To(Equal(first))
			Expect(warmup).To(Equal(firstWarmup))
		}
	})
})

var _ = Describe("Builder", func() {
	var (
		reg *prometheus.Registry
		b   *builder.Builder
	)

	BeforeEach(func() {
		reg = prometheus.NewRegistry()
		scope := meter.NewScope("querydsl").SubScope("builder")
		b = builder.NewBuilder(prom.NewProvider(scope, reg), builder.Options{})
	})

	It("counts the builds by outcome", func() {
		s := makeSchema(false)
		_, _, err := b.Build(context.Background(), request("title:foo"), s, true)
		Expect(err).NotTo(HaveOccurred())
		_, _, err = b.Build(context.Background(), request("foo:bar"), s, true)
		Expect(err).To(HaveOccurred())
		_, _, err = b.Build(context.Background(), &builder.SearchRequest{QueryAST: "{"}, s, true)
		Expect(err).To(HaveOccurred())

		Expect(testutil.CollectAndCount(reg, "querydsl_builder_total")).To(Equal(3))
		Expect(testutil.CollectAndCount(reg, "querydsl_builder_latency")).To(Equal(3))
		Expect(testutil.CollectAndCount(reg, "querydsl_builder_terms")).To(Equal(1))
	})

	It("builds the same query as BuildQuery", func() {
		s := makeSchema(true)
		req := request("title:foo server.type:bar")
		q, warmup, err := b.Build(context.Background(), req, s, true)
		Expect(err).NotTo(HaveOccurred())
		expected, expectedWarmup, err := builder.BuildQuery(req, s, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(q).To(Equal(expected))
		Expect(warmup).To(Equal(expectedWarmup))
	})

	It("works without a meter provider", func() {
		_, _, err := builder.NewBuilder(nil, builder.Options{}).Build(context.Background(), request("*"), makeSchema(false), true)
		Expect(err).NotTo(HaveOccurred())
	})
})
