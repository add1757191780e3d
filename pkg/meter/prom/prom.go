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

// Package prom implements the meter instruments with prometheus collectors.
package prom

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/apache/skywalking-banyandb-querydsl/pkg/meter"
)

type provider struct {
	scope meter.Scope
	reg   prometheus.Registerer
}

// NewProvider returns a provider registering its collectors to reg under the namespace of
// scope. An instrument created twice shares the collector registered first.
func NewProvider(scope meter.Scope, reg prometheus.Registerer) meter.Provider {
	return &provider{scope: scope, reg: reg}
}

// Counter returns a prometheus counter.
func (p *provider) Counter(name string, labels ...string) meter.Counter {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        p.scope.Name(name),
		Help:        p.scope.Name(name),
		ConstLabels: prometheus.Labels(p.scope.ConstLabels()),
	}, labels)
	return &counter{counter: register(p.reg, vec)}
}

// Gauge returns a prometheus gauge.
func (p *provider) Gauge(name string, labels ...string) meter.Gauge {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        p.scope.Name(name),
		Help:        p.scope.Name(name),
		ConstLabels: prometheus.Labels(p.scope.ConstLabels()),
	}, labels)
	return &gauge{gauge: register(p.reg, vec)}
}

// Histogram returns a prometheus histogram.
func (p *provider) Histogram(name string, buckets meter.Buckets, labels ...string) meter.Histogram {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        p.scope.Name(name),
		Help:        p.scope.Name(name),
		ConstLabels: prometheus.Labels(p.scope.ConstLabels()),
		Buckets:     buckets,
	}, labels)
	return &histogram{histogram: register(p.reg, vec)}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}
