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

// Package meter defines the instruments recorded while building and serving queries. A
// Provider creates them under a Scope; the prom package backs them with prometheus.
package meter

import "time"

// Buckets are the upper bounds of the buckets of a histogram.
type Buckets []float64

// DefBuckets suit latencies in seconds, from half a millisecond to a second. Building a
// query rarely lasts longer.
var DefBuckets = Buckets{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

// Provider creates the instruments of a scope.
type Provider interface {
	Counter(name string, labelNames ...string) Counter
	Gauge(name string, labelNames ...string) Gauge
	Histogram(name string, buckets Buckets, labelNames ...string) Histogram
}

// Counter counts events, such as builds by outcome.
type Counter interface {
	Inc(delta float64, labelValues ...string)
}

// Gauge reports the last value set.
type Gauge interface {
	Set(value float64, labelValues ...string)
}

// Histogram samples observations into buckets.
type Histogram interface {
	Observe(value float64, labelValues ...string)
}

// ObserveSince records the seconds elapsed since start.
func ObserveSince(h Histogram, start time.Time, labelValues ...string) {
	h.Observe(time.Since(start).Seconds(), labelValues...)
}
