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

package meter

const separator = "_"

// Labels are the constant labels shared by the instruments of a scope.
type Labels map[string]string

// Scope names the instruments of a component, `querydsl_builder` for instance. Scopes are
// values: SubScope and WithLabels leave their receiver untouched.
type Scope struct {
	labels    Labels
	namespace string
}

// NewScope returns a root scope.
func NewScope(namespace string) Scope {
	return Scope{namespace: namespace}
}

// SubScope returns the scope of a component of s. It inherits the labels of s.
func (s Scope) SubScope(name string) Scope {
	return Scope{namespace: s.namespace + separator + name, labels: s.labels}
}

// WithLabels returns s with labels added to its constant labels, replacing the ones of the
// same name.
func (s Scope) WithLabels(labels Labels) Scope {
	merged := make(Labels, len(s.labels)+len(labels))
	for k, v := range s.labels {
		merged[k] = v
	}
	for k, v := range labels {
		merged[k] = v
	}
	return Scope{namespace: s.namespace, labels: merged}
}

// Namespace is the prefix of the instrument names of s.
func (s Scope) Namespace() string {
	return s.namespace
}

// Name returns the full name of the instrument called name in s.
func (s Scope) Name(name string) string {
	return s.namespace + separator + name
}

// ConstLabels returns a copy of the constant labels of s.
func (s Scope) ConstLabels() Labels {
	if s.labels == nil {
		return nil
	}
	labels := make(Labels, len(s.labels))
	for k, v := range s.labels {
		labels[k] = v
	}
	return labels
}
