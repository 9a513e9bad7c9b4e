/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package autosave

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the saver's prometheus collectors.
type Metrics struct {
	Saves     *prometheus.CounterVec
	Coalesced prometheus.Counter
	Duration  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which tests use to avoid global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proposalcanvas",
			Name:      "saves_total",
			Help:      "Section saves by result.",
		}, []string{"result"}),
		Coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proposalcanvas",
			Name:      "saves_coalesced_total",
			Help:      "Save requests replaced by a newer snapshot before they ran.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "proposalcanvas",
			Name:      "save_duration_seconds",
			Help:      "Time spent persisting one section snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Saves, m.Coalesced, m.Duration)
	}
	return m
}

func (m *Metrics) observe(seconds float64, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Saves.WithLabelValues(result).Inc()
	m.Duration.Observe(seconds)
}
