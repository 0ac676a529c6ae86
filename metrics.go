// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package connpool

import "github.com/prometheus/client_golang/prometheus"

// metrics is the pool's prometheus instrumentation. All methods are
// safe on a nil receiver, so an uninstrumented pool pays only a nil
// check on each operation.
type metrics struct {
	registrations *prometheus.CounterVec
	sweepCycles   prometheus.Counter
	sweptConns    prometheus.Counter
	size          prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	if registerer == nil {
		return nil
	}
	m := &metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connpool_registrations_total",
			Help: "Register calls, partitioned by whether an existing connection was reused.",
		}, []string{"outcome"}),
		sweepCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "connpool_sweep_cycles_total",
			Help: "Completed sweep cycles.",
		}),
		sweptConns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "connpool_swept_connections_total",
			Help: "Unused connections removed by the sweeper.",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connpool_connections",
			Help: "Connections currently published in the pool.",
		}),
	}
	registerer.MustRegister(m.registrations, m.sweepCycles, m.sweptConns, m.size)
	return m
}

func (m *metrics) registered(reused bool) {
	if m == nil {
		return
	}
	outcome := "new"
	if reused {
		outcome = "reused"
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *metrics) setSize(size int) {
	if m == nil {
		return
	}
	m.size.Set(float64(size))
}

func (m *metrics) sweepCycle(removed int) {
	if m == nil {
		return
	}
	m.sweepCycles.Inc()
	m.sweptConns.Add(float64(removed))
}
