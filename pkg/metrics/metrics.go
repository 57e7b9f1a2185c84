/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fuel-analytics/go-fuel/pkg/acquire"
	"github.com/fuel-analytics/go-fuel/pkg/layers"
)

const (
	Namespace = "go_fuel"
	Subsystem = "acquisition"
)

// Metrics exposes acquisition cycles and the latest channel values to prometheus
type Metrics struct {
	registry *prometheus.Registry

	cycles     prometheus.Counter
	readErrors *prometheus.CounterVec
	dropped    prometheus.Counter
	samples    prometheus.Counter
	state      prometheus.Gauge
	channel    *prometheus.GaugeVec
}

var _ acquire.Observer = &Metrics{}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "cycles_total",
			Help:      "Acquisition cycles run.",
		}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "read_errors_total",
			Help:      "Cycles that produced no sample set, by error kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "dropped_sets_total",
			Help:      "Sample sets dropped because their length did not match the channel count.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "samples_total",
			Help:      "Samples accepted into the series.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "state",
			Help:      "Loop state: 0 idle, 1 running, 2 paused.",
		}),
		channel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "channel_value",
			Help:      "Latest accepted value per channel id.",
		}, []string{"channel"}),
	}

	m.registry.MustRegister(collectors.NewBuildInfoCollector())
	m.registry.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollections(collectors.GoRuntimeMemStatsCollection | collectors.GoRuntimeMetricsCollection),
	))
	m.registry.MustRegister(m.cycles, m.readErrors, m.dropped, m.samples, m.state, m.channel)
	return m
}

func (m *Metrics) ObserveCycle(outcome acquire.Outcome, samples []layers.Sample) {
	m.cycles.Inc()
	switch outcome {
	case acquire.OutcomeAccepted:
		m.samples.Add(float64(len(samples)))
		for _, s := range samples {
			m.channel.With(prometheus.Labels{"channel": strconv.Itoa(int(s.Channel))}).Set(float64(s.Value))
		}
	case acquire.OutcomeDropped:
		m.dropped.Inc()
	default:
		m.readErrors.With(prometheus.Labels{"kind": outcome.String()}).Inc()
	}
}

func (m *Metrics) ObserveState(state acquire.State) {
	m.state.Set(float64(state))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
