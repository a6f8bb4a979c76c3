/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


// Package metrics exports engine metrics to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rulego/rulepipe/api/types"
	enginemetrics "github.com/rulego/rulepipe/api/types/metrics"
)

const namespace = "rulepipe"

// Prometheus is a metrics sink backed by Prometheus collectors.
type Prometheus struct {
	RuleEvaluations *prometheus.CounterVec
	RuleExecutions  *prometheus.CounterVec
	RuleErrors      *prometheus.CounterVec
	RuleDuration    *prometheus.HistogramVec
	StageExecutions *prometheus.CounterVec
	Messages        *prometheus.CounterVec
	MessageOutputs  prometheus.Counter
	MessageDuration prometheus.Histogram

	SnapshotVersion prometheus.Gauge
	SnapshotErrors  prometheus.Gauge
	Builds          *prometheus.CounterVec
}

var (
	_ enginemetrics.Sink   = (*Prometheus)(nil)
	_ prometheus.Collector = (*Prometheus)(nil)
)

// NewPrometheus creates the collectors. Register the returned value with a
// prometheus.Registerer to export them.
func NewPrometheus() *Prometheus {
	return &Prometheus{
		RuleEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rule",
			Name:      "evaluations_total",
			Help:      "Rule condition evaluations",
		}, []string{"pipeline", "rule", "matched"}),
		RuleExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rule",
			Name:      "executions_total",
			Help:      "Rule statement block executions",
		}, []string{"pipeline", "rule"}),
		RuleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rule",
			Name:      "errors_total",
			Help:      "Evaluation errors raised by rules",
		}, []string{"pipeline", "rule"}),
		RuleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rule",
			Name:      "duration_seconds",
			Help:      "Time spent in rule conditions and statements",
			Buckets:   []float64{.000001, .00001, .0001, .001, .01, .1},
		}, []string{"pipeline", "rule"}),
		StageExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "executions_total",
			Help:      "Pipeline stage executions",
		}, []string{"pipeline", "stage", "passed"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "processed_total",
			Help:      "Input messages processed",
		}, []string{"status"}),
		MessageOutputs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "outputs_total",
			Help:      "Messages emitted, clones included",
		}),
		MessageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "duration_seconds",
			Help:      "Time spent processing one input message",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "version",
			Help:      "Version of the active configuration snapshot",
		}),
		SnapshotErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "excluded_entities",
			Help:      "Entities excluded from the active snapshot",
		}),
		Builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "builds_total",
			Help:      "Configuration builds by outcome",
		}, []string{"result"}),
	}
}

func (p *Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		p.RuleEvaluations, p.RuleExecutions, p.RuleErrors, p.RuleDuration,
		p.StageExecutions, p.Messages, p.MessageOutputs, p.MessageDuration,
		p.SnapshotVersion, p.SnapshotErrors, p.Builds,
	}
}

func (p *Prometheus) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range p.collectors() {
		c.Describe(ch)
	}
}

func (p *Prometheus) Collect(ch chan<- prometheus.Metric) {
	for _, c := range p.collectors() {
		c.Collect(ch)
	}
}

func (p *Prometheus) RuleEvaluated(pipeline, rule string, matched bool, d time.Duration) {
	p.RuleEvaluations.WithLabelValues(pipeline, rule, strconv.FormatBool(matched)).Inc()
	p.RuleDuration.WithLabelValues(pipeline, rule).Observe(d.Seconds())
}

func (p *Prometheus) RuleExecuted(pipeline, rule string, d time.Duration) {
	p.RuleExecutions.WithLabelValues(pipeline, rule).Inc()
	p.RuleDuration.WithLabelValues(pipeline, rule).Observe(d.Seconds())
}

func (p *Prometheus) RuleFailed(pipeline, rule string) {
	p.RuleErrors.WithLabelValues(pipeline, rule).Inc()
}

func (p *Prometheus) StageExecuted(pipeline string, stage int, passed bool) {
	p.StageExecutions.WithLabelValues(pipeline, strconv.Itoa(stage), strconv.FormatBool(passed)).Inc()
}

func (p *Prometheus) MessageProcessed(outputs int, dropped bool, d time.Duration) {
	status := "emitted"
	if dropped {
		status = "dropped"
	}
	p.Messages.WithLabelValues(status).Inc()
	p.MessageOutputs.Add(float64(outputs))
	p.MessageDuration.Observe(d.Seconds())
}

// ObserveBuild records a build report; pass it to types.WithOnBuild.
func (p *Prometheus) ObserveBuild(r types.BuildReport) {
	if r.Unchanged {
		p.Builds.WithLabelValues("unchanged").Inc()
		return
	}
	p.Builds.WithLabelValues("published").Inc()
	p.SnapshotVersion.Set(float64(r.Version))
	p.SnapshotErrors.Set(float64(len(r.Errors)))
}
