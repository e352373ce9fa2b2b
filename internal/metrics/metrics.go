// Package metrics 提供 Prometheus 监控指标
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/visitplan/pkg/scheduler/solver"
)

const namespace = "visitplan"

// Metrics 指标集合，每个实例拥有独立的注册表
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Solves          *prometheus.CounterVec
	SolveDuration   *prometheus.HistogramVec
	SolutionsFound  *prometheus.CounterVec
	SearchConflicts *prometheus.CounterVec
	SearchBranches  *prometheus.CounterVec
	ModelVariables  prometheus.Gauge
	ModelConstraint prometheus.Gauge
}

// New 创建并注册全部指标
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP请求总数"},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP请求延迟", Buckets: prometheus.DefBuckets},
			[]string{"method", "path"},
		),
		Solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "solves_total", Help: "求解次数"},
			[]string{"strategy", "status"},
		),
		SolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "solve_duration_seconds", Help: "求解耗时", Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300}},
			[]string{"strategy"},
		),
		SolutionsFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "solutions_found_total", Help: "找到的方案总数"},
			[]string{"strategy"},
		),
		SearchConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "search_conflicts_total", Help: "搜索冲突次数"},
			[]string{"strategy"},
		),
		SearchBranches: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "search_branches_total", Help: "搜索分支次数"},
			[]string{"strategy"},
		),
		ModelVariables: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "model_variables", Help: "最近一次约束模型的变量数"},
		),
		ModelConstraint: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "model_constraints", Help: "最近一次约束模型的约束数"},
		),
	}

	m.Registry.MustRegister(
		m.HTTPRequests, m.HTTPDuration,
		m.Solves, m.SolveDuration, m.SolutionsFound,
		m.SearchConflicts, m.SearchBranches,
		m.ModelVariables, m.ModelConstraint,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default 返回全局指标实例
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// RecordSolve 实现 solver.Recorder
func (m *Metrics) RecordSolve(strategy, status string, duration time.Duration, stats *solver.Statistics) {
	m.Solves.WithLabelValues(strategy, status).Inc()
	m.SolveDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if stats == nil {
		return
	}
	m.SolutionsFound.WithLabelValues(strategy).Add(float64(stats.SolutionsFound))
	m.SearchConflicts.WithLabelValues(strategy).Add(float64(stats.Conflicts))
	m.SearchBranches.WithLabelValues(strategy).Add(float64(stats.Branches))
	if stats.Variables > 0 {
		m.ModelVariables.Set(float64(stats.Variables))
		m.ModelConstraint.Set(float64(stats.Constraints))
	}
}

// RecordRequest 记录请求指标
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler 返回 Prometheus 格式的指标处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
