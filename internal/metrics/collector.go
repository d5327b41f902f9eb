// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// Packet 指标
	packetsCreated   *prometheus.CounterVec
	packetsCompleted *prometheus.CounterVec
	decorations      *prometheus.CounterVec
	forwardedTotal   prometheus.Counter

	// Filter 指标
	filterActivations *prometheus.CounterVec
	filterDuration    *prometheus.HistogramVec

	// Relay 指标
	relayInvocations *prometheus.CounterVec
	relayExtractions *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// Packet 指标
	c.packetsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_created_total",
			Help:      "Total number of packets created",
		},
		[]string{"scope"},
	)

	c.packetsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_completed_total",
			Help:      "Total number of packets completed",
		},
		[]string{"scope"},
	)

	c.decorations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packet_decorations_total",
			Help:      "Total number of decorations attached to packets",
		},
		[]string{"type"},
	)

	c.forwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packet_forwarded_decorations_total",
			Help:      "Total number of decorations copied by forward-all",
		},
	)

	// Filter 指标
	c.filterActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_activations_total",
			Help:      "Total number of filter activations",
		},
		[]string{"filter", "mode", "status"}, // mode: inline, deferred
	)

	c.filterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "filter_duration_seconds",
			Help:      "Filter activation duration in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
		},
		[]string{"filter"},
	)

	// Relay 指标
	c.relayInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_invocations_total",
			Help:      "Total number of relay invocations",
		},
		[]string{"mode", "status"}, // mode: extract, forward; status: ok, unwired, throttled, mismatch, dispatch_error
	)

	c.relayExtractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_extractions_total",
			Help:      "Total number of output slots filled by relays",
		},
		[]string{"type"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 📦 Packet 指标记录
// =============================================================================

// RecordPacketCreated 记录数据包创建
func (c *Collector) RecordPacketCreated(scope string) {
	if c == nil {
		return
	}
	c.packetsCreated.WithLabelValues(scope).Inc()
}

// RecordPacketCompleted 记录数据包完成
func (c *Collector) RecordPacketCompleted(scope string) {
	if c == nil {
		return
	}
	c.packetsCompleted.WithLabelValues(scope).Inc()
}

// RecordDecoration 记录装饰附加
func (c *Collector) RecordDecoration(typ string) {
	if c == nil {
		return
	}
	c.decorations.WithLabelValues(typ).Inc()
}

// RecordForwardAll 记录 forward-all 拷贝的装饰数量
func (c *Collector) RecordForwardAll(count int) {
	if c == nil {
		return
	}
	c.forwardedTotal.Add(float64(count))
}

// =============================================================================
// 🔩 Filter 指标记录
// =============================================================================

// RecordFilterActivation 记录过滤器激活
func (c *Collector) RecordFilterActivation(filter, mode, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.filterActivations.WithLabelValues(filter, mode, status).Inc()
	c.filterDuration.WithLabelValues(filter).Observe(duration.Seconds())
}

// =============================================================================
// 🔗 Relay 指标记录
// =============================================================================

// RecordRelayInvocation 记录中继调用
func (c *Collector) RecordRelayInvocation(mode, status string) {
	if c == nil {
		return
	}
	c.relayInvocations.WithLabelValues(mode, status).Inc()
}

// RecordExtraction 记录输出槽填充
func (c *Collector) RecordExtraction(typ string) {
	if c == nil {
		return
	}
	c.relayExtractions.WithLabelValues(typ).Inc()
}
