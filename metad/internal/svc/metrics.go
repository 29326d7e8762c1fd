package svc

import (
	"github.com/zeromicro/go-zero/core/metric"
)

const (
	metricsNamespace = "metabay"
	metricsSubsystem = "metad"
)

var (
	metricOverlaySend    metric.CounterVec
	metricOverlayReceive metric.CounterVec
	metricHandlerEvent   metric.CounterVec
	metricQueueSize      metric.GaugeVec
)

func init() {
	metricOverlaySend = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "overlay_send",
		Labels:    []string{"type"},
	})
	metricOverlayReceive = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "overlay_receive",
		Labels:    []string{"type"},
	})
	metricHandlerEvent = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "handler_event",
		Labels:    []string{"event"},
	})
	metricQueueSize = metric.NewGaugeVec(&metric.GaugeVecOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "queue_size",
		Labels:    []string{"type"},
	})
}
