package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GateEvents 闸口事件计数, outcome 为 entered / exited / 错误分类
	GateEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkmeter_gate_events_total",
		Help: "Gate events handled, by outcome",
	}, []string{"outcome"})

	// Fees 出场费用分布
	Fees = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parkmeter_exit_fee",
		Help:    "Fee charged on exit, by vehicle class",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 250, 500},
	}, []string{"class"})

	// ProcessingLatency 单个事件处理耗时
	ProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parkmeter_processing_latency_seconds",
		Help:    "Time a gate event spends being processed",
		Buckets: prometheus.DefBuckets,
	})

	// QueueingLatency 事件在队列中等待的时间
	QueueingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parkmeter_queueing_latency_seconds",
		Help:    "Time a gate event spends in RabbitMQ before being consumed",
		Buckets: prometheus.DefBuckets,
	})

	// Occupancy 场内车辆数
	Occupancy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parkmeter_occupancy",
		Help: "Vehicles currently inside the facility",
	})
)
