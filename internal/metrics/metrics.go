// Package metrics registers the Prometheus collectors the core
// packages report against: dispatcher overflow, broker (re)connect and
// active-connection counts, parser error counts, sampled CPU, and
// domain-bridge message outcomes. Queue depth/capacity and requester
// overflow collectors are registered as well, but no package updates
// them. Grounded on ws/metrics.go's
// package-var-plus-init() register pattern.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netcore_queue_depth",
		Help: "Current number of messages waiting in a fabric queue",
	}, []string{"queue"})

	QueueCapacity = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netcore_queue_capacity",
		Help: "Configured capacity of a fabric queue",
	}, []string{"queue"})

	DispatcherOverflowTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netcore_dispatcher_overflow_total",
		Help: "Total number of tasks rejected by a dispatcher's overflow admission check",
	}, []string{"dispatcher"})

	RequesterOverflowTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netcore_requester_overflow_total",
		Help: "Total number of requests rejected because a requester's bounded queue was full",
	}, []string{"requester"})

	BrokerReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netcore_broker_reconnects_total",
		Help: "Total number of reconnect attempts made by a client connection",
	}, []string{"connection"})

	BrokerActiveConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netcore_broker_active_connections",
		Help: "Current number of connections accepted by a service or listening connection",
	}, []string{"connection"})

	ParserErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netcore_parser_errors_total",
		Help: "Total number of HTTP messages that failed to parse",
	}, []string{"parser"})

	ResourceCPUPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netcore_resource_cpu_percent",
		Help: "Last sampled CPU utilization, as a percentage of the configured CPU limit",
	})

	BridgeMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netcore_bridge_messages_total",
		Help: "Total number of messages a domain bridge consumed, by outcome",
	}, []string{"bridge", "outcome"})
)

func init() {
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(QueueCapacity)
	prometheus.MustRegister(DispatcherOverflowTotal)
	prometheus.MustRegister(RequesterOverflowTotal)
	prometheus.MustRegister(BrokerReconnectsTotal)
	prometheus.MustRegister(BrokerActiveConnections)
	prometheus.MustRegister(ParserErrorsTotal)
	prometheus.MustRegister(ResourceCPUPercent)
	prometheus.MustRegister(BridgeMessagesTotal)
}

// Handler returns the HTTP handler a cmd/*/main.go mounts at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
