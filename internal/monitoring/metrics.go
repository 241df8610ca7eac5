package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP 请求指标
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailrelay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailrelay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// 分配指标
var (
	AliasesAllocated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailrelay_aliases_allocated_total",
		Help: "Total number of aliases allocated",
	})

	AliasesDeactivated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailrelay_aliases_deactivated_total",
		Help: "Total number of aliases deactivated",
	})

	AllocationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailrelay_allocation_conflicts_total",
		Help: "Total number of allocation attempts lost to a concurrent claim or suffix collision",
	})

	PoolExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailrelay_pool_exhausted_total",
		Help: "Total number of allocation requests that found no usable name",
	})

	NamesSeeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailrelay_names_seeded_total",
		Help: "Total number of new names inserted into the pool",
	})
)

// 投递指标
var (
	InboundReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailrelay_inbound_received_total",
		Help: "Total number of inbound messages received",
	})

	InboundIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailrelay_inbound_ignored_total",
		Help: "Total number of inbound messages dropped for inactive or unbound targets",
	})

	ChunksDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailrelay_chunks_delivered_total",
		Help: "Total number of message chunks delivered",
	})

	ImagesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailrelay_images_forwarded_total",
		Help: "Total number of email images forwarded",
	})
)

// 限流指标
var RateLimitBlocks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "mailrelay_rate_limit_blocks_total",
	Help: "Total number of requests rejected by the rate limiter",
})

// HTTPHandler 返回 Prometheus 指标暴露端点。
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
