// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package graphity

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricQueries               = "queries_total"
	MetricQueryResponses        = "query_responses_total"
	MetricRemoteRequests        = "remote_requests_total"
	MetricHTTPRequestDuration   = "http_request_duration_seconds"
	MetricRemoteRequestDuration = "remote_request_duration_seconds"
)

const metricNamespace = "graphity"

// CounterQueries counts queries received by kind.
var CounterQueries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricNamespace,
		Name:      MetricQueries,
		Help:      "Number of queries received by query form.",
	},
	[]string{"kind"},
)

// CounterQueryResponses counts query endpoint outcomes by HTTP status.
var CounterQueryResponses = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricNamespace,
		Name:      MetricQueryResponses,
		Help:      "Number of query responses by status code.",
	},
	[]string{"status"},
)

// CounterRemoteRequests counts outbound requests to remote graph stores and
// SPARQL endpoints. The outcome is the status code or "transport_error".
var CounterRemoteRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricNamespace,
		Name:      MetricRemoteRequests,
		Help:      "Number of remote requests by service, method and outcome.",
	},
	[]string{"service", "method", "outcome"},
)

var HistogramRemoteRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: metricNamespace,
		Name:      MetricRemoteRequestDuration,
		Help:      "Remote request latency by service and method.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"service", "method"},
)

var HistogramHTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: metricNamespace,
		Name:      MetricHTTPRequestDuration,
		Help:      "Duration of HTTP requests served, by route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route", "method", "status"},
)

func init() {
	prometheus.MustRegister(CounterQueries)
	prometheus.MustRegister(CounterQueryResponses)
	prometheus.MustRegister(CounterRemoteRequests)
	prometheus.MustRegister(HistogramRemoteRequestDuration)
	prometheus.MustRegister(HistogramHTTPRequestDuration)
}
