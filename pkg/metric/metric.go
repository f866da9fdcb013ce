// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	"net/http"
	"time"

	metrics "github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all sealbid metrics using luxfi/metric
type Metrics struct {
	metricsInstance metrics.Metrics

	// Auction metrics
	AuctionsCreated metrics.Counter
	AuctionsEnded   metrics.CounterVec
	AuctionsOpen    metrics.Gauge

	// Bid metrics
	Commits metrics.CounterVec
	Reveals metrics.CounterVec

	// Settlement metrics
	Transfers         metrics.CounterVec
	ClaimsOutstanding metrics.Gauge

	// Performance metrics
	OpLatency metrics.HistogramVec

	// API metrics
	RequestsProcessed metrics.CounterVec
}

// NewMetrics creates every metric under namespace on a registry of its own
func NewMetrics(namespace string) *Metrics {
	// each factory owns a fresh registry
	factory := metrics.NewPrometheusFactory()
	metricsInstance := factory.New(namespace)

	m := &Metrics{
		metricsInstance: metricsInstance,
	}

	// Create auction metrics
	m.AuctionsCreated = metricsInstance.NewCounter("auction_created_total", "Total number of auctions created")
	m.AuctionsEnded = metricsInstance.NewCounterVec(
		"auction_ended_total",
		"Total number of auctions ended by outcome",
		[]string{"outcome"},
	)
	m.AuctionsOpen = metricsInstance.NewGauge("auction_open", "Number of auctions not yet ended")

	// Create bid metrics
	m.Commits = metricsInstance.NewCounterVec(
		"bid_commits_total",
		"Total number of bid commitments by result",
		[]string{"result"},
	)
	m.Reveals = metricsInstance.NewCounterVec(
		"bid_reveals_total",
		"Total number of bid reveals by outcome",
		[]string{"outcome"},
	)

	// Create settlement metrics
	m.Transfers = metricsInstance.NewCounterVec(
		"settlement_transfers_total",
		"Settlement transfers by kind and status",
		[]string{"kind", "status"},
	)
	m.ClaimsOutstanding = metricsInstance.NewGauge("claims_outstanding", "Number of accounts holding a claimable balance")

	// Create performance metrics
	m.OpLatency = metricsInstance.NewHistogramVec(
		"operation_latency_seconds",
		"Time to process a registry operation",
		[]string{"op"},
		prometheus.DefBuckets,
	)

	m.RequestsProcessed = metricsInstance.NewCounterVec(
		"api_requests_processed_total",
		"Total number of API requests processed",
		[]string{"method", "status"},
	)

	metricsInstance.Registry().MustRegister(
		metrics.NewGoCollector(),
		metrics.NewProcessCollector(metrics.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOp records the latency of op since start
func (m *Metrics) ObserveOp(op string, start time.Time) {
	m.OpLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Gatherer returns the registry every metric is registered on
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.metricsInstance.Registry()
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return metrics.HTTPHandler(m.Gatherer(), metrics.HTTPHandlerOpts{})
}
