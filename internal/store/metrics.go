package store

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Store-level Prometheus metrics. All metrics carry a "store" label whose value
// is the Group set in ProviderConfig, allowing multiple store instances to be
// distinguished in dashboards and alerts.
var (
	// OperationsTotal counts store operations per group, operation and result.
	// result is one of "ok", "not_found" or "error".
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of store operations.",
		},
		[]string{"store", "operation", "result"},
	)

	// OperationDuration observes the latency of store operations.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"store", "operation"},
	)
)

func init() {
	prometheus.MustRegister(
		OperationsTotal,
		OperationDuration,
	)
}

// documentsCollector is a Prometheus Collector that lazily reports the number of
// documents per collection for a single store group by calling Count at scrape time.
type documentsCollector struct {
	desc        *prometheus.Desc
	store       Store
	collections []string
	logger      Logger
}

func (c *documentsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *documentsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, collection := range c.collections {
		n, err := c.store.Count(ctx, collection)
		if err != nil {
			if c.logger != nil {
				c.logger.Error("store documents collector failed to count "+collection, err)
			}
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), collection)
	}
}

var (
	documentsCollectorMu sync.Mutex
	documentsCollectors  = make(map[string]*documentsCollector)
	// documentsReg is the Prometheus registerer used for documents collectors.
	// Exposed as a variable so tests can substitute an isolated registry.
	documentsReg prometheus.Registerer = prometheus.DefaultRegisterer
)

// registerDocumentsCollector registers a per-group documents collector. If a collector for
// the same group already exists it is replaced, making it safe to call when a new store
// instance is created for a group that was previously registered (e.g., in tests).
func registerDocumentsCollector(group string, s Store, collections []string, logger Logger) *documentsCollector {
	desc := prometheus.NewDesc(
		"store_documents",
		"Current number of documents per collection.",
		[]string{"collection"},
		prometheus.Labels{"store": group},
	)
	c := &documentsCollector{desc: desc, store: s, collections: collections, logger: logger}

	documentsCollectorMu.Lock()
	defer documentsCollectorMu.Unlock()

	if old, ok := documentsCollectors[group]; ok {
		documentsReg.Unregister(old)
	}
	documentsCollectors[group] = c
	_ = documentsReg.Register(c)
	return c
}

// unregisterDocumentsCollector removes the documents collector for the given group.
func unregisterDocumentsCollector(group string) {
	documentsCollectorMu.Lock()
	defer documentsCollectorMu.Unlock()

	if c, ok := documentsCollectors[group]; ok {
		documentsReg.Unregister(c)
		delete(documentsCollectors, group)
	}
}
