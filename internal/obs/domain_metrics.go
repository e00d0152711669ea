package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CatalogIngestRows counts catalog source rows by validation outcome.
	CatalogIngestRows *prometheus.CounterVec
	// CatalogIngestRuns counts ingestion runs by result.
	CatalogIngestRuns *prometheus.CounterVec
	// PriceLookupTotal counts tier price resolutions by outcome.
	PriceLookupTotal *prometheus.CounterVec
	// OrderLineOps counts line item operations by kind and outcome.
	OrderLineOps *prometheus.CounterVec
	// OrderDocumentsTotal counts emitted order documents.
	OrderDocumentsTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CatalogIngestRows = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_ingest_rows_total",
			Help:      "Count of catalog source rows by validation outcome.",
		}, []string{"result"})
		CatalogIngestRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_ingest_runs_total",
			Help:      "Count of catalog ingestion runs by result.",
		}, []string{"result"})
		PriceLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_lookup_total",
			Help:      "Count of tier price resolutions by outcome.",
		}, []string{"result"})
		OrderLineOps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_line_ops_total",
			Help:      "Count of order line operations by kind and outcome.",
		}, []string{"op", "result"})
		OrderDocumentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_documents_total",
			Help:      "Count of emitted order documents.",
		})
		reg.MustRegister(CatalogIngestRows, CatalogIngestRuns, PriceLookupTotal, OrderLineOps, OrderDocumentsTotal)
	})
}

// ObserveIngestRow records one row validation outcome. Safe to call when
// domain metrics are not registered.
func ObserveIngestRow(result string) {
	if CatalogIngestRows != nil {
		CatalogIngestRows.WithLabelValues(result).Inc()
	}
}

// ObserveIngestRun records one ingestion run outcome.
func ObserveIngestRun(result string) {
	if CatalogIngestRuns != nil {
		CatalogIngestRuns.WithLabelValues(result).Inc()
	}
}

// ObservePriceLookup records one price resolution outcome.
func ObservePriceLookup(result string) {
	if PriceLookupTotal != nil {
		PriceLookupTotal.WithLabelValues(result).Inc()
	}
}

// ObserveLineOp records one order line operation.
func ObserveLineOp(op, result string) {
	if OrderLineOps != nil {
		OrderLineOps.WithLabelValues(op, result).Inc()
	}
}

// ObserveDocumentEmitted records one emitted order document.
func ObserveDocumentEmitted() {
	if OrderDocumentsTotal != nil {
		OrderDocumentsTotal.Inc()
	}
}
