package queuedash

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "queuedash"

// statsExporter collects gateway operational counters. It follows the
// const-metric collector shape: handlers bump atomics, Collect snapshots
// them on scrape.
type statsExporter struct {
	requests     *uint64
	upstreamErrs *uint64
	denied       *uint64
	eventsOut    *uint64
	streams      *int64

	requestsDesc     *prometheus.Desc
	upstreamErrsDesc *prometheus.Desc
	deniedDesc       *prometheus.Desc
	eventsOutDesc    *prometheus.Desc
	streamsDesc      *prometheus.Desc
}

func newStatsExporter() *statsExporter {
	return &statsExporter{
		requests:     toPtr(uint64(0)),
		upstreamErrs: toPtr(uint64(0)),
		denied:       toPtr(uint64(0)),
		eventsOut:    toPtr(uint64(0)),
		streams:      toPtr(int64(0)),

		requestsDesc:     prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "requests_total"), "Total number of HTTP requests handled by the gateway", nil, nil),
		upstreamErrsDesc: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "upstream_errors_total"), "Number of engine calls that failed", nil, nil),
		deniedDesc:       prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "denied_total"), "Number of mutations rejected by the guard", nil, nil),
		eventsOutDesc:    prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "events_out_total"), "Number of event frames written to viewers", nil, nil),
		streamsDesc:      prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "event_streams"), "Live event stream connections", nil, nil),
	}
}

func (se *statsExporter) CountRequest() {
	atomic.AddUint64(se.requests, 1)
}

func (se *statsExporter) CountUpstreamErr() {
	atomic.AddUint64(se.upstreamErrs, 1)
}

func (se *statsExporter) CountDenied() {
	atomic.AddUint64(se.denied, 1)
}

func (se *statsExporter) CountEvent() {
	atomic.AddUint64(se.eventsOut, 1)
}

func (se *statsExporter) StreamOpened() {
	atomic.AddInt64(se.streams, 1)
}

func (se *statsExporter) StreamClosed() {
	atomic.AddInt64(se.streams, -1)
}

func (se *statsExporter) Describe(d chan<- *prometheus.Desc) {
	d <- se.requestsDesc
	d <- se.upstreamErrsDesc
	d <- se.deniedDesc
	d <- se.eventsOutDesc
	d <- se.streamsDesc
}

func (se *statsExporter) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(se.requestsDesc, prometheus.CounterValue, float64(atomic.LoadUint64(se.requests)))
	ch <- prometheus.MustNewConstMetric(se.upstreamErrsDesc, prometheus.CounterValue, float64(atomic.LoadUint64(se.upstreamErrs)))
	ch <- prometheus.MustNewConstMetric(se.deniedDesc, prometheus.CounterValue, float64(atomic.LoadUint64(se.denied)))
	ch <- prometheus.MustNewConstMetric(se.eventsOutDesc, prometheus.CounterValue, float64(atomic.LoadUint64(se.eventsOut)))
	ch <- prometheus.MustNewConstMetric(se.streamsDesc, prometheus.GaugeValue, float64(atomic.LoadInt64(se.streams)))
}

func toPtr[T any](v T) *T {
	return &v
}
