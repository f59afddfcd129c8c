// Package metrics documents the Prometheus metrics of the JustCall client and
// reads them back for reporting. The metrics are defined with promauto in the
// packages that update them (client, ratelimit, pagination, batch).
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Prefix is shared by every metric name of this module.
const Prefix = "justcall_"

// Registry is the default Prometheus registry used by the JustCall client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is read by Snapshot.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Sample is one series value. Histograms produce a _count and a _sum sample.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// LabelString renders the labels as k=v pairs sorted by key.
func (s Sample) LabelString() string {
	keys := make([]string, 0, len(s.Labels))
	for k := range s.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + s.Labels[k]
	}
	return strings.Join(parts, ",")
}

// Snapshot gathers the current value of every justcall_ series that has been
// observed at least once, sorted by name.
func Snapshot() ([]Sample, error) {
	families, err := Gatherer.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, Prefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				out = append(out, Sample{Name: name, Labels: labels, Value: m.GetCounter().GetValue()})
			case m.GetGauge() != nil:
				out = append(out, Sample{Name: name, Labels: labels, Value: m.GetGauge().GetValue()})
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				if h.GetSampleCount() == 0 {
					continue
				}
				out = append(out,
					Sample{Name: name + "_count", Labels: labels, Value: float64(h.GetSampleCount())},
					Sample{Name: name + "_sum", Labels: labels, Value: h.GetSampleSum()},
				)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].LabelString() < out[j].LabelString()
	})
	return out, nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - justcall_requests_total{endpoint, status} (Counter): Requests by route template and HTTP status
//   - justcall_request_duration_seconds{endpoint} (Histogram): Request duration including retries
//   - justcall_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Retry Metrics (pkg/client):
//   - justcall_retries_total{error_class} (Counter): Retry attempts by error class
//   - justcall_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - justcall_retry_exhausted_total{error_class} (Counter): Requests that failed after retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - justcall_rate_gate_wait_seconds{gate} (Histogram): Time spent in Admit (window, token_bucket, redis_window)
//   - justcall_rate_gate_admissions_total{gate} (Counter): Admissions granted
//   - justcall_rate_limit_remaining{window} (Gauge): Remote budget reported in X-Rate-Limit headers
//   - justcall_rate_limit_holds_total (Counter): Requests held until the remote budget reset
//
// Pagination Metrics (pkg/pagination):
//   - justcall_pages_fetched_total{iterator} (Counter): Pages fetched per iterator
//   - justcall_items_yielded_total{iterator} (Counter): Items yielded per iterator
//
// Batch Metrics (pkg/batch):
//   - justcall_batch_fetch_duration_seconds{name} (Histogram): Duration of FetchAll calls
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(justcall_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(justcall_request_duration_seconds_bucket[5m]))
//
//   # Average gate wait
//   rate(justcall_rate_gate_wait_seconds_sum[5m]) / rate(justcall_rate_gate_wait_seconds_count[5m])
//
//   # Remote burst budget nearly spent
//   justcall_rate_limit_remaining{window="burst"} < 5
