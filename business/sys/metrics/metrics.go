// Package metrics constructs the metrics the application will track.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Source represents the behavior required to report the size of the chain
// and the mempool.
type Source interface {
	RetrieveHeight() int
	RetrieveMempoolLength() int
}

// Metrics represents the set of metrics we gather. These fields are
// safe to be accessed concurrently thanks to the prometheus package.
type Metrics struct {
	requests  prometheus.Counter
	errors    prometheus.Counter
	panics    prometheus.Counter
	assembled prometheus.Counter
}

// New constructs the metrics and registers them along with gauges that read
// the chain height and mempool size from the source on every scrape.
func New(reg prometheus.Registerer, src Source) (*Metrics, error) {
	m := Metrics{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txchain", Name: "requests_total", Help: "Number of web requests handled.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txchain", Name: "errors_total", Help: "Number of web requests that failed.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txchain", Name: "panics_total", Help: "Number of panics recovered.",
		}),
		assembled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txchain", Name: "blocks_assembled_total", Help: "Number of blocks assembled on request.",
		}),
	}

	height := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "txchain", Name: "chain_height", Help: "Height of the last block in the chain.",
	}, func() float64 { return float64(src.RetrieveHeight()) })

	pending := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "txchain", Name: "mempool_pending", Help: "Number of pending transactions.",
	}, func() float64 { return float64(src.RetrieveMempoolLength()) })

	collectors := []prometheus.Collector{m.requests, m.errors, m.panics, m.assembled, height, pending}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &m, nil
}

// Request increments the request counter.
func (m *Metrics) Request() { m.requests.Inc() }

// Error increments the error counter.
func (m *Metrics) Error() { m.errors.Inc() }

// Panic increments the panic counter.
func (m *Metrics) Panic() { m.panics.Inc() }

// Assembled increments the assembled blocks counter.
func (m *Metrics) Assembled() { m.assembled.Inc() }
