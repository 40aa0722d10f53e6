package metrics_test

import (
	"strings"
	"testing"

	"github.com/ardanlabs/txchain/business/sys/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type source struct{}

func (source) RetrieveHeight() int        { return 7 }
func (source) RetrieveMempoolLength() int { return 3 }

func Test_Metrics(t *testing.T) {
	t.Log("Given the need to expose node metrics.")
	{
		reg := prometheus.NewRegistry()

		m, err := metrics.New(reg, source{})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to register the metrics: %v", failed, err)
		}

		m.Request()
		m.Request()
		m.Assembled()

		exp := `
# HELP txchain_blocks_assembled_total Number of blocks assembled on request.
# TYPE txchain_blocks_assembled_total counter
txchain_blocks_assembled_total 1
# HELP txchain_chain_height Height of the last block in the chain.
# TYPE txchain_chain_height gauge
txchain_chain_height 7
# HELP txchain_mempool_pending Number of pending transactions.
# TYPE txchain_mempool_pending gauge
txchain_mempool_pending 3
# HELP txchain_requests_total Number of web requests handled.
# TYPE txchain_requests_total counter
txchain_requests_total 2
`
		names := []string{"txchain_blocks_assembled_total", "txchain_chain_height", "txchain_mempool_pending", "txchain_requests_total"}
		if err := testutil.GatherAndCompare(reg, strings.NewReader(exp), names...); err != nil {
			t.Fatalf("\t%s\tShould report the expected values: %v", failed, err)
		}
		t.Logf("\t%s\tShould report the expected values.", success)

		if _, err := metrics.New(reg, source{}); err == nil {
			t.Fatalf("\t%s\tShould not register the metrics twice.", failed)
		}
		t.Logf("\t%s\tShould not register the metrics twice.", success)
	}
}
