package selector_test

import (
	"testing"

	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	"github.com/ardanlabs/txchain/foundation/blockchain/mempool/selector"
	"github.com/google/go-cmp/cmp"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func tran(hash string, from string, ts uint64) database.Tx {
	return database.Tx{From: from, TimeStamp: ts, TxHash: hash}
}

func Test_Select(t *testing.T) {
	type test struct {
		name     string
		strategy string
		txs      []database.Tx
		howMany  int
		best     []string
	}

	pending := []database.Tx{
		tran("t1", "bill", 10),
		tran("t2", "bill", 11),
		tran("t3", "ed", 12),
		tran("t4", "pavl", 9),
	}

	tt := []test{
		{name: "fifo all", strategy: selector.StrategyFIFO, txs: pending, howMany: -1, best: []string{"t1", "t2", "t3", "t4"}},
		{name: "fifo two", strategy: selector.StrategyFIFO, txs: pending, howMany: 2, best: []string{"t1", "t2"}},
		{name: "fifo empty", strategy: selector.StrategyFIFO, txs: []database.Tx{}, howMany: 3, best: []string{}},
		{name: "fair all", strategy: selector.StrategyFair, txs: pending, howMany: -1, best: []string{"t1", "t3", "t4", "t2"}},
		{name: "fair two", strategy: selector.StrategyFair, txs: pending, howMany: 2, best: []string{"t4", "t1"}},
		{name: "fair row", strategy: selector.StrategyFair, txs: pending, howMany: 3, best: []string{"t1", "t3", "t4"}},
	}

	t.Log("Given the need to select transactions for the next block.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				fn, err := selector.Retrieve(tst.strategy)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to retrieve the strategy: %v", failed, testID, err)
				}

				txs := make([]database.Tx, len(tst.txs))
				copy(txs, tst.txs)

				got := []string{}
				for _, tx := range fn(txs, tst.howMany) {
					got = append(got, tx.TxHash)
				}

				if diff := cmp.Diff(tst.best, got); diff != "" {
					t.Fatalf("\t%s\tTest %d:\tShould get the expected order:\n%s", failed, testID, diff)
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected order.", success, testID)

				if diff := cmp.Diff(tst.txs, txs); diff != "" {
					t.Fatalf("\t%s\tTest %d:\tShould not reorder the input:\n%s", failed, testID, diff)
				}
				t.Logf("\t%s\tTest %d:\tShould not reorder the input.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}

	t.Log("Given the need to reject unknown strategies.")
	{
		if _, err := selector.Retrieve("tip"); err == nil {
			t.Fatalf("\t%s\tShould not retrieve an unknown strategy.", failed)
		}
		t.Logf("\t%s\tShould not retrieve an unknown strategy.", success)
	}
}
