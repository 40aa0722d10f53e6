package mempool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ardanlabs/txchain/foundation/blockchain/chain"
	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	"github.com/ardanlabs/txchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/txchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/txchain/foundation/blockchain/storage/memory"
	"github.com/google/go-cmp/cmp"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func tx(hash string) database.Tx {
	return database.Tx{ID: hash, From: "bill", TxHash: hash}
}

func hashes(txs []database.Tx) []string {
	out := []string{}
	for _, tx := range txs {
		out = append(out, tx.TxHash)
	}
	return out
}

// ledger is a scripted chain that counts how often it's scanned.
type ledger struct {
	blocks []*database.Block
	scans  []uint64
}

func (l *ledger) CurrentHeight() int {
	return len(l.blocks) - 1
}

func (l *ledger) LastBlockTimeStamp() (uint64, error) {
	if len(l.blocks) == 0 {
		return 0, chain.ErrOutOfRange
	}
	return l.blocks[len(l.blocks)-1].TimeStamp(), nil
}

func (l *ledger) BlocksSince(ts uint64) []*database.Block {
	l.scans = append(l.scans, ts)

	var blocks []*database.Block
	for _, block := range l.blocks {
		if block.TimeStamp() >= ts {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func (l *ledger) add(t *testing.T, ts uint64, txHashes ...string) {
	t.Helper()

	txs := make([]database.Tx, len(txHashes))
	for i, hash := range txHashes {
		txs[i] = tx(hash)
	}

	block, err := database.NewBlock(database.BlockConfig{Number: uint64(len(l.blocks)), TimeStamp: ts, Transactions: txs})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to build a block: %v", failed, err)
	}
	l.blocks = append(l.blocks, block)
}

// =============================================================================

func Test_Submit(t *testing.T) {
	t.Log("Given the need to submit transactions to the mempool.")
	{
		mp, err := mempool.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a mempool: %v", failed, err)
		}

		for _, hash := range []string{"t1", "t2", "t1"} {
			if _, err := mp.Submit(tx(hash)); err != nil {
				t.Fatalf("\t%s\tShould be able to submit %s: %v", failed, hash, err)
			}
		}

		if diff := cmp.Diff([]string{"t1", "t2"}, hashes(mp.Snapshot())); diff != "" {
			t.Fatalf("\t%s\tShould ignore the duplicate:\n%s", failed, diff)
		}
		t.Logf("\t%s\tShould ignore the duplicate.", success)

		if _, err := mp.Submit(database.Tx{ID: "nohash"}); !errors.Is(err, mempool.ErrMissingHash) {
			t.Fatalf("\t%s\tShould reject a tx with no hash, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject a tx with no hash.", success)

		snap := mp.Snapshot()
		snap[0].TxHash = "changed"
		if mp.StatusOf("t1") != mempool.StatusPending {
			t.Fatalf("\t%s\tShould return a copy from Snapshot.", failed)
		}
		t.Logf("\t%s\tShould return a copy from Snapshot.", success)

		mp.Reject("t1")
		if mp.StatusOf("t1") != mempool.StatusRejected || mp.Count() != 1 {
			t.Fatalf("\t%s\tShould remove and mark the rejected tx.", failed)
		}

		if _, err := mp.Submit(tx("t1")); !errors.Is(err, mempool.ErrRejected) {
			t.Fatalf("\t%s\tShould not accept a rejected tx, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould not accept a rejected tx.", success)

		mp.Reset()
		if added, err := mp.Submit(tx("t1")); err != nil || !added {
			t.Fatalf("\t%s\tShould accept the tx after a reset: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept the tx after a reset.", success)

		mp.Truncate()
		if mp.Count() != 0 || mp.StatusOf("t2") != mempool.StatusUnknown {
			t.Fatalf("\t%s\tShould be empty after truncate.", failed)
		}
		t.Logf("\t%s\tShould be empty after truncate.", success)
	}
}

func Test_MergeFromPeer(t *testing.T) {
	t.Log("Given the need to merge transactions from a peer.")
	{
		mp, err := mempool.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a mempool: %v", failed, err)
		}

		mp.Submit(tx("t1"))
		mp.Submit(tx("t9"))
		mp.Reject("t9")

		added := mp.MergeFromPeer([]database.Tx{tx("t3"), tx("t1"), tx("t2"), tx("t3"), tx("t9"), {ID: "nohash"}})
		if added != 2 {
			t.Fatalf("\t%s\tShould add 2 transactions, got %d.", failed, added)
		}

		if diff := cmp.Diff([]string{"t1", "t3", "t2"}, hashes(mp.Snapshot())); diff != "" {
			t.Fatalf("\t%s\tShould append unseen transactions in order:\n%s", failed, diff)
		}
		t.Logf("\t%s\tShould append unseen transactions in order.", success)
	}
}

func Test_Reconcile(t *testing.T) {
	t.Log("Given the need to reconcile the mempool with the chain.")
	{
		mp, err := mempool.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a mempool: %v", failed, err)
		}

		var l ledger
		if removed, err := mp.Reconcile(&l); err != nil || removed != 0 || len(l.scans) != 0 {
			t.Fatalf("\t%s\tShould do nothing on an empty chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould do nothing on an empty chain.", success)

		l.add(t, 100)
		l.add(t, 110, "t1")

		mp.Submit(tx("t1"))
		mp.Submit(tx("t2"))

		removed, err := mp.Reconcile(&l)
		if err != nil || removed != 1 {
			t.Fatalf("\t%s\tShould remove 1 transaction, got %d: %v", failed, removed, err)
		}

		if diff := cmp.Diff([]uint64{0}, l.scans); diff != "" {
			t.Fatalf("\t%s\tShould scan the whole chain first:\n%s", failed, diff)
		}
		t.Logf("\t%s\tShould scan the whole chain first.", success)

		mp.Reconcile(&l)
		if len(l.scans) != 1 {
			t.Fatalf("\t%s\tShould not scan when nothing changed, got %v.", failed, l.scans)
		}
		t.Logf("\t%s\tShould not scan when nothing changed.", success)

		l.add(t, 120, "t2")
		if removed, _ := mp.Reconcile(&l); removed != 1 || mp.Count() != 0 {
			t.Fatalf("\t%s\tShould remove the newly committed tx, got %d.", failed, removed)
		}

		if diff := cmp.Diff([]uint64{0, 110}, l.scans); diff != "" {
			t.Fatalf("\t%s\tShould scan from the last absorbed timestamp:\n%s", failed, diff)
		}
		t.Logf("\t%s\tShould scan from the last absorbed timestamp.", success)

		l.add(t, 120, "t3")
		mp.Submit(tx("t3"))
		if removed, _ := mp.Reconcile(&l); removed != 1 {
			t.Fatalf("\t%s\tShould catch a block with the same timestamp, got %d.", failed, removed)
		}
		t.Logf("\t%s\tShould catch a block with the same timestamp.", success)

		for _, hash := range []string{"t1", "t2", "t3"} {
			if s := mp.StatusOf(hash); s != mempool.StatusCommitted {
				t.Fatalf("\t%s\tShould report %s committed, got %s.", failed, hash, s)
			}
		}

		if s := mp.StatusOf("t4"); s != mempool.StatusUnknown {
			t.Fatalf("\t%s\tShould report an unseen tx unknown, got %s.", failed, s)
		}
		t.Logf("\t%s\tShould report the status of each tx.", success)

		mp.Reset()
		mp.Reconcile(&l)
		if l.scans[len(l.scans)-1] != 0 {
			t.Fatalf("\t%s\tShould rescan the whole chain after a reset, got %v.", failed, l.scans)
		}
		t.Logf("\t%s\tShould rescan the whole chain after a reset.", success)
	}
}

func Test_EndToEnd(t *testing.T) {
	ctx := context.Background()

	t.Log("Given the need to purge committed transactions from a live chain.")
	{
		c, err := chain.New(chain.Config{Genesis: genesis.Default(), Snapshot: memory.New(), Store: memory.New()})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a chain: %v", failed, err)
		}

		if err := c.Bootstrap(ctx); err != nil {
			t.Fatalf("\t%s\tShould be able to bootstrap: %v", failed, err)
		}

		t1, _ := database.NewTx("1", "bill", "ed", 10, "", c.Digest())
		t2, _ := database.NewTx("2", "bill", "ed", 20, "", c.Digest())
		t3, _ := database.NewTx("3", "bill", "ed", 30, "", c.Digest())

		last, _ := c.LastBlock()
		cfg := database.BlockConfig{
			TimeStamp:    last.TimeStamp() + 1,
			ParentHash:   last.Hash(),
			Transactions: []database.Tx{t1, t2},
		}

		block, err := database.NewBlock(cfg, database.WithChain(c), database.WithDigest(c.Digest()))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build block 1: %v", failed, err)
		}

		if err := c.Append(ctx, block); err != nil {
			t.Fatalf("\t%s\tShould be able to append block 1: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to append block 1.", success)

		mp, err := mempool.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a mempool: %v", failed, err)
		}

		for _, tx := range []database.Tx{t1, t2, t3} {
			mp.Submit(tx)
		}

		if _, err := mp.Reconcile(c); err != nil {
			t.Fatalf("\t%s\tShould be able to reconcile: %v", failed, err)
		}

		if diff := cmp.Diff([]database.Tx{t3}, mp.Snapshot()); diff != "" {
			t.Fatalf("\t%s\tShould only keep t3 pending:\n%s", failed, diff)
		}
		t.Logf("\t%s\tShould only keep t3 pending.", success)

		if mp.StatusOf(t1.TxHash) != mempool.StatusCommitted || mp.StatusOf(t3.TxHash) != mempool.StatusPending {
			t.Fatalf("\t%s\tShould report t1 committed and t3 pending.", failed)
		}
		t.Logf("\t%s\tShould report t1 committed and t3 pending.", success)

		if _, err := mp.Submit(t1); !errors.Is(err, mempool.ErrCommitted) {
			t.Fatalf("\t%s\tShould refuse a committed tx, got %v.", failed, err)
		}

		if added := mp.MergeFromPeer([]database.Tx{t1, t2}); added != 0 || mp.Count() != 1 {
			t.Fatalf("\t%s\tShould skip committed txs from a peer, added %d.", failed, added)
		}
		t.Logf("\t%s\tShould refuse committed txs.", success)
	}
}
