// Package mempool maintains the pending transactions for the blockchain and
// reconciles them against the transactions already committed to the chain.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	"github.com/ardanlabs/txchain/foundation/blockchain/mempool/selector"
)

// Set of errors returned by the mempool.
var (
	ErrMissingHash = errors.New("transaction has no hash")
	ErrRejected    = errors.New("transaction was rejected")
	ErrCommitted   = errors.New("transaction is already committed")
)

// Status represents where a transaction is in its lifecycle.
type Status string

// Set of transaction statuses.
const (
	StatusPending   Status = "pending"
	StatusCommitted Status = "committed"
	StatusRejected  Status = "rejected"
	StatusUnknown   Status = "unknown"
)

// Ledger represents the behavior required from the chain to learn which
// transactions have been committed.
type Ledger interface {
	CurrentHeight() int
	LastBlockTimeStamp() (uint64, error)
	BlocksSince(timeStamp uint64) []*database.Block
}

// confirmed tracks the hashes of the transactions seen in committed blocks.
// The set only grows until the mempool is reset.
type confirmed struct {
	hashes      map[string]struct{}
	initialized bool
	lastUpdate  uint64 // Timestamp of the last block absorbed.
	lastHeight  int    // Height of the chain on the last absorb.
}

// Mempool represents the ordered set of pending transactions with a second
// key on the transaction hash.
type Mempool struct {
	mu       sync.RWMutex
	pending  []database.Tx
	index    map[string]struct{}
	rejected map[string]struct{}
	cache    confirmed
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFIFO)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		index:    make(map[string]struct{}),
		rejected: make(map[string]struct{}),
		cache:    confirmed{hashes: make(map[string]struct{}), lastHeight: -1},
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pending)
}

// Submit adds the transaction to the end of the pool. A transaction already
// pending is ignored and false is returned. A transaction seen in a
// committed block is refused.
func (mp *Mempool) Submit(tx database.Tx) (bool, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if tx.TxHash == "" {
		return false, ErrMissingHash
	}

	if _, exists := mp.rejected[tx.TxHash]; exists {
		return false, fmt.Errorf("%w: %s", ErrRejected, tx.TxHash)
	}

	if _, exists := mp.cache.hashes[tx.TxHash]; exists {
		return false, fmt.Errorf("%w: %s", ErrCommitted, tx.TxHash)
	}

	return mp.add(tx), nil
}

// MergeFromPeer adds the transactions received from a peer that are not
// already pending, in the order received. Rejected and committed
// transactions and those with no hash are skipped. The number of transactions added is returned.
func (mp *Mempool) MergeFromPeer(txs []database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var added int
	for _, tx := range txs {
		if tx.TxHash == "" {
			continue
		}

		if _, exists := mp.rejected[tx.TxHash]; exists {
			continue
		}

		if _, exists := mp.cache.hashes[tx.TxHash]; exists {
			continue
		}

		if mp.add(tx) {
			added++
		}
	}

	return added
}

// Reconcile absorbs the transaction hashes of the blocks committed since the
// last call and removes every pending transaction found in them. The first
// call scans the whole chain. The number of transactions removed is returned.
func (mp *Mempool) Reconcile(ledger Ledger) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	height := ledger.CurrentHeight()
	if height < 0 {
		return 0, nil
	}

	lastTS, err := ledger.LastBlockTimeStamp()
	if err != nil {
		return 0, fmt.Errorf("reading last block timestamp: %w", err)
	}

	switch {
	case !mp.cache.initialized:
		mp.absorb(ledger.BlocksSince(0))
		mp.cache.initialized = true

	case mp.cache.lastUpdate < lastTS || mp.cache.lastHeight < height:
		mp.absorb(ledger.BlocksSince(mp.cache.lastUpdate))
	}

	mp.cache.lastUpdate = lastTS
	mp.cache.lastHeight = height

	return mp.purge(), nil
}

// StatusOf returns the status of the transaction with the specified hash.
func (mp *Mempool) StatusOf(hash string) Status {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if _, exists := mp.cache.hashes[hash]; exists {
		return StatusCommitted
	}

	if _, exists := mp.rejected[hash]; exists {
		return StatusRejected
	}

	if _, exists := mp.index[hash]; exists {
		return StatusPending
	}

	return StatusUnknown
}

// Reject removes the transaction from the pool and marks it rejected so it
// can't be submitted again until the mempool is reset.
func (mp *Mempool) Reject(hash string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.rejected[hash] = struct{}{}
	mp.purge()
}

// Snapshot returns a copy of the pending transactions in order.
func (mp *Mempool) Snapshot() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]database.Tx, len(mp.pending))
	copy(txs, mp.pending)

	return txs
}

// PickBest uses the configured select strategy to return the next set of
// transactions for the next block. Pass -1 for all the transactions.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	return mp.selectFn(mp.Snapshot(), howMany)
}

// Truncate clears all the pending transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pending = nil
	mp.index = make(map[string]struct{})
}

// Reset clears the confirmed cache and the rejected marks. The next
// reconcile scans the whole chain again. Pending transactions are kept.
func (mp *Mempool) Reset() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.rejected = make(map[string]struct{})
	mp.cache = confirmed{hashes: make(map[string]struct{}), lastHeight: -1}
}

// =============================================================================

// add appends the transaction if it's not already pending. The caller must
// hold the lock.
func (mp *Mempool) add(tx database.Tx) bool {
	if _, exists := mp.index[tx.TxHash]; exists {
		return false
	}

	mp.pending = append(mp.pending, tx)
	mp.index[tx.TxHash] = struct{}{}

	return true
}

// absorb records the transaction hashes of the blocks into the confirmed
// cache. The caller must hold the lock.
func (mp *Mempool) absorb(blocks []*database.Block) {
	for _, block := range blocks {
		for _, tx := range block.Transactions() {
			mp.cache.hashes[tx.TxHash] = struct{}{}
		}
	}
}

// purge removes the pending transactions that are confirmed or rejected.
// The caller must hold the lock.
func (mp *Mempool) purge() int {
	keep := mp.pending[:0]
	var removed int

	for _, tx := range mp.pending {
		_, committed := mp.cache.hashes[tx.TxHash]
		_, rejected := mp.rejected[tx.TxHash]

		if committed || rejected {
			delete(mp.index, tx.TxHash)
			removed++
			continue
		}

		keep = append(keep, tx)
	}

	clear(mp.pending[len(keep):])
	mp.pending = keep

	return removed
}
