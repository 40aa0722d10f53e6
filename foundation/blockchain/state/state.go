// Package state is the core API for the ledger node. It owns the chain and
// the mempool and implements the rules for assembling new blocks.
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardanlabs/txchain/foundation/blockchain/chain"
	"github.com/ardanlabs/txchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/txchain/foundation/blockchain/mempool"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for background block assembly and mempool
// reconciliation.
type Worker interface {
	Shutdown()
	SignalAssemble()
	SignalReconcile()
}

// =============================================================================

// Config represents the configuration required to start the ledger node.
type Config struct {
	Beneficiary     string
	Genesis         genesis.Genesis
	Snapshot        chain.Snapshotter
	Store           chain.Store
	SkipParentCheck bool
	SelectStrategy  string
	MaxBlockTxs     int // Zero or less means no limit.
	EvHandler       EventHandler
}

// State manages the chain and the mempool for the node.
type State struct {
	beneficiary string
	maxBlockTxs int
	evHandler   EventHandler
	mu          sync.Mutex

	genesis genesis.Genesis
	chain   *chain.Chain
	mempool *mempool.Mempool

	Worker Worker
}

// New constructs the node state, bootstrapping the chain from the snapshot
// or from the genesis settings.
func New(ctx context.Context, cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Construct the chain with the configured persistence and load it.
	chn, err := chain.New(chain.Config{
		Genesis:         cfg.Genesis,
		Snapshot:        cfg.Snapshot,
		Store:           cfg.Store,
		SkipParentCheck: cfg.SkipParentCheck,
		EvHandler:       chain.EventHandler(ev),
	})
	if err != nil {
		return nil, err
	}

	if err := chn.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("bootstrapping chain: %w", err)
	}

	// Construct a mempool with the specified select strategy.
	mp, err := mempool.NewWithStrategy(cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	// Absorb what the chain already committed so restarts don't accept
	// stale transactions as pending.
	if _, err := mp.Reconcile(chn); err != nil {
		return nil, err
	}

	// The selectors take a negative count to mean every transaction.
	maxBlockTxs := cfg.MaxBlockTxs
	if maxBlockTxs <= 0 {
		maxBlockTxs = -1
	}

	state := State{
		beneficiary: cfg.Beneficiary,
		maxBlockTxs: maxBlockTxs,
		evHandler:   ev,

		genesis: cfg.Genesis,
		chain:   chn,
		mempool: mp,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.
	state.Worker = noWorker{}

	return &state, nil
}

// Shutdown cleanly brings the node down, stopping the background workers and
// writing a final snapshot of the chain.
func (s *State) Shutdown(ctx context.Context) error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all block writing activity.
	s.Worker.Shutdown()

	return s.chain.Persist(ctx)
}

// Persist writes a snapshot of the chain.
func (s *State) Persist(ctx context.Context) error {
	return s.chain.Persist(ctx)
}

// Reconcile purges the pending transactions that have been committed.
func (s *State) Reconcile() (int, error) {
	removed, err := s.mempool.Reconcile(s.chain)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.evHandler("state: Reconcile: removed[%d]: pending[%d]", removed, s.mempool.Count())
	}

	return removed, nil
}

// =============================================================================

// noWorker is used until a worker registers itself.
type noWorker struct{}

func (noWorker) Shutdown()        {}
func (noWorker) SignalAssemble()  {}
func (noWorker) SignalReconcile() {}
