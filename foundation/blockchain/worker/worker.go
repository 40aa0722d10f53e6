// Package worker implements block assembly, mempool reconciliation and chain
// snapshots as background operations for the node.
package worker

import (
	"context"
	"time"

	"github.com/ardanlabs/txchain/foundation/blockchain/state"
	"golang.org/x/sync/errgroup"
)

// Config represents the intervals the background operations run on. A zero
// AssembleInterval means blocks are only assembled when signaled.
type Config struct {
	ReconcileInterval time.Duration
	PersistInterval   time.Duration
	AssembleInterval  time.Duration
	EvHandler         state.EventHandler
}

// Worker manages the background workflows for the node.
type Worker struct {
	state       *state.State
	cfg         Config
	g           errgroup.Group
	shut        chan struct{}
	reconcile   chan bool
	startAssmbl chan bool
	evHandler   state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config) *Worker {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	w := Worker{
		state:       st,
		cfg:         cfg,
		shut:        make(chan struct{}),
		reconcile:   make(chan bool, 1),
		startAssmbl: make(chan bool, 1),
		evHandler:   ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.reconcileOperations,
		w.persistOperations,
		w.assembleOperations,
	}

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	for _, op := range operations {
		w.g.Go(func() error {
			hasStarted <- true
			op()
			return nil
		})
	}

	// Wait for the G's to report they are running.
	for range operations {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.g.Wait()
}

// SignalAssemble starts a block assembly. If there is already a signal
// pending in the channel, just return since an assembly will start.
func (w *Worker) SignalAssemble() {
	select {
	case w.startAssmbl <- true:
		w.evHandler("worker: SignalAssemble: assembly signaled")
	default:
	}
}

// SignalReconcile starts a mempool reconciliation.
func (w *Worker) SignalReconcile() {
	select {
	case w.reconcile <- true:
	default:
	}
}

// =============================================================================

// reconcileOperations purges committed transactions from the mempool.
func (w *Worker) reconcileOperations() {
	w.evHandler("worker: reconcileOperations: G started")
	defer w.evHandler("worker: reconcileOperations: G completed")

	ticker := newTicker(w.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-w.reconcile:
		case <-w.shut:
			w.evHandler("worker: reconcileOperations: received shut signal")
			return
		}

		if _, err := w.state.Reconcile(); err != nil {
			w.evHandler("worker: reconcileOperations: ERROR: %s", err)
		}
	}
}

// persistOperations writes a snapshot of the chain on every interval.
func (w *Worker) persistOperations() {
	w.evHandler("worker: persistOperations: G started")
	defer w.evHandler("worker: persistOperations: G completed")

	ticker := newTicker(w.cfg.PersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.state.Persist(context.Background()); err != nil {
				w.evHandler("worker: persistOperations: ERROR: %s", err)
			}

		case <-w.shut:
			w.evHandler("worker: persistOperations: received shut signal")
			return
		}
	}
}

// assembleOperations assembles blocks when signaled and on the interval.
func (w *Worker) assembleOperations() {
	w.evHandler("worker: assembleOperations: G started")
	defer w.evHandler("worker: assembleOperations: G completed")

	ticker := newTicker(w.cfg.AssembleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-w.startAssmbl:
		case <-w.shut:
			w.evHandler("worker: assembleOperations: received shut signal")
			return
		}

		if !w.isShutdown() {
			w.runAssembleOperation()
		}
	}
}

// runAssembleOperation takes the best transactions from the mempool and
// appends a new block to the chain.
func (w *Worker) runAssembleOperation() {
	w.evHandler("worker: runAssembleOperation: ASSEMBLE: started")
	defer w.evHandler("worker: runAssembleOperation: ASSEMBLE: completed")

	if w.state.RetrieveMempoolLength() == 0 {
		w.evHandler("worker: runAssembleOperation: ASSEMBLE: no transactions")
		return
	}

	block, err := w.state.AssembleBlock(context.Background())
	if err != nil {
		w.evHandler("worker: runAssembleOperation: ASSEMBLE: ERROR: %s", err)
		return
	}

	w.evHandler("worker: runAssembleOperation: ASSEMBLE: blk[%d]: hash[%s]: txs[%d]", block.Number(), block.Hash(), len(block.Transactions()))
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// newTicker returns a ticker that never fires for a zero interval.
func newTicker(d time.Duration) *time.Ticker {
	if d <= 0 {
		t := time.NewTicker(time.Hour)
		t.Stop()
		return t
	}
	return time.NewTicker(d)
}
