package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	"github.com/ardanlabs/txchain/foundation/blockchain/merkle"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// AssembleBlock takes the best transactions from the mempool and appends a
// new block holding them to the chain. The committed transactions are
// purged from the mempool.
func (s *State) AssembleBlock(ctx context.Context) (*database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Blocks appended since the last reconcile may hold pending txs.
	if _, err := s.Reconcile(); err != nil {
		return nil, err
	}

	s.evHandler("state: AssembleBlock: check mempool count")

	txs := s.mempool.PickBest(s.maxBlockTxs)
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	s.evHandler("state: AssembleBlock: build transactions root: txs[%d]", len(txs))

	tree, err := merkle.NewTree(txs, database.Tx.Encode, merkle.WithDigest[database.Tx](s.chain.Digest()))
	if err != nil {
		return nil, fmt.Errorf("building transactions root: %w", err)
	}

	last, err := s.chain.LastBlock()
	if err != nil {
		return nil, err
	}

	// A clock running behind the last block must not produce a block the
	// chain will reject.
	timeStamp := uint64(time.Now().UTC().Unix())
	if timeStamp < last.TimeStamp() {
		timeStamp = last.TimeStamp()
	}

	cfg := database.BlockConfig{
		TransactionsRoot: tree.RootHex(),
		TimeStamp:        timeStamp,
		ParentHash:       last.Hash(),
		Beneficiary:      s.beneficiary,
		Transactions:     txs,
	}

	block, err := database.NewBlock(cfg, database.WithChain(s.chain), database.WithDigest(s.chain.Digest()))
	if err != nil {
		return nil, err
	}

	s.evHandler("state: AssembleBlock: append: blk[%d]", block.Number())

	if err := s.chain.Append(ctx, block); err != nil {
		return nil, err
	}

	if _, err := s.Reconcile(); err != nil {
		return nil, err
	}

	return block, nil
}
