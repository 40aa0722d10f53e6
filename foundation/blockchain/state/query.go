package state

import (
	"context"

	"github.com/ardanlabs/txchain/foundation/blockchain/chain"
	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	"github.com/ardanlabs/txchain/foundation/blockchain/digest"
	"github.com/ardanlabs/txchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/txchain/foundation/blockchain/mempool"
)

// Status represents the current position of the node.
type Status struct {
	Height      int    `json:"height"`
	GenesisHash string `json:"genesis_hash"`
	LastHash    string `json:"last_hash"`
	LastTime    uint64 `json:"last_timestamp"`
	Digest      string `json:"digest"`
	Pending     int    `json:"pending"`
}

// RetrieveGenesis returns a copy of the genesis settings.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveStatus returns the current position of the chain and the size of
// the mempool.
func (s *State) RetrieveStatus() (Status, error) {
	genesisHash, err := s.chain.GenesisHash()
	if err != nil {
		return Status{}, err
	}

	last, err := s.chain.LastBlock()
	if err != nil {
		return Status{}, err
	}

	status := Status{
		Height:      int(last.Number()),
		GenesisHash: genesisHash,
		LastHash:    last.Hash(),
		LastTime:    last.TimeStamp(),
		Digest:      s.chain.Digest().Name(),
		Pending:     s.mempool.Count(),
	}

	return status, nil
}

// RetrieveHeight returns the height of the chain.
func (s *State) RetrieveHeight() int {
	return s.chain.CurrentHeight()
}

// RetrieveMempool returns a copy of the pending transactions.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.Snapshot()
}

// RetrieveMempoolLength returns the number of pending transactions.
func (s *State) RetrieveMempoolLength() int {
	return s.mempool.Count()
}

// QueryTransactionStatus returns the lifecycle status of a transaction.
func (s *State) QueryTransactionStatus(hash string) mempool.Status {
	return s.mempool.StatusOf(hash)
}

// QueryBlocksByNumber returns the records of the blocks between from and to
// inclusive.
func (s *State) QueryBlocksByNumber(ctx context.Context, from uint64, to uint64) ([]database.BlockData, error) {
	return s.chain.LoadRange(ctx, from, to)
}

// QueryBlocksByHash returns a lookup result for every specified hash.
func (s *State) QueryBlocksByHash(ctx context.Context, hashes ...string) ([]chain.Lookup, error) {
	return s.chain.LoadBlocksByHash(ctx, hashes)
}

// Digest returns the digest used by the chain.
func (s *State) Digest() digest.Hasher {
	return s.chain.Digest()
}
