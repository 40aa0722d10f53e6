package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/txchain/foundation/blockchain/database"
)

// ErrInvalidTxHash is returned when a submitted transaction carries a hash
// that doesn't match its content.
var ErrInvalidTxHash = errors.New("transaction hash doesn't match its content")

// SubmitTransaction adds a new transaction to the mempool. The content hash
// is computed when the transaction doesn't carry one. It returns false when
// the transaction was already pending.
func (s *State) SubmitTransaction(tx database.Tx) (database.Tx, bool, error) {
	hash, err := tx.ContentHash(s.chain.Digest())
	if err != nil {
		return database.Tx{}, false, err
	}

	switch tx.TxHash {
	case "":
		tx.TxHash = hash

	case hash:

	default:
		return database.Tx{}, false, fmt.Errorf("%w: got %s, exp %s", ErrInvalidTxHash, tx.TxHash, hash)
	}

	added, err := s.mempool.Submit(tx)
	if err != nil {
		return database.Tx{}, false, err
	}

	if added {
		s.evHandler("state: SubmitTransaction: tx[%s]: pending[%d]", tx.TxHash, s.mempool.Count())
		s.Worker.SignalAssemble()
	}

	return tx, added, nil
}

// MergePeerTransactions adds the transactions shared by a peer node that
// are not already pending. Transactions with a bad hash are skipped.
func (s *State) MergePeerTransactions(txs []database.Tx) int {
	valid := make([]database.Tx, 0, len(txs))
	for _, tx := range txs {
		hash, err := tx.ContentHash(s.chain.Digest())
		if err != nil || hash != tx.TxHash {
			s.evHandler("state: MergePeerTransactions: skip tx[%s]: bad hash", tx.TxHash)
			continue
		}
		valid = append(valid, tx)
	}

	added := s.mempool.MergeFromPeer(valid)
	if added > 0 {
		s.evHandler("state: MergePeerTransactions: added[%d]: pending[%d]", added, s.mempool.Count())
		s.Worker.SignalReconcile()
	}

	return added
}

// RejectTransaction removes the transaction from the mempool and blocks it
// from being submitted again.
func (s *State) RejectTransaction(hash string) {
	s.mempool.Reject(hash)
	s.evHandler("state: RejectTransaction: tx[%s]", hash)
}
