package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ardanlabs/txchain/foundation/blockchain/digest"
)

// Tx represents a transaction as it is recorded in a block or held in the
// mempool. The ledger treats the content as opaque and only relies on TxHash
// for identity.
type Tx struct {
	ID        string `json:"id,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Value     uint64 `json:"value,omitempty"`
	Data      string `json:"data,omitempty"`
	TimeStamp uint64 `json:"timestamp,omitempty"`
	TxHash    string `json:"txHash"`
}

// NewTx constructs a transaction and derives its hash from the content using
// the specified digest provider.
func NewTx(id string, from string, to string, value uint64, data string, p digest.Provider) (Tx, error) {
	tx := Tx{
		ID:        id,
		From:      from,
		To:        to,
		Value:     value,
		Data:      data,
		TimeStamp: uint64(time.Now().UTC().Unix()),
	}

	hash, err := tx.ContentHash(p)
	if err != nil {
		return Tx{}, err
	}
	tx.TxHash = hash

	return tx, nil
}

// ContentHash returns the hex digest of the canonical encoding of every
// field except TxHash.
func (tx Tx) ContentHash(p digest.Provider) (string, error) {
	tx.TxHash = ""

	data, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("encoding tx: %w", err)
	}

	return digest.Hex(p, data), nil
}

// Encode returns the canonical byte form of the transaction.
func (tx Tx) Encode() ([]byte, error) {
	return json.Marshal(tx)
}

// DecodeTx reconstructs a transaction from its canonical byte form.
func DecodeTx(data []byte) (Tx, error) {
	var tx Tx
	if err := json.Unmarshal(data, &tx); err != nil {
		return Tx{}, fmt.Errorf("%w: tx: %s", ErrDecodeFailure, err)
	}

	return tx, nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	if tx.ID == "" {
		return tx.TxHash
	}
	return fmt.Sprintf("%s:%s", tx.ID, tx.TxHash)
}

// =============================================================================

func copyTxs(txs []Tx) []Tx {
	if txs == nil {
		return nil
	}

	cpy := make([]Tx, len(txs))
	copy(cpy, txs)

	return cpy
}
