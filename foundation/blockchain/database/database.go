// Package database defines the records that make up the ledger: the block,
// with its canonical header and body encodings, and the transactions it
// carries.
package database

import "errors"

// Set of errors returned when building, encoding or decoding blocks.
var (
	ErrInvalidHeaderField = errors.New("invalid header field")
	ErrDecodeFailure      = errors.New("decode failure")
	ErrBlockFinalized     = errors.New("block is finalized")
)

// =============================================================================

// BlockData represents the full record of a block as it is written to a
// snapshot file or a block store.
type BlockData struct {
	Number           uint64 `json:"number"`
	ParentHash       string `json:"parentHash"`
	TransactionsRoot string `json:"transactionsRoot"`
	ReceiptRoot      string `json:"receiptRoot"`
	TimeStamp        uint64 `json:"timeStamp"`
	ExtraData        string `json:"extraData"`
	Nonce            string `json:"nonce"`
	Beneficiary      string `json:"beneficiary"`
	Hash             string `json:"hash"`
	Transactions     []Tx   `json:"transactions"`
}

// Header returns the header view of the record.
func (bd BlockData) Header() BlockHeader {
	return BlockHeader{
		Number:           bd.Number,
		TransactionsRoot: bd.TransactionsRoot,
		ReceiptRoot:      bd.ReceiptRoot,
		TimeStamp:        bd.TimeStamp,
		ParentHash:       bd.ParentHash,
		ExtraData:        bd.ExtraData,
		Nonce:            bd.Nonce,
	}
}

// Body returns a copy of the body view of the record.
func (bd BlockData) Body() []Tx {
	return copyTxs(bd.Transactions)
}

// ToBlock converts a stored record into a block. The stored hash is trusted.
func ToBlock(bd BlockData, options ...func(b *Block)) (*Block, error) {
	b := NewEmptyBlock(options...)
	if err := b.SetFullRecord(bd); err != nil {
		return nil, err
	}

	return b, nil
}
