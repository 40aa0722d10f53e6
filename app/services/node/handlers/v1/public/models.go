package public

import (
	"time"

	"github.com/ardanlabs/txchain/foundation/blockchain/database"
)

// newTx is what a client submits to add a transaction to the mempool.
type newTx struct {
	ID        string `json:"id" validate:"required"`
	From      string `json:"from" validate:"required"`
	To        string `json:"to" validate:"required"`
	Value     uint64 `json:"value"`
	Data      string `json:"data"`
	TimeStamp uint64 `json:"timestamp"`
	TxHash    string `json:"txHash" validate:"omitempty,digest"`
}

func toDBTx(ntx newTx) database.Tx {
	ts := ntx.TimeStamp
	if ts == 0 && ntx.TxHash == "" {
		ts = uint64(time.Now().UTC().Unix())
	}

	return database.Tx{
		ID:        ntx.ID,
		From:      ntx.From,
		To:        ntx.To,
		Value:     ntx.Value,
		Data:      ntx.Data,
		TimeStamp: ts,
		TxHash:    ntx.TxHash,
	}
}

type tx struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     uint64 `json:"value"`
	Data      string `json:"data,omitempty"`
	TimeStamp uint64 `json:"timestamp"`
	TxHash    string `json:"txHash"`
}

func toTx(dbTx database.Tx) tx {
	return tx{
		ID:        dbTx.ID,
		From:      dbTx.From,
		To:        dbTx.To,
		Value:     dbTx.Value,
		Data:      dbTx.Data,
		TimeStamp: dbTx.TimeStamp,
		TxHash:    dbTx.TxHash,
	}
}

type submitted struct {
	Status string `json:"status"`
	TxHash string `json:"txHash"`
}

type txStatus struct {
	TxHash string `json:"txHash"`
	Status string `json:"status"`
}
