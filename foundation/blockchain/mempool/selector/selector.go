// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/ardanlabs/txchain/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO = "fifo"
	StrategyFair = "fair"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO: fifoSelect,
	StrategyFair: fairSelect,
}

// Func defines a function that takes the pending transactions in submission
// order and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST keep the submission order of the
// transactions from a single sender. Receiving -1 for howMany must return
// all the transactions in the strategies ordering.
type Func func(transactions []database.Tx, howMany int) []database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// fifoSelect returns the transactions in the order they were submitted.
var fifoSelect = func(txs []database.Tx, howMany int) []database.Tx {
	if howMany < 0 || howMany > len(txs) {
		howMany = len(txs)
	}

	final := make([]database.Tx, howMany)
	copy(final, txs)

	return final
}
