package selector

import (
	"cmp"
	"slices"

	"github.com/ardanlabs/txchain/foundation/blockchain/database"
)

// fairSelect returns transactions taking one from each sender per round so a
// single busy sender can't fill a block, while respecting the submission
// order for each sender.
var fairSelect = func(txs []database.Tx, howMany int) []database.Tx {
	if howMany < 0 || howMany > len(txs) {
		howMany = len(txs)
	}

	/*
		t1 {From: bill, TimeStamp: 10}
		t2 {From: bill, TimeStamp: 11}
		t3 {From: ed,   TimeStamp: 12}
		t4 {From: pavl, TimeStamp: 9}
	*/

	// Group the transactions by sender in the order senders first appear.
	var senders []string
	m := make(map[string][]database.Tx)
	for _, tx := range txs {
		if _, exists := m[tx.From]; !exists {
			senders = append(senders, tx.From)
		}
		m[tx.From] = append(m[tx.From], tx)
	}

	/*
		bill: t1, t2
		ed:   t3
		pavl: t4
	*/

	// Pick the first transaction in the slice for each sender. Each iteration
	// represents a new row of selections. Keep doing that until all the
	// transactions have been selected.
	var rows [][]database.Tx
	for {
		var row []database.Tx
		for _, sender := range senders {
			if len(m[sender]) > 0 {
				row = append(row, m[sender][0])
				m[sender] = m[sender][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	/*
		0: t1, t3, t4
		1: t2
	*/

	// Sort a row by timestamp only when it can't be taken in full so the
	// oldest transactions win the remaining space.
	final := []database.Tx{}
done:
	for _, row := range rows {
		need := howMany - len(final)
		if len(row) > need {
			slices.SortStableFunc(row, func(a, b database.Tx) int {
				return cmp.Compare(a.TimeStamp, b.TimeStamp)
			})
			final = append(final, row[:need]...)
			break done
		}
		final = append(final, row...)
	}

	/*
		howMany 2: t4, t1
	*/

	return final
}
