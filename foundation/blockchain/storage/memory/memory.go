// Package memory implements the chain store and snapshot behavior using
// slices and maps held in memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardanlabs/txchain/foundation/blockchain/chain"
	"github.com/ardanlabs/txchain/foundation/blockchain/database"
)

// Memory represents the storage implementation for reading and storing
// blocks in memory. This implements the chain.Store and chain.Snapshotter
// interfaces.
type Memory struct {
	mu       sync.RWMutex
	blocks   []database.BlockData
	byHash   map[string]int
	snapshot []database.BlockData
	saved    bool
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		byHash: make(map[string]int),
	}
}

// WriteBlock stores the block. Blocks must be written in height order.
// Writing a block already stored with the same hash is a no-op.
func (m *Memory) WriteBlock(ctx context.Context, block database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := uint64(len(m.blocks))
	if block.Number < l && m.blocks[block.Number].Hash == block.Hash {
		return nil
	}

	if block.Number != l {
		return fmt.Errorf("block is out of order, got %d, exp %d", block.Number, l)
	}

	m.blocks = append(m.blocks, copyRecord(block))
	m.byHash[block.Hash] = int(l)

	return nil
}

// ReadBlocksByHash returns a lookup result for every specified hash.
func (m *Memory) ReadBlocksByHash(ctx context.Context, hashes []string) ([]chain.Lookup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]chain.Lookup, len(hashes))
	for i, hash := range hashes {
		results[i] = chain.Lookup{Hash: hash}
		if idx, exists := m.byHash[hash]; exists {
			results[i].Found = true
			results[i].Block = copyRecord(m.blocks[idx])
		}
	}

	return results, nil
}

// ReadBlocksByHeightRange returns the blocks between min and max inclusive.
func (m *Memory) ReadBlocksByHeightRange(ctx context.Context, min uint64, max uint64) ([]database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l := uint64(len(m.blocks))
	if min > max || max >= l {
		return nil, fmt.Errorf("range %d-%d: %w", min, max, chain.ErrNotFound)
	}

	blocks := make([]database.BlockData, 0, max-min+1)
	for _, block := range m.blocks[min : max+1] {
		blocks = append(blocks, copyRecord(block))
	}

	return blocks, nil
}

// Load returns the last saved snapshot.
func (m *Memory) Load(ctx context.Context) ([]database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.saved {
		return nil, chain.ErrNoSnapshot
	}

	blocks := make([]database.BlockData, len(m.snapshot))
	for i, block := range m.snapshot {
		blocks[i] = copyRecord(block)
	}

	return blocks, nil
}

// Save replaces the snapshot with the specified blocks.
func (m *Memory) Save(ctx context.Context, blocks []database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot = make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		m.snapshot[i] = copyRecord(block)
	}
	m.saved = true

	return nil
}

// Reset clears out the blocks and the snapshot.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil
	m.byHash = make(map[string]int)
	m.snapshot = nil
	m.saved = false
}

// =============================================================================

func copyRecord(block database.BlockData) database.BlockData {
	block.Transactions = block.Body()
	return block
}
