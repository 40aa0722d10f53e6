// Package chain maintains the ordered sequence of blocks that make up the
// ledger. It bootstraps the genesis block, validates every block appended
// and hands persistence off to the configured snapshotter and store.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	"github.com/ardanlabs/txchain/foundation/blockchain/digest"
	"github.com/ardanlabs/txchain/foundation/blockchain/genesis"
)

// Set of errors returned by the chain.
var (
	ErrInvalidParent    = errors.New("parent hash doesn't match the last block")
	ErrHeightConflict   = errors.New("block is not the next number")
	ErrChainForked      = errors.New("blockchain forked, start resync")
	ErrInvalidHash      = errors.New("block hash doesn't match its header")
	ErrInvalidTimestamp = errors.New("block timestamp is before parent block")
	ErrOutOfRange       = errors.New("height out of range")
	ErrStoreFailure     = errors.New("store failure")
	ErrNotBootstrapped  = errors.New("chain is not bootstrapped")
)

// EventHandler defines a function that is called when events occur in the
// processing of blocks.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct a chain.
type Config struct {
	Genesis         genesis.Genesis
	Snapshot        Snapshotter
	Store           Store // Optional, lookups are served from memory when nil.
	SkipParentCheck bool  // Accept blocks without checking the parent hash.
	EvHandler       EventHandler
}

// Chain manages the in memory block sequence indexed by height.
type Chain struct {
	mu     sync.RWMutex
	blocks []*database.Block

	// persistMu orders snapshot saves so an older copy can't land last.
	persistMu sync.Mutex

	genesis    genesis.Genesis
	digest     digest.Hasher
	snapshot   Snapshotter
	store      Store
	skipParent bool
	evHandler  EventHandler
}

// New constructs a chain. Bootstrap must be called before the chain is used.
func New(cfg Config) (*Chain, error) {
	if cfg.Snapshot == nil {
		return nil, errors.New("chain requires a snapshotter")
	}

	name := cfg.Genesis.Digest
	if name == "" {
		name = digest.Default
	}

	hasher, err := digest.New(name)
	if err != nil {
		return nil, err
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	c := Chain{
		genesis:    cfg.Genesis,
		digest:     hasher,
		snapshot:   cfg.Snapshot,
		store:      cfg.Store,
		skipParent: cfg.SkipParentCheck,
		evHandler:  ev,
	}

	return &c, nil
}

// Bootstrap loads the persisted chain if one exists, otherwise it
// synthesizes the genesis block and persists it.
func (c *Chain) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) > 0 {
		return errors.New("chain is already bootstrapped")
	}

	records, err := c.snapshot.Load(ctx)
	switch {
	case err == nil:
		return c.load(records)

	case errors.Is(err, ErrNoSnapshot):
		return c.createGenesis(ctx)

	default:
		return fmt.Errorf("%w: loading snapshot: %w", ErrStoreFailure, err)
	}
}

// Append validates the block is the next block in the chain and adds it.
// The block is finalized on success. On failure the chain is unchanged.
func (c *Chain) Append(ctx context.Context, block *database.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		return ErrNotBootstrapped
	}

	if err := c.validateNext(c.blocks[len(c.blocks)-1], block); err != nil {
		return err
	}

	if c.store != nil {
		if err := c.store.WriteBlock(ctx, block.Record()); err != nil {
			return fmt.Errorf("%w: writing block %d: %w", ErrStoreFailure, block.Number(), err)
		}
	}

	block.Finalize()
	c.blocks = append(c.blocks, block)

	c.evHandler("chain: Append: blk[%d]: hash[%s]: txs[%d]", block.Number(), block.Hash(), len(block.Transactions()))

	return nil
}

// AppendRecord converts a stored record into a block and appends it.
func (c *Chain) AppendRecord(ctx context.Context, bd database.BlockData) error {
	block, err := database.ToBlock(bd, database.WithDigest(c.digest))
	if err != nil {
		return err
	}

	return c.Append(ctx, block)
}

// Persist writes the full block sequence to the snapshotter. Failures are
// returned to the caller and not retried.
func (c *Chain) Persist(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	records := c.Blocks()

	if err := c.snapshot.Save(ctx, records); err != nil {
		return fmt.Errorf("%w: saving snapshot: %w", ErrStoreFailure, err)
	}

	c.evHandler("chain: Persist: blocks[%d]", len(records))

	return nil
}

// =============================================================================

// CurrentHeight returns the height of the last block, -1 for an empty chain.
func (c *Chain) CurrentHeight() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks) - 1
}

// BlockAt returns the block at the specified height.
func (c *Chain) BlockAt(height uint64) (*database.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blockAt(height)
}

// LastBlock returns the block at the current height.
func (c *Chain) LastBlock() (*database.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.blocks) == 0 {
		return nil, ErrOutOfRange
	}

	return c.blocks[len(c.blocks)-1], nil
}

// GenesisBlock returns the block at height 0.
func (c *Chain) GenesisBlock() (*database.Block, error) {
	return c.BlockAt(0)
}

// GenesisHash returns the hash of the genesis block.
func (c *Chain) GenesisHash() (string, error) {
	block, err := c.GenesisBlock()
	if err != nil {
		return "", err
	}

	return block.Hash(), nil
}

// LastBlockHash returns the hash of the block at the current height.
func (c *Chain) LastBlockHash() (string, error) {
	block, err := c.LastBlock()
	if err != nil {
		return "", err
	}

	return block.Hash(), nil
}

// LastBlockTimeStamp returns the timestamp of the block at the current height.
func (c *Chain) LastBlockTimeStamp() (uint64, error) {
	block, err := c.LastBlock()
	if err != nil {
		return 0, err
	}

	return block.TimeStamp(), nil
}

// Blocks returns the records of every block in height order.
func (c *Chain) Blocks() []database.BlockData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := make([]database.BlockData, len(c.blocks))
	for i, block := range c.blocks {
		records[i] = block.Record()
	}

	return records
}

// BlocksSince returns the blocks with a timestamp at or after the specified
// timestamp in height order.
func (c *Chain) BlocksSince(timeStamp uint64) []*database.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var blocks []*database.Block
	for _, block := range c.blocks {
		if block.TimeStamp() >= timeStamp {
			blocks = append(blocks, block)
		}
	}

	return blocks
}

// Digest returns the digest provider used by the chain.
func (c *Chain) Digest() digest.Hasher {
	return c.digest
}

// =============================================================================

// LoadRange returns the records of the blocks between min and max inclusive.
// The range must be within the current height.
func (c *Chain) LoadRange(ctx context.Context, min uint64, max uint64) ([]database.BlockData, error) {
	height := c.CurrentHeight()
	if min > max || height < 0 || max > uint64(height) {
		return nil, fmt.Errorf("%w: range %d-%d, height %d", ErrOutOfRange, min, max, height)
	}

	if c.store == nil {
		records := c.Blocks()
		return records[min : max+1], nil
	}

	records, err := c.store.ReadBlocksByHeightRange(ctx, min, max)
	if err != nil {
		return nil, fmt.Errorf("%w: reading range %d-%d: %w", ErrStoreFailure, min, max, err)
	}

	return records, nil
}

// LoadBlocksByHash returns a lookup result for every specified hash. Hashes
// that are not a valid digest are reported as not found without consulting
// the store.
func (c *Chain) LoadBlocksByHash(ctx context.Context, hashes []string) ([]Lookup, error) {
	results := make([]Lookup, len(hashes))

	var query []string
	for i, hash := range hashes {
		results[i] = Lookup{Hash: hash}
		if len(hash) == c.digest.HexLength() {
			query = append(query, hash)
		}
	}

	if len(query) == 0 {
		return results, nil
	}

	var found []Lookup
	switch {
	case c.store == nil:
		found = c.lookupInMemory(query)

	default:
		var err error
		if found, err = c.store.ReadBlocksByHash(ctx, query); err != nil {
			return nil, fmt.Errorf("%w: reading by hash: %w", ErrStoreFailure, err)
		}
	}

	byHash := make(map[string]Lookup, len(found))
	for _, lookup := range found {
		if lookup.Found {
			byHash[lookup.Hash] = lookup
		}
	}

	for i := range results {
		if lookup, exists := byHash[results[i].Hash]; exists {
			results[i] = lookup
		}
	}

	return results, nil
}

// =============================================================================

// blockAt returns the block at the height. The caller must hold the lock.
func (c *Chain) blockAt(height uint64) (*database.Block, error) {
	if len(c.blocks) == 0 || height >= uint64(len(c.blocks)) {
		return nil, fmt.Errorf("%w: height %d, current %d", ErrOutOfRange, height, len(c.blocks)-1)
	}

	return c.blocks[height], nil
}

// lookupInMemory finds blocks by hash in the block sequence.
func (c *Chain) lookupInMemory(hashes []string) []Lookup {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byHash := make(map[string]*database.Block, len(c.blocks))
	for _, block := range c.blocks {
		byHash[block.Hash()] = block
	}

	results := make([]Lookup, len(hashes))
	for i, hash := range hashes {
		results[i] = Lookup{Hash: hash}
		if block, exists := byHash[hash]; exists {
			results[i].Found = true
			results[i].Block = block.Record()
		}
	}

	return results
}

// load replaces the block sequence with the validated snapshot records. The
// caller must hold the lock.
func (c *Chain) load(records []database.BlockData) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: snapshot has no blocks", database.ErrDecodeFailure)
	}

	blocks := make([]*database.Block, 0, len(records))
	for i, record := range records {
		block, err := database.ToBlock(record, database.WithDigest(c.digest))
		if err != nil {
			return fmt.Errorf("snapshot block %d: %w", i, err)
		}

		switch i {
		case 0:
			if err := c.validateGenesis(block); err != nil {
				return fmt.Errorf("snapshot block %d: %w", i, err)
			}

		default:
			if err := c.validateNext(blocks[i-1], block); err != nil {
				return fmt.Errorf("snapshot block %d: %w", i, err)
			}
		}

		block.Finalize()
		blocks = append(blocks, block)
	}

	c.blocks = blocks

	c.evHandler("chain: Bootstrap: loaded snapshot: height[%d]: last[%s]", len(blocks)-1, blocks[len(blocks)-1].Hash())

	return nil
}

// createGenesis synthesizes and persists the genesis block. The caller must
// hold the lock.
func (c *Chain) createGenesis(ctx context.Context) error {
	block, err := c.genesis.Block(database.WithDigest(c.digest))
	if err != nil {
		return err
	}
	block.Finalize()

	records := []database.BlockData{block.Record()}

	if c.store != nil {
		if err := c.store.WriteBlock(ctx, records[0]); err != nil {
			return fmt.Errorf("%w: writing genesis: %w", ErrStoreFailure, err)
		}
	}

	if err := c.snapshot.Save(ctx, records); err != nil {
		return fmt.Errorf("%w: saving genesis snapshot: %w", ErrStoreFailure, err)
	}

	c.blocks = []*database.Block{block}

	c.evHandler("chain: Bootstrap: created genesis: hash[%s]", block.Hash())

	return nil
}

// validateGenesis checks the first block of a loaded snapshot.
func (c *Chain) validateGenesis(block *database.Block) error {
	if block.Number() != 0 {
		return fmt.Errorf("%w: genesis number %d", ErrHeightConflict, block.Number())
	}

	if block.ParentHash() != genesis.ParentHash {
		return fmt.Errorf("%w: genesis parent %q", ErrInvalidParent, block.ParentHash())
	}

	if block.Hash() != block.HeaderHash() {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidHash, block.Hash(), block.HeaderHash())
	}

	return nil
}

// validateNext takes a block and validates it can follow the previous block.
func (c *Chain) validateNext(prev *database.Block, block *database.Block) error {
	nextNumber := prev.Number() + 1

	c.evHandler("chain: validate: blk[%d]: check: block number is the next number", block.Number())

	// The block is two or more ahead of ours which means the sender has
	// a chain we have not seen.
	if block.Number() >= nextNumber+1 {
		return fmt.Errorf("%w: %w: got %d, exp %d", ErrHeightConflict, ErrChainForked, block.Number(), nextNumber)
	}

	if block.Number() != nextNumber {
		return fmt.Errorf("%w: got %d, exp %d", ErrHeightConflict, block.Number(), nextNumber)
	}

	if !c.skipParent {
		c.evHandler("chain: validate: blk[%d]: check: parent hash does match parent block", block.Number())

		if block.ParentHash() != prev.Hash() {
			return fmt.Errorf("%w: got %s, exp %s", ErrInvalidParent, block.ParentHash(), prev.Hash())
		}
	}

	c.evHandler("chain: validate: blk[%d]: check: block's timestamp is not before parent block's timestamp", block.Number())

	if block.TimeStamp() < prev.TimeStamp() {
		return fmt.Errorf("%w: parent %d, block %d", ErrInvalidTimestamp, prev.TimeStamp(), block.TimeStamp())
	}

	c.evHandler("chain: validate: blk[%d]: check: block hash matches header", block.Number())

	if hash := block.HeaderHash(); block.Hash() != hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidHash, block.Hash(), hash)
	}

	return nil
}
