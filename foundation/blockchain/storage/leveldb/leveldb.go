// Package leveldb implements the chain store behavior on top of a LevelDB
// database. Blocks are kept by hash with a secondary index by number.
package leveldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/txchain/foundation/blockchain/chain"
	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key prefixes for the two tables kept in the database.
var (
	hashPrefix   = []byte("h") // h + hash -> encoded block record
	numberPrefix = []byte("n") // n + big endian number -> hash
)

// DefaultCacheSize is the number of decoded blocks kept in memory.
const DefaultCacheSize = 256

// LevelDB represents the store implementation for reading and storing blocks
// in a LevelDB database. This implements the chain.Store interface.
type LevelDB struct {
	db    *leveldb.DB
	cache *lru.Cache
}

// New opens or creates the database at the specified path.
func New(dbPath string, cacheSize int) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb %q: %w", dbPath, err)
	}

	return newLevelDB(db, cacheSize)
}

// NewMemory constructs a store backed by an in memory LevelDB storage.
func NewMemory(cacheSize int) (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}

	return newLevelDB(db, cacheSize)
}

func newLevelDB(db *leveldb.DB, cacheSize int) (*LevelDB, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &LevelDB{db: db, cache: cache}, nil
}

// Close releases the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// WriteBlock stores the block record and indexes it by number in a single
// batch.
func (l *LevelDB) WriteBlock(ctx context.Context, block database.BlockData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encoding block %d: %w", block.Number, err)
	}

	batch := new(leveldb.Batch)
	batch.Put(hashKey(block.Hash), data)
	batch.Put(numberKey(block.Number), []byte(block.Hash))

	if err := l.db.Write(batch, nil); err != nil {
		return err
	}

	l.cache.Add(block.Hash, block)

	return nil
}

// ReadBlocksByHash returns a lookup result for every specified hash.
func (l *LevelDB) ReadBlocksByHash(ctx context.Context, hashes []string) ([]chain.Lookup, error) {
	results := make([]chain.Lookup, len(hashes))
	for i, hash := range hashes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results[i] = chain.Lookup{Hash: hash}

		block, err := l.readByHash(hash)
		switch {
		case err == nil:
			results[i].Found = true
			results[i].Block = block

		case errors.Is(err, chain.ErrNotFound):

		default:
			return nil, err
		}
	}

	return results, nil
}

// ReadBlocksByHeightRange returns the blocks between min and max inclusive.
// chain.ErrNotFound is returned if any block in the range is missing.
func (l *LevelDB) ReadBlocksByHeightRange(ctx context.Context, min uint64, max uint64) ([]database.BlockData, error) {
	if min > max {
		return nil, fmt.Errorf("invalid range %d-%d", min, max)
	}

	iter := l.db.NewIterator(&util.Range{Start: numberKey(min), Limit: numberKey(max + 1)}, nil)
	defer iter.Release()

	blocks := make([]database.BlockData, 0, max-min+1)
	expect := min
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		number := binary.BigEndian.Uint64(iter.Key()[len(numberPrefix):])
		if number != expect {
			return nil, fmt.Errorf("block %d: %w", expect, chain.ErrNotFound)
		}

		block, err := l.readByHash(string(iter.Value()))
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", number, err)
		}

		blocks = append(blocks, block)
		expect++
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	if uint64(len(blocks)) != max-min+1 {
		return nil, fmt.Errorf("block %d: %w", expect, chain.ErrNotFound)
	}

	return blocks, nil
}

// =============================================================================

// readByHash reads a block through the cache.
func (l *LevelDB) readByHash(hash string) (database.BlockData, error) {
	if v, exists := l.cache.Get(hash); exists {
		return copyRecord(v.(database.BlockData)), nil
	}

	data, err := l.db.Get(hashKey(hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.BlockData{}, chain.ErrNotFound
		}
		return database.BlockData{}, err
	}

	var block database.BlockData
	if err := json.Unmarshal(data, &block); err != nil {
		return database.BlockData{}, fmt.Errorf("%w: block %s: %s", database.ErrDecodeFailure, hash, err)
	}

	l.cache.Add(hash, block)

	return copyRecord(block), nil
}

func hashKey(hash string) []byte {
	return append(append([]byte(nil), hashPrefix...), hash...)
}

func numberKey(number uint64) []byte {
	key := make([]byte, len(numberPrefix)+8)
	copy(key, numberPrefix)
	binary.BigEndian.PutUint64(key[len(numberPrefix):], number)
	return key
}

func copyRecord(block database.BlockData) database.BlockData {
	block.Transactions = block.Body()
	return block
}
