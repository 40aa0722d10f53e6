package chain

import (
	"context"
	"errors"

	"github.com/ardanlabs/txchain/foundation/blockchain/database"
)

// ErrNoSnapshot is returned by a Snapshotter when no chain has been
// persisted yet.
var ErrNoSnapshot = errors.New("no snapshot")

// ErrNotFound is returned by a Store when a block does not exist.
var ErrNotFound = errors.New("block not found")

// Snapshotter represents the behavior required to persist and restore the
// full block sequence of a chain.
type Snapshotter interface {
	Load(ctx context.Context) ([]database.BlockData, error)
	Save(ctx context.Context, blocks []database.BlockData) error
}

// Store represents the behavior required by the key/value store used for
// historical block lookup.
type Store interface {
	WriteBlock(ctx context.Context, block database.BlockData) error
	ReadBlocksByHash(ctx context.Context, hashes []string) ([]Lookup, error)
	ReadBlocksByHeightRange(ctx context.Context, min uint64, max uint64) ([]database.BlockData, error)
}

// Lookup is the result of reading a single block by hash.
type Lookup struct {
	Hash  string             `json:"hash"`
	Found bool               `json:"found"`
	Block database.BlockData `json:"block"`
}
