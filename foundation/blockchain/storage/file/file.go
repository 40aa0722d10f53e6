// Package file implements the chain snapshot behavior using a single JSON
// file on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ardanlabs/txchain/foundation/blockchain/chain"
	"github.com/ardanlabs/txchain/foundation/blockchain/database"
)

// File represents the snapshot implementation for reading and storing the
// full chain in one file. This implements the chain.Snapshotter interface.
type File struct {
	mu       sync.Mutex
	filePath string
}

// New constructs a File value for use. The directory for the file is
// created if it doesn't exist.
func New(filePath string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}

	return &File{filePath: filePath}, nil
}

// Path returns the location of the snapshot file.
func (f *File) Path() string {
	return f.filePath
}

// Load reads and decodes the snapshot file. chain.ErrNoSnapshot is returned
// when the file doesn't exist.
func (f *File) Load(ctx context.Context) ([]database.BlockData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, chain.ErrNoSnapshot
		}
		return nil, err
	}

	var blocks []database.BlockData
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("%w: snapshot %q: %s", database.ErrDecodeFailure, f.filePath, err)
	}

	return blocks, nil
}

// Save writes the blocks to a temporary file and then renames it over the
// snapshot so a failed write never leaves a partial snapshot behind.
func (f *File) Save(ctx context.Context, blocks []database.BlockData) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	// Marshal the blocks for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.filePath), filepath.Base(f.filePath)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.filePath)
}

// Reset removes the snapshot file.
func (f *File) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}
