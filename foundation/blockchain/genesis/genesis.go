// Package genesis maintains access to the genesis settings used to
// synthesize the first block of a chain.
package genesis

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ardanlabs/txchain/foundation/blockchain/database"
)

// ParentHash is the sentinel parent of the genesis block. It can never match
// a real digest since it's not hex.
const ParentHash = "Genesis"

// Genesis represents the genesis file.
type Genesis struct {
	TimeStamp   uint64 `json:"timestamp"`   // Fixed time of the genesis block.
	ExtraData   string `json:"extra_data"`  // Hex encoded free form data.
	Beneficiary string `json:"beneficiary"` // Identity recorded on the genesis block.
	Digest      string `json:"digest"`      // Hash algorithm used for the chain.
}

// Default returns the genesis settings used when no file is provided.
func Default() Genesis {
	return Genesis{
		TimeStamp:   1530297308,
		ExtraData:   hex.EncodeToString([]byte("txchain genesis")),
		Beneficiary: "txchain-miner",
		Digest:      "keccak256",
	}
}

// Load opens and consumes the genesis file. Missing values are taken from
// the default settings.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file %q: %w", path, err)
	}

	return genesis, nil
}

// Block synthesizes the genesis block. The number is 0, the roots and nonce
// are empty and there are no transactions.
func (g Genesis) Block(options ...func(b *database.Block)) (*database.Block, error) {
	cfg := database.BlockConfig{
		Number:       0,
		TimeStamp:    g.TimeStamp,
		ParentHash:   ParentHash,
		ExtraData:    g.ExtraData,
		Beneficiary:  g.Beneficiary,
		Transactions: []database.Tx{},
	}

	block, err := database.NewBlock(cfg, options...)
	if err != nil {
		return nil, fmt.Errorf("genesis block: %w", err)
	}

	return block, nil
}
