package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/txchain/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Block(t *testing.T) {
	t.Log("Given the need to synthesize a genesis block.")
	{
		b, err := genesis.Default().Block()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the genesis block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to construct the genesis block.", success)

		if b.Number() != 0 || b.ParentHash() != genesis.ParentHash {
			t.Fatalf("\t%s\tShould have number 0 and the sentinel parent, got %d %s.", failed, b.Number(), b.ParentHash())
		}
		t.Logf("\t%s\tShould have number 0 and the sentinel parent.", success)

		if len(b.Transactions()) != 0 {
			t.Fatalf("\t%s\tShould have no transactions.", failed)
		}
		t.Logf("\t%s\tShould have no transactions.", success)

		again, _ := genesis.Default().Block()
		if again.Hash() != b.Hash() || b.Hash() != b.HeaderHash() {
			t.Fatalf("\t%s\tShould produce a stable hash.", failed)
		}
		t.Logf("\t%s\tShould produce a stable hash.", success)
	}
}

func Test_Load(t *testing.T) {
	t.Log("Given the need to load genesis settings from a file.")
	{
		path := filepath.Join(t.TempDir(), "genesis.json")
		if err := os.WriteFile(path, []byte(`{"beneficiary":"miner1","extra_data":"cafe"}`), 0600); err != nil {
			t.Fatalf("\t%s\tShould be able to write the genesis file: %v", failed, err)
		}

		g, err := genesis.Load(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the genesis file: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to load the genesis file.", success)

		if g.Beneficiary != "miner1" || g.ExtraData != "cafe" {
			t.Fatalf("\t%s\tShould take the values from the file, got %+v.", failed, g)
		}
		t.Logf("\t%s\tShould take the values from the file.", success)

		if g.TimeStamp != genesis.Default().TimeStamp || g.Digest != genesis.Default().Digest {
			t.Fatalf("\t%s\tShould default the missing values, got %+v.", failed, g)
		}
		t.Logf("\t%s\tShould default the missing values.", success)

		if _, err := genesis.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
			t.Fatalf("\t%s\tShould fail on a missing file.", failed)
		}
		t.Logf("\t%s\tShould fail on a missing file.", success)
	}
}
