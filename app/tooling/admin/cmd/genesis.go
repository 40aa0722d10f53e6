package cmd

import (
	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	"github.com/ardanlabs/txchain/foundation/blockchain/digest"
	"github.com/ardanlabs/txchain/foundation/blockchain/genesis"
	"github.com/spf13/cobra"
)

func genesisCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Print the genesis block record",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := genesis.Default()
			if path != "" {
				var err error
				if gen, err = genesis.Load(path); err != nil {
					return err
				}
			}

			hasher, err := digest.New(gen.Digest)
			if err != nil {
				return err
			}

			block, err := gen.Block(database.WithDigest(hasher))
			if err != nil {
				return err
			}

			return printJSON(cmd, block.Record())
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "Path to a genesis file overriding the defaults.")

	return cmd
}
