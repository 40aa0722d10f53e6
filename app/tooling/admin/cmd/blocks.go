package cmd

import (
	"fmt"

	"github.com/ardanlabs/txchain/foundation/blockchain/storage/file"
	"github.com/spf13/cobra"
)

func blocksCmd() *cobra.Command {
	var (
		path    string
		from    uint64
		to      int64
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "List the blocks in a chain snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := file.New(path)
			if err != nil {
				return err
			}

			blocks, err := snap.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading snapshot %q: %w", path, err)
			}

			if len(blocks) == 0 {
				return nil
			}

			last := uint64(len(blocks)) - 1
			if to >= 0 && uint64(to) < last {
				last = uint64(to)
			}

			out := cmd.OutOrStdout()
			for _, block := range blocks {
				if block.Number < from || block.Number > last {
					continue
				}

				if verbose {
					if err := printJSON(cmd, block); err != nil {
						return err
					}
					continue
				}

				fmt.Fprintf(out, "Number: %d  Hash: %s  Parent: %s  Txs: %d\n",
					block.Number, block.Hash, block.ParentHash, len(block.Transactions))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "snapshot", "s", "zblock/chain.json", "Path to the chain snapshot.")
	cmd.Flags().Uint64Var(&from, "from", 0, "First block number to list.")
	cmd.Flags().Int64Var(&to, "to", -1, "Last block number to list, -1 for the last block.")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the full record of each block.")

	return cmd
}
