package cmd

import (
	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	"github.com/ardanlabs/txchain/foundation/blockchain/digest"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func txCmd() *cobra.Command {
	var (
		id    string
		from  string
		to    string
		value uint64
		data  string
		algo  string
	)

	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Build a transaction with its content hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			hasher, err := digest.New(algo)
			if err != nil {
				return err
			}

			if id == "" {
				id = uuid.NewString()
			}

			tx, err := database.NewTx(id, from, to, value, data, hasher)
			if err != nil {
				return err
			}

			return printJSON(cmd, tx)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Transaction id, a new uuid when empty.")
	cmd.Flags().StringVar(&from, "from", "", "Sending identity.")
	cmd.Flags().StringVar(&to, "to", "", "Receiving identity.")
	cmd.Flags().Uint64Var(&value, "value", 0, "Value to transfer.")
	cmd.Flags().StringVar(&data, "data", "", "Free form data.")
	cmd.Flags().StringVarP(&algo, "algo", "a", digest.Default, "Digest algorithm to use.")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}
