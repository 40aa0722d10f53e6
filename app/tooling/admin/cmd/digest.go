package cmd

import (
	"fmt"
	"strings"

	"github.com/ardanlabs/txchain/foundation/blockchain/digest"
	"github.com/spf13/cobra"
)

func digestCmd() *cobra.Command {
	var (
		algo string
		list bool
	)

	cmd := &cobra.Command{
		Use:   "digest [input...]",
		Short: "Hash the input with a named algorithm",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(digest.Supported(), "\n"))
				return nil
			}

			hasher, err := digest.New(algo)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hasher.HexDigest([]byte(strings.Join(args, " "))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&algo, "algo", "a", digest.Default, "Digest algorithm to use.")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List the supported algorithms.")

	return cmd
}
