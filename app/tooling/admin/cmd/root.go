// Package cmd contains the admin commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewRoot constructs the root command with every admin command attached.
// Output is written to the specified writer.
func NewRoot(build string, out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Administrative tasks for the ledger",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.AddCommand(
		genesisCmd(),
		blocksCmd(),
		digestCmd(),
		txCmd(),
	)

	return rootCmd
}

// Execute runs the admin command line.
func Execute(build string, out io.Writer) error {
	return NewRoot(build, out).Execute()
}

// printJSON writes the value as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
