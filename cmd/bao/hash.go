package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pombredanne/bao"
)

// HashCmd is the cobra command that corresponds to the hash subcommand.
var HashCmd = &cobra.Command{
	Use:   "hash [file]",
	Short: "`hash` prints the tree hash of a file, or of stdin if none is given",
	Long:  "`hash` prints the tree hash of a file, or of stdin if none is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var buf []byte
		var err error
		if len(args) == 1 {
			buf, err = os.ReadFile(args[0])
		} else {
			buf, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return errors.Wrap(err, "read input")
		}
		sum := bao.HashParallel(buf)
		fmt.Fprintf(cmd.OutOrStdout(), "%x\n", sum)
		return nil
	},
}
