package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pombredanne/bao/encoding"
)

var encodeOutboard bool

// EncodeCmd is the cobra command that corresponds to the encode subcommand.
var EncodeCmd = &cobra.Command{
	Use:   "encode <infile> <outfile>",
	Short: "`encode` writes a verified streaming encoding of a file",
	Long:  "`encode` writes a verified streaming encoding of a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		buf, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "read input")
		}

		var encoded []byte
		var root [32]byte
		if encodeOutboard {
			encoded, root = encoding.EncodeOutboard(buf)
		} else {
			encoded, root = encoding.Encode(buf)
		}

		if err := os.WriteFile(args[1], encoded, 0o644); err != nil {
			return errors.Wrap(err, "write output")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%x\n", root)
		return nil
	},
}
