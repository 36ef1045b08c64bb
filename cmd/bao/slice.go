package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pombredanne/bao/encoding"
)

var (
	sliceOffset uint64
	sliceLength uint64

	decodeSliceRoot   string
	decodeSliceOffset uint64
	decodeSliceLength uint64
)

// SliceCmd is the cobra command that corresponds to the slice subcommand.
var SliceCmd = &cobra.Command{
	Use:   "slice <encoded> <outfile>",
	Short: "`slice` extracts the minimal substream authenticating a byte range",
	Long:  "`slice` extracts the minimal substream authenticating a byte range",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		encodedFile, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "open encoded file")
		}
		defer encodedFile.Close()

		slice, err := encoding.Extract(encoding.NewSeekableReader(encodedFile), sliceOffset, sliceLength)
		if err != nil {
			return errors.Wrap(err, "extract slice")
		}
		return errors.Wrap(os.WriteFile(args[1], slice, 0o644), "write output")
	},
}

// DecodeSliceCmd is the cobra command that corresponds to the decode-slice
// subcommand.
var DecodeSliceCmd = &cobra.Command{
	Use:   "decode-slice <slice> <outfile>",
	Short: "`decode-slice` verifies a slice and writes its plaintext range",
	Long:  "`decode-slice` verifies a slice and writes its plaintext range",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := parseRoot(decodeSliceRoot)
		if err != nil {
			return err
		}
		slice, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "read slice")
		}
		out, err := encoding.DecodeSlice(slice, root, decodeSliceOffset, decodeSliceLength)
		if err != nil {
			return errors.Wrap(err, "decode slice")
		}
		return errors.Wrap(os.WriteFile(args[1], out, 0o644), "write output")
	},
}
