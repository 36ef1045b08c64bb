// Command bao hashes, encodes and decodes files using bao's verified tree
// hash and streaming encoding.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// RootCmd is the main command for the 'bao' binary.
var RootCmd = &cobra.Command{
	Use:   "bao",
	Short: "`bao` hashes and encodes files with a verified tree hash",
	Long:  "`bao` hashes and encodes files with a verified tree hash",
}

func init() {
	RootCmd.AddCommand(HashCmd)
	RootCmd.AddCommand(EncodeCmd)
	RootCmd.AddCommand(DecodeCmd)
	RootCmd.AddCommand(SliceCmd)
	RootCmd.AddCommand(DecodeSliceCmd)

	EncodeCmd.Flags().BoolVar(&encodeOutboard, "outboard", false, "write an outboard encoding instead of combined")

	DecodeCmd.Flags().StringVar(&decodeRoot, "root", "", "hex-encoded 32-byte root hash to verify against (required)")
	DecodeCmd.Flags().BoolVar(&decodeOutboard, "outboard", false, "read an outboard encoding, with content from a second file")
	_ = DecodeCmd.MarkFlagRequired("root")

	SliceCmd.Flags().Uint64Var(&sliceOffset, "offset", 0, "plaintext byte offset to start the slice at")
	SliceCmd.Flags().Uint64Var(&sliceLength, "length", 0, "number of plaintext bytes the slice covers")

	DecodeSliceCmd.Flags().StringVar(&decodeSliceRoot, "root", "", "hex-encoded 32-byte root hash to verify against (required)")
	DecodeSliceCmd.Flags().Uint64Var(&decodeSliceOffset, "offset", 0, "plaintext byte offset the slice starts at")
	DecodeSliceCmd.Flags().Uint64Var(&decodeSliceLength, "length", 0, "number of plaintext bytes the slice covers")
	_ = DecodeSliceCmd.MarkFlagRequired("root")
}
