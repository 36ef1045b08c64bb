package main

import (
	"encoding/hex"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pombredanne/bao/blake2b"
	"github.com/pombredanne/bao/encoding"
)

var (
	decodeRoot     string
	decodeOutboard bool
)

func parseRoot(hexRoot string) ([blake2b.Size]byte, error) {
	var root [blake2b.Size]byte
	b, err := hex.DecodeString(hexRoot)
	if err != nil {
		return root, errors.Wrap(err, "parse --root")
	}
	if len(b) != blake2b.Size {
		return root, errors.Errorf("--root must be %d bytes, got %d", blake2b.Size, len(b))
	}
	copy(root[:], b)
	return root, nil
}

// DecodeCmd is the cobra command that corresponds to the decode subcommand.
var DecodeCmd = &cobra.Command{
	Use:   "decode <encoded> [content] <outfile>",
	Short: "`decode` verifies and writes the plaintext of an encoding",
	Long:  "`decode` verifies and writes the plaintext of an encoding. With --outboard, a content file with the chunk bytes must be given between the encoded file and the output file.",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := parseRoot(decodeRoot)
		if err != nil {
			return err
		}

		if decodeOutboard {
			if len(args) != 3 {
				return errors.New("decode --outboard requires <encoded> <content> <outfile>")
			}
			encodedFile, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open encoded file")
			}
			defer encodedFile.Close()
			contentFile, err := os.Open(args[1])
			if err != nil {
				return errors.Wrap(err, "open content file")
			}
			defer contentFile.Close()

			dec := encoding.NewOutboardDecoder(
				encoding.NewReader(encodedFile),
				encoding.NewReader(contentFile),
				root,
			)
			out, err := encoding.ReadAll(dec)
			if err != nil {
				return errors.Wrap(err, "decode")
			}
			return errors.Wrap(os.WriteFile(args[2], out, 0o644), "write output")
		}

		if len(args) != 2 {
			return errors.New("decode requires <encoded> <outfile>")
		}
		encodedFile, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "open encoded file")
		}
		defer encodedFile.Close()

		dec := encoding.NewDecoder(encoding.NewReader(encodedFile), root)
		out, err := encoding.ReadAll(dec)
		if err != nil {
			return errors.Wrap(err, "decode")
		}
		return errors.Wrap(os.WriteFile(args[1], out, 0o644), "write output")
	},
}
