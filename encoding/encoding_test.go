package encoding

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pombredanne/bao"
	"github.com/pombredanne/bao/internal/errs"
)

func randomInput(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	r.Read(buf)
	return buf
}

var roundTripSizes = []int{0, 1, 4095, 4096, 4097, 8192, 8193, 1 << 16, 1<<16 + 1}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, n := range roundTripSizes {
		input := randomInput(n, int64(n))
		encoded, root := Encode(input)
		require.Equal(t, bao.Hash(input), root)

		dec := NewDecoder(NewBytesReader(encoded), root)
		out, err := ReadAll(dec)
		require.NoError(t, err)
		require.True(t, bytes.Equal(input, out))
	}
}

func TestEncodeOutboardDecodeRoundTrip(t *testing.T) {
	for _, n := range roundTripSizes {
		input := randomInput(n, int64(n)+1)
		encoded, root := EncodeOutboard(input)
		require.Equal(t, bao.Hash(input), root)

		dec := NewOutboardDecoder(NewBytesReader(encoded), NewBytesReader(input), root)
		out, err := ReadAll(dec)
		require.NoError(t, err)
		require.True(t, bytes.Equal(input, out))
	}
}

func TestDecodeDetectsBitFlip(t *testing.T) {
	input := randomInput(1<<16+17, 7)
	encoded, root := Encode(input)
	encoded[bao.HeaderSize+100] ^= 0x01

	dec := NewDecoder(NewBytesReader(encoded), root)
	_, err := ReadAll(dec)
	require.Error(t, err)
}

func TestDecodeDetectsWrongRoot(t *testing.T) {
	input := randomInput(4096*3, 8)
	encoded, root := Encode(input)
	root[0] ^= 0xFF

	dec := NewDecoder(NewBytesReader(encoded), root)
	_, err := ReadAll(dec)
	require.Error(t, err)
}

func TestDecoderPoisonsAfterError(t *testing.T) {
	input := randomInput(4096*3, 9)
	encoded, root := Encode(input)
	encoded[bao.HeaderSize] ^= 0x01

	dec := NewDecoder(NewBytesReader(encoded), root)
	_, err1 := dec.Read(make([]byte, 16))
	require.Error(t, err1)
	_, err2 := dec.Read(make([]byte, 16))
	require.Equal(t, err1, err2)
}

func TestSeekingDecoderMatchesStreaming(t *testing.T) {
	input := randomInput(1<<18+123, 10)
	encoded, root := Encode(input)

	offsets := []uint64{0, 1, 4095, 4096, 4097, uint64(len(input)) / 2, uint64(len(input)) - 1, uint64(len(input))}
	for _, off := range offsets {
		dec := NewSeekingDecoder(NewBytesReader(encoded), root)
		require.NoError(t, dec.SeekTo(off))
		n := 32
		if remaining := uint64(len(input)) - off; remaining < uint64(n) {
			n = int(remaining)
		}
		buf := make([]byte, n)
		if n > 0 {
			read, err := io.ReadFull(dec, buf)
			require.NoError(t, err)
			require.Equal(t, n, read)
			require.Equal(t, input[off:off+uint64(n)], buf)
		}
	}
}

func TestOutboardSeekingDecoderMatchesStreaming(t *testing.T) {
	input := randomInput(16385, 17)
	encoded, root := EncodeOutboard(input)

	offsets := []uint64{0, 1, 4095, 4096, 4097, 8192, 12288, uint64(len(input)) - 1, uint64(len(input))}
	for _, off := range offsets {
		dec := NewOutboardSeekingDecoder(NewBytesReader(encoded), NewBytesReader(input), root)
		require.NoError(t, dec.SeekTo(off), "offset %d", off)
		n := 32
		if remaining := uint64(len(input)) - off; remaining < uint64(n) {
			n = int(remaining)
		}
		buf := make([]byte, n)
		if n > 0 {
			read, err := io.ReadFull(dec, buf)
			require.NoError(t, err, "offset %d", off)
			require.Equal(t, n, read, "offset %d", off)
			require.Equal(t, input[off:off+uint64(n)], buf, "offset %d", off)
		}
	}
}

func TestSeekingDecoderZeroLengthAtEndStillVerifiesRoot(t *testing.T) {
	input := randomInput(4096*5+1, 11)
	encoded, root := Encode(input)
	root[0] ^= 0xFF

	dec := NewSeekingDecoder(NewBytesReader(encoded), root)
	err := dec.SeekTo(uint64(len(input)))
	require.Error(t, err)
}

func TestSeekingDecoderRejectsSeekPastEnd(t *testing.T) {
	input := randomInput(4096*2, 12)
	encoded, root := Encode(input)

	dec := NewSeekingDecoder(NewBytesReader(encoded), root)
	err := dec.SeekTo(uint64(len(input)) + 1)
	require.ErrorIs(t, err, errs.InvalidRange)
}

func TestExtractDecodeSliceRoundTrip(t *testing.T) {
	input := randomInput(1<<18+99, 13)
	encoded, root := Encode(input)

	cases := []struct{ offset, length uint64 }{
		{0, 10},
		{0, uint64(len(input))},
		{4096, 1},
		{4095, 2},
		{uint64(len(input)) - 1, 1},
		{uint64(len(input)), 0},
		{100, 0},
	}
	for _, c := range cases {
		slice, err := Extract(NewBytesReader(encoded), c.offset, c.length)
		require.NoError(t, err)

		out, err := DecodeSlice(slice, root, c.offset, c.length)
		require.NoError(t, err)
		require.Equal(t, input[c.offset:c.offset+c.length], out)
	}
}

func TestExtractRejectsInvalidRange(t *testing.T) {
	input := randomInput(4096*4, 14)
	encoded, root := Encode(input)
	_ = root

	_, err := Extract(NewBytesReader(encoded), uint64(len(input))+1, 0)
	require.ErrorIs(t, err, errs.InvalidRange)

	_, err = Extract(NewBytesReader(encoded), 0, uint64(len(input))+1)
	require.ErrorIs(t, err, errs.InvalidRange)
}

func TestDecodeSliceDetectsTamperedSlice(t *testing.T) {
	input := randomInput(1<<17+5, 15)
	encoded, root := Encode(input)

	slice, err := Extract(NewBytesReader(encoded), 0, uint64(len(input)))
	require.NoError(t, err)
	slice[bao.HeaderSize+1] ^= 0x01

	_, err = DecodeSlice(slice, root, 0, uint64(len(input)))
	require.Error(t, err)
}

func TestExtractSingleChunkInput(t *testing.T) {
	input := randomInput(100, 16)
	encoded, root := Encode(input)

	slice, err := Extract(NewBytesReader(encoded), 10, 20)
	require.NoError(t, err)
	out, err := DecodeSlice(slice, root, 10, 20)
	require.NoError(t, err)
	require.Equal(t, input[10:30], out)
}

// TestScenarioS4 extracts the specification's worked-example slice:
// offset 4096, length 1, out of an 8193-byte all-zero input.
func TestScenarioS4(t *testing.T) {
	input := make([]byte, 8193)
	encoded, root := Encode(input)

	slice, err := Extract(NewBytesReader(encoded), 4096, 1)
	require.NoError(t, err)

	out, err := DecodeSlice(slice, root, 4096, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0}, out)
}

// TestScenarioS5 flips the last byte of the specification's worked
// example and checks that a full decode_slice fails on the final chunk,
// per the spec's S5 scenario.
func TestScenarioS5(t *testing.T) {
	input := make([]byte, 8193)
	encoded, root := Encode(input)
	encoded[len(encoded)-1] ^= 0x01

	slice, err := Extract(NewBytesReader(encoded), 0, 8193)
	require.NoError(t, err)

	_, err = DecodeSlice(slice, root, 0, 8193)
	require.Error(t, err)
}

// TestScenarioS6 appends trailing garbage after a valid encoding and
// checks decoding is unaffected, per the spec's S6 scenario.
func TestScenarioS6(t *testing.T) {
	input := make([]byte, 8193)
	encoded, root := Encode(input)
	encoded = append(encoded, randomInput(1<<20, 42)...)

	dec := NewDecoder(NewBytesReader(encoded), root)
	out, err := ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, input, out)
}

func TestEmptyInputRoundTrip(t *testing.T) {
	encoded, root := Encode(nil)
	dec := NewDecoder(NewBytesReader(encoded), root)
	out, err := ReadAll(dec)
	require.NoError(t, err)
	require.Empty(t, out)

	slice, err := Extract(NewBytesReader(encoded), 0, 0)
	require.NoError(t, err)
	sliceOut, err := DecodeSlice(slice, root, 0, 0)
	require.NoError(t, err)
	require.Empty(t, sliceOut)
}
