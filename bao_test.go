package bao

import (
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pombredanne/bao/blake2b"
)

// boundarySizes are the byte counts §8 of the specification calls out
// explicitly: the chunk boundary (4096), its neighbors, and one level up
// the tree (8192, 16384).
var boundarySizes = []int{0, 1, 4095, 4096, 4097, 8191, 8192, 8193, 16384, 16385}

func TestHashDeterministic(t *testing.T) {
	for _, n := range boundarySizes {
		buf := make([]byte, n)
		rand.New(rand.NewSource(int64(n))).Read(buf)
		require.Equal(t, Hash(buf), Hash(buf), "size %d", n)
	}
}

func TestHashSequentialParallelAgreement(t *testing.T) {
	sizes := append([]int{}, boundarySizes...)
	sizes = append(sizes, 1<<20+17) // cross the parallel threshold
	for _, n := range sizes {
		buf := make([]byte, n)
		rand.New(rand.NewSource(int64(n) + 1)).Read(buf)
		require.Equal(t, Hash(buf), HashParallel(buf), "size %d", n)
	}
}

func TestHashEmptyInput(t *testing.T) {
	sum := Hash(nil)
	require.Len(t, sum, 32)
	require.Equal(t, Hash([]byte{}), sum)
}

func TestHasherWriteInPieces(t *testing.T) {
	buf := make([]byte, 16385)
	rand.New(rand.NewSource(99)).Read(buf)
	whole := Hash(buf)

	h := NewHasher()
	for _, piece := range splitRandomly(buf, 37) {
		_, err := h.Write(piece)
		require.NoError(t, err)
	}
	sum, err := h.Sum()
	require.NoError(t, err)
	require.Equal(t, whole, sum)
}

func TestHasherRejectsWriteAfterSum(t *testing.T) {
	h := NewHasher()
	_, err := h.Sum()
	require.NoError(t, err)
	_, err = h.Write([]byte("x"))
	require.Error(t, err)
	_, err = h.Sum()
	require.Error(t, err)
}

// TestScenarioS1 checks the worked example from the specification: 8193
// zero bytes, and the chaining values at each level of the tree.
func TestScenarioS1(t *testing.T) {
	buf := make([]byte, 8193)
	root := Hash(buf)
	want, err := hex.DecodeString("bed2e488d2644ce514036824dd5486c0ad16bd1d4b9ee8e9940f810d8c40284e")
	require.NoError(t, err)
	require.Equal(t, want, root[:])

	bigChunk, err := blake2b.HashChunk(buf[:ChunkSize], false, 0)
	require.NoError(t, err)
	require.Equal(t, "7fbd4a4dce97d0ed509a76448227aac527cb31e20d03096ea360f974b53d8808", hex.EncodeToString(bigChunk[:]))
	smallChunk, err := blake2b.HashChunk(buf[:1], false, 0)
	require.NoError(t, err)
	require.Equal(t, "f330e9ad408a5f3ff2842b45948730c91a3f4d81f98526400ea7e9ba877dcdb3", hex.EncodeToString(smallChunk[:]))
	var parent [ParentSize]byte
	copy(parent[:HashSize], bigChunk[:])
	copy(parent[HashSize:], bigChunk[:])
	leftParent := blake2b.HashParent(parent, false, 0)
	require.Equal(t, "1926c3048e0391cdac5a0b116bd63e03a307e2c10d745b25d24c558e8be2bec9", hex.EncodeToString(leftParent[:]))
}

// TestScenarioS3 checks that a single exactly-4096-byte chunk hashes as a
// root chunk, not as a parent with an empty sibling.
func TestScenarioS3(t *testing.T) {
	buf := make([]byte, 4096)
	root, err := blake2b.HashChunk(buf, true, 4096)
	require.NoError(t, err)
	h := NewHasher()
	_, _ = h.Write(buf)
	sum, err := h.Sum()
	require.NoError(t, err)
	require.Equal(t, root, sum)
	require.Equal(t, root, Hash(buf))
}

func splitRandomly(buf []byte, seed int64) [][]byte {
	r := rand.New(rand.NewSource(seed))
	var pieces [][]byte
	for len(buf) > 0 {
		n := 1 + r.Intn(len(buf))
		pieces = append(pieces, buf[:n])
		buf = buf[n:]
	}
	return pieces
}
