package bao

// ChunkSize is the maximum number of input bytes covered by one leaf node.
const ChunkSize = 4096

// HashSize is the width in bytes of a chaining value, a root hash, and
// each child reference inside a parent node.
const HashSize = 32

// ParentSize is the width in bytes of a parent node: two concatenated
// child hashes.
const ParentSize = 2 * HashSize

// HeaderSize is the width in bytes of the little-endian input-length
// prefix that opens every encoding.
const HeaderSize = 8

// MaxDepth bounds the height of the tree for any input up to 2^64 bytes:
// ceil(log2(2^64 / ChunkSize)).
const MaxDepth = 52

// LeftSubtreeLen returns the number of bytes covered by the left child of
// a subtree spanning n bytes, where n > ChunkSize: the largest multiple of
// ChunkSize that is both a power of two and strictly less than n. This is
// the one piece of layout math the encoder, decoder and slice extractor
// all share, so it is exported for the encoding package to reuse.
func LeftSubtreeLen(n uint64) uint64 {
	// Largest k such that ChunkSize*2^k < n, i.e. the full chunks minus one,
	// rounded down to a power of two.
	chunks := (n - 1) / ChunkSize
	k := uint(0)
	for (uint64(1) << (k + 1)) <= chunks {
		k++
	}
	return ChunkSize << k
}

// CountChunks returns the number of chunks a subtree of n bytes is made
// of: ceil(n/ChunkSize), with the single exception that an empty input is
// one (empty) chunk.
func CountChunks(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	return (n + ChunkSize - 1) / ChunkSize
}

// EncodedSubtreeLen returns the number of bytes a subtree spanning n
// plaintext bytes occupies in the combined encoding, not counting the
// 8-byte top-level header: chunk bytes for a leaf, or 64 bytes of parent
// plus both children recursively.
func EncodedSubtreeLen(n uint64) uint64 {
	if n <= ChunkSize {
		return n
	}
	left := LeftSubtreeLen(n)
	right := n - left
	return ParentSize + EncodedSubtreeLen(left) + EncodedSubtreeLen(right)
}
