package bao

import (
	"github.com/pombredanne/bao/blake2b"
)

// stackEntry is one pending chaining value on the subtree stack: the hash
// of a subtree that has not yet found its sibling.
type stackEntry struct {
	cv [blake2b.Size]byte
}

// Hasher is a single-pass, sequential tree hasher: feed it bytes with
// Write, call Sum once to get the 32-byte root. It corresponds to the
// teacher's streaming Digest type, generalized from a flat BLAKE2s state
// to bao's binary subtree-stack construction.
//
// The stack is a fixed-capacity array, never a growing slice: MaxDepth
// (52) entries covers every input up to 2^64 bytes, so a Hasher is
// entirely stack-allocatable.
type Hasher struct {
	buf      [ChunkSize]byte
	bufLen   int
	total    uint64
	stack    [MaxDepth]stackEntry
	stackLen int
	chunks   uint64 // number of whole chunks already committed to the stack
	done     bool
}

// NewHasher returns a ready-to-use sequential tree hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Reset returns h to its initial state, as if freshly created by
// NewHasher, whether or not Sum was ever called.
func (h *Hasher) Reset() {
	*h = Hasher{}
}

// Size is the number of bytes Sum returns.
func (h *Hasher) Size() int {
	return blake2b.Size
}

// BlockSize is the input size Write operates on most efficiently. Write
// accepts any amount of data, but internally buffers up to one full
// chunk before hashing it.
func (h *Hasher) BlockSize() int {
	return ChunkSize
}

// Write appends bytes to the hash. It is an error to call Write after Sum.
func (h *Hasher) Write(p []byte) (int, error) {
	if h.done {
		return 0, errHasherFinalized
	}
	n := len(p)
	for len(p) > 0 {
		if h.bufLen == ChunkSize {
			h.commitBufferedChunk()
		}
		copied := copy(h.buf[h.bufLen:], p)
		h.bufLen += copied
		h.total += uint64(copied)
		p = p[copied:]
	}
	return n, nil
}

// commitBufferedChunk hashes the full chunk sitting in the buffer as a
// non-root node and folds it into the subtree stack, merging with the top
// of the stack while the spans match — the binary-counter construction
// that keeps the stack height at O(log2(total/ChunkSize)).
func (h *Hasher) commitBufferedChunk() {
	cv, err := blake2b.HashChunk(h.buf[:ChunkSize], false, 0)
	if err != nil {
		panic(err) // a full 4096-byte buffer is always a valid chunk
	}
	h.pushMerging(cv)
	h.bufLen = 0
}

// pushMerging folds a freshly computed chunk chaining value into the
// stack: while the running chunk count has a set low bit, pop the top
// entry and combine it (as the left child) with the running value, then
// push the result. This is the same construction buildbarn's sha256tree
// hasher uses for its chunk stack.
func (h *Hasher) pushMerging(cv [blake2b.Size]byte) {
	for n := h.chunks; n&1 != 0; n >>= 1 {
		left := h.stack[h.stackLen-1].cv
		h.stackLen--
		var buf [ParentSize]byte
		copy(buf[:blake2b.Size], left[:])
		copy(buf[blake2b.Size:], cv[:])
		cv = blake2b.HashParent(buf, false, 0)
	}
	h.stack[h.stackLen].cv = cv
	h.stackLen++
	h.chunks++
}

// Sum finalizes the hash and returns the 32-byte root. It may be called
// only once; Write must not be called afterward.
func (h *Hasher) Sum() ([blake2b.Size]byte, error) {
	if h.done {
		return [blake2b.Size]byte{}, errHasherFinalized
	}
	h.done = true

	if h.total == 0 {
		return blake2b.HashChunk(nil, true, 0)
	}
	if h.chunks == 0 {
		// Every byte written so far fits in the buffered chunk and no
		// chunk was ever committed to the stack: this one chunk is the
		// whole tree, so it is the root.
		return blake2b.HashChunk(h.buf[:h.bufLen], true, h.total)
	}

	// The buffered chunk (full or partial) is always the rightmost,
	// most-recent subtree and was never committed, by construction: a
	// commit only happens when more input follows, so the final chunk
	// stays unflagged until we know for certain it is last.
	acc, err := blake2b.HashChunk(h.buf[:h.bufLen], false, h.total)
	if err != nil {
		return [blake2b.Size]byte{}, err
	}
	for h.stackLen > 0 {
		left := h.stack[h.stackLen-1].cv
		h.stackLen--
		isRoot := h.stackLen == 0
		var buf [ParentSize]byte
		copy(buf[:blake2b.Size], left[:])
		copy(buf[blake2b.Size:], acc[:])
		acc = blake2b.HashParent(buf, isRoot, h.total)
	}
	return acc, nil
}

// Hash computes the tree hash of buf in one call, using the sequential
// subtree-stack hasher.
func Hash(buf []byte) [blake2b.Size]byte {
	h := NewHasher()
	_, _ = h.Write(buf)
	sum, _ := h.Sum()
	return sum
}
