package encoding

import (
	"encoding/binary"

	"github.com/pombredanne/bao"
	"github.com/pombredanne/bao/blake2b"
)

// Encode serializes buf as a combined encoding: the 8-byte length header
// followed by the tree in depth-first pre-order, with chunk bytes inline.
// It returns the encoded bytes and the 32-byte root hash, which equals
// bao.Hash(buf).
func Encode(buf []byte) (encoded []byte, root [blake2b.Size]byte) {
	out := make([]byte, 0, bao.HeaderSize+bao.EncodedSubtreeLen(uint64(len(buf))))
	out = appendHeader(out, uint64(len(buf)))
	out, root = encodeSubtree(out, buf, true, uint64(len(buf)))
	return out, root
}

// EncodeOutboard serializes buf as an outboard encoding: identical to
// Encode except chunk bytes are omitted (a verifier reads them from the
// original content by plaintext offset instead). The header is still
// present.
func EncodeOutboard(buf []byte) (encoded []byte, root [blake2b.Size]byte) {
	out := make([]byte, 0, bao.HeaderSize+outboardSize(uint64(len(buf))))
	out = appendHeader(out, uint64(len(buf)))
	out, root = encodeSubtreeOutboard(out, buf, true, uint64(len(buf)))
	return out, root
}

func appendHeader(out []byte, totalLen uint64) []byte {
	var header [bao.HeaderSize]byte
	binary.LittleEndian.PutUint64(header[:], totalLen)
	return append(out, header[:]...)
}

// encodeSubtree appends the combined-encoding bytes for the subtree
// spanning buf and returns the updated output together with that
// subtree's chaining value (computed as root only when isRoot is set, for
// the top-level call).
func encodeSubtree(out []byte, buf []byte, isRoot bool, totalLen uint64) ([]byte, [blake2b.Size]byte) {
	if len(buf) <= bao.ChunkSize {
		out = append(out, buf...)
		cv, err := blake2b.HashChunk(buf, isRoot, totalLen)
		if err != nil {
			panic(err) // buf is bounded by ChunkSize by construction
		}
		return out, cv
	}

	left := bao.LeftSubtreeLen(uint64(len(buf)))
	parentPos := len(out)
	out = append(out, make([]byte, bao.ParentSize)...)

	out, leftCV := encodeSubtree(out, buf[:left], false, totalLen)
	out, rightCV := encodeSubtree(out, buf[left:], false, totalLen)

	copy(out[parentPos:parentPos+blake2b.Size], leftCV[:])
	copy(out[parentPos+blake2b.Size:parentPos+bao.ParentSize], rightCV[:])

	var parentBuf [bao.ParentSize]byte
	copy(parentBuf[:blake2b.Size], leftCV[:])
	copy(parentBuf[blake2b.Size:], rightCV[:])
	cv := blake2b.HashParent(parentBuf, isRoot, totalLen)
	return out, cv
}

// encodeSubtreeOutboard mirrors encodeSubtree but never appends chunk
// bytes, only parent nodes.
func encodeSubtreeOutboard(out []byte, buf []byte, isRoot bool, totalLen uint64) ([]byte, [blake2b.Size]byte) {
	if len(buf) <= bao.ChunkSize {
		cv, err := blake2b.HashChunk(buf, isRoot, totalLen)
		if err != nil {
			panic(err)
		}
		return out, cv
	}

	left := bao.LeftSubtreeLen(uint64(len(buf)))
	parentPos := len(out)
	out = append(out, make([]byte, bao.ParentSize)...)

	out, leftCV := encodeSubtreeOutboard(out, buf[:left], false, totalLen)
	out, rightCV := encodeSubtreeOutboard(out, buf[left:], false, totalLen)

	copy(out[parentPos:parentPos+blake2b.Size], leftCV[:])
	copy(out[parentPos+blake2b.Size:parentPos+bao.ParentSize], rightCV[:])

	var parentBuf [bao.ParentSize]byte
	copy(parentBuf[:blake2b.Size], leftCV[:])
	copy(parentBuf[blake2b.Size:], rightCV[:])
	cv := blake2b.HashParent(parentBuf, isRoot, totalLen)
	return out, cv
}
