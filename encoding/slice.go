package encoding

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/pombredanne/bao"
	"github.com/pombredanne/bao/blake2b"
	"github.com/pombredanne/bao/internal/errs"
)

// validateRange resolves the open questions the specification calls out
// explicitly: offset past the end of the input, and length exceeding what
// remains, are both rejected as InvalidRange. length == 0 is accepted,
// and still requires authenticating the root (and every node on the path
// down to offset) even though no plaintext bytes come out the other end.
func validateRange(total, offset, length uint64) error {
	if offset > total {
		return errors.Wrap(errs.InvalidRange, "offset past end of input")
	}
	if length > total-offset {
		return errors.Wrap(errs.InvalidRange, "length exceeds remaining input")
	}
	return nil
}

// pointOffsetFor returns the single plaintext offset a zero-length
// request should still authenticate a path to: offset itself, unless
// offset sits exactly at end-of-input, in which case it's the last valid
// byte's offset (or 0 for a wholly empty input) so the rightmost spine of
// the tree still gets walked and verified.
func pointOffsetFor(total, offset, length uint64) uint64 {
	if length > 0 {
		return offset
	}
	if offset < total || total == 0 {
		return offset
	}
	return total - 1
}

// overlapsRange reports whether the subtree [start, start+span) needs to
// be visited to serve a request for [offset, offset+length), including
// the zero-length case via pointOffset.
func overlapsRange(start, span, offset, length, pointOffset uint64) bool {
	if length > 0 {
		return start < offset+length && offset < start+span
	}
	return start <= pointOffset && pointOffset < start+span
}

// trimToRange returns the portion of a chunk's plaintext that falls
// inside [offset, offset+length), given the chunk's own plaintext span
// [chunkStart, chunkStart+chunkSpan).
func trimToRange(buf []byte, chunkStart, chunkSpan, offset, length uint64) []byte {
	chunkEnd := chunkStart + chunkSpan
	rangeEnd := offset + length
	lo := offset
	if chunkStart > lo {
		lo = chunkStart
	}
	hi := rangeEnd
	if chunkEnd < hi {
		hi = chunkEnd
	}
	if hi <= lo {
		return nil
	}
	return buf[lo-chunkStart : hi-chunkStart]
}

// extractor walks a combined (or outboard) encoding and copies the bytes
// of every node a decode of [offset, offset+length) would touch, without
// verifying any hash — Extract trusts the source completely and produces
// a byte-exact pre-order substream for DecodeSlice to verify later.
type extractor struct {
	r         SeekableReader
	content   SeekableReader // non-nil for outboard mode
	streamPos int64
	out       []byte
}

func (e *extractor) readChunk(start, span uint64) ([]byte, error) {
	src := e.r
	if e.content != nil {
		src = e.content
		if err := src.Seek(int64(start)); err != nil {
			return nil, err
		}
	}
	buf := make([]byte, span)
	if err := src.ReadFull(buf); err != nil {
		return nil, err
	}
	if e.content == nil {
		e.streamPos += int64(span)
	}
	return buf, nil
}

func (e *extractor) skip(span uint64) error {
	var n int64
	if e.content != nil {
		n = int64(outboardSize(span))
	} else {
		n = int64(bao.EncodedSubtreeLen(span))
	}
	if err := e.r.Seek(e.streamPos + n); err != nil {
		return err
	}
	e.streamPos += n
	return nil
}

func (e *extractor) visit(start, span, offset, length, pointOffset uint64) error {
	if span <= bao.ChunkSize {
		buf, err := e.readChunk(start, span)
		if err != nil {
			return err
		}
		e.out = append(e.out, buf...)
		return nil
	}

	var buf [bao.ParentSize]byte
	if err := e.r.ReadFull(buf[:]); err != nil {
		return err
	}
	e.streamPos += bao.ParentSize
	e.out = append(e.out, buf[:]...)

	left := bao.LeftSubtreeLen(span)
	right := span - left

	if overlapsRange(start, left, offset, length, pointOffset) {
		if err := e.visit(start, left, offset, length, pointOffset); err != nil {
			return err
		}
	} else if err := e.skip(left); err != nil {
		return err
	}

	if overlapsRange(start+left, right, offset, length, pointOffset) {
		if err := e.visit(start+left, right, offset, length, pointOffset); err != nil {
			return err
		}
	} else if err := e.skip(right); err != nil {
		return err
	}
	return nil
}

// Extract produces the minimal pre-order substream of a combined encoding
// that authenticates [offset, offset+length): the header, every parent on
// the path, and every chunk wholly or partially overlapping the range.
// Parents entirely outside the range are skipped via Seek and never read.
func Extract(r SeekableReader, offset, length uint64) ([]byte, error) {
	return extractCommon(r, nil, offset, length)
}

// ExtractOutboard is Extract for an outboard encoding: r supplies the
// header and parent nodes, content supplies chunk bytes by plaintext
// offset.
func ExtractOutboard(r SeekableReader, content SeekableReader, offset, length uint64) ([]byte, error) {
	return extractCommon(r, content, offset, length)
}

func extractCommon(r, content SeekableReader, offset, length uint64) ([]byte, error) {
	var header [bao.HeaderSize]byte
	if err := r.ReadFull(header[:]); err != nil {
		return nil, err
	}
	total := binary.LittleEndian.Uint64(header[:])
	if err := validateRange(total, offset, length); err != nil {
		return nil, err
	}

	e := &extractor{r: r, content: content, streamPos: bao.HeaderSize, out: append([]byte{}, header[:]...)}
	pointOffset := pointOffsetFor(total, offset, length)
	if err := e.visit(0, total, offset, length, pointOffset); err != nil {
		return nil, err
	}
	return e.out, nil
}

// DecodeSlice verifies a slice produced by Extract and returns exactly
// the plaintext bytes [offset, offset+length). Unlike the streaming and
// seeking decoders, it never seeks: the slice has already been pruned to
// precisely the bytes this walk will consume, in order.
func DecodeSlice(slice []byte, root [blake2b.Size]byte, offset, length uint64) ([]byte, error) {
	r := NewBytesReader(slice)
	var header [bao.HeaderSize]byte
	if err := r.ReadFull(header[:]); err != nil {
		return nil, err
	}
	total := binary.LittleEndian.Uint64(header[:])
	if err := validateRange(total, offset, length); err != nil {
		return nil, err
	}

	if total <= bao.ChunkSize {
		buf := make([]byte, total)
		if err := r.ReadFull(buf); err != nil {
			return nil, err
		}
		cv, err := blake2b.HashChunk(buf, true, total)
		if err != nil {
			return nil, err
		}
		if err := verifyHash(cv, root); err != nil {
			return nil, err
		}
		return append([]byte{}, trimToRange(buf, 0, total, offset, length)...), nil
	}

	pointOffset := pointOffsetFor(total, offset, length)
	out := make([]byte, 0, length)
	if err := decodeSliceSubtree(r, &out, root, 0, total, true, total, offset, length, pointOffset); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeSliceSubtree(r Reader, out *[]byte, expected [blake2b.Size]byte, start, span uint64, isRoot bool, total, offset, length, pointOffset uint64) error {
	if span <= bao.ChunkSize {
		buf := make([]byte, span)
		if err := r.ReadFull(buf); err != nil {
			return err
		}
		cv, err := blake2b.HashChunk(buf, isRoot, total)
		if err != nil {
			return err
		}
		if err := verifyHash(cv, expected); err != nil {
			return err
		}
		*out = append(*out, trimToRange(buf, start, span, offset, length)...)
		return nil
	}

	var buf [bao.ParentSize]byte
	if err := r.ReadFull(buf[:]); err != nil {
		return err
	}
	cv := blake2b.HashParent(buf, isRoot, total)
	if err := verifyHash(cv, expected); err != nil {
		return err
	}

	left := bao.LeftSubtreeLen(span)
	right := span - left
	var leftHash, rightHash [blake2b.Size]byte
	copy(leftHash[:], buf[:blake2b.Size])
	copy(rightHash[:], buf[blake2b.Size:])

	if overlapsRange(start, left, offset, length, pointOffset) {
		if err := decodeSliceSubtree(r, out, leftHash, start, left, false, total, offset, length, pointOffset); err != nil {
			return err
		}
	}
	if overlapsRange(start+left, right, offset, length, pointOffset) {
		if err := decodeSliceSubtree(r, out, rightHash, start+left, right, false, total, offset, length, pointOffset); err != nil {
			return err
		}
	}
	return nil
}
