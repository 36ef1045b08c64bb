package encoding

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/pombredanne/bao"
	"github.com/pombredanne/bao/blake2b"
	"github.com/pombredanne/bao/internal/errs"
)

// sframe is a subtree-stack entry for the seeking decoder. Unlike the
// plain Decoder's frame, it also remembers the subtree's absolute
// plaintext start offset, since seeking needs to tell which child a
// target offset falls into without having walked there sequentially.
type sframe struct {
	hash   [blake2b.Size]byte
	span   uint64
	start  uint64
	isRoot bool
}

// SeekingDecoder is the seekable variant of Decoder: SeekTo jumps directly
// to any plaintext offset by walking from the root and skipping, via the
// underlying source's Seek, any subtree that does not contain the target
// offset. The root (and every node on the path to the current offset) is
// still authenticated; nothing is ever emitted unverified.
type SeekingDecoder struct {
	r       SeekableReader
	content SeekableReader // non-nil for outboard mode
	root    [blake2b.Size]byte

	stack    [bao.MaxDepth]sframe
	stackLen int
	total    uint64

	initialized bool
	streamPos   int64
	pending     []byte
	pendingOff  int
	pendingAt   uint64 // absolute plaintext offset pending[0] corresponds to

	err error
}

// NewSeekingDecoder returns a seekable verified decoder over a combined
// encoding.
func NewSeekingDecoder(r SeekableReader, root [blake2b.Size]byte) *SeekingDecoder {
	return &SeekingDecoder{r: r, root: root}
}

// NewOutboardSeekingDecoder returns a seekable verified decoder over an
// outboard encoding: r supplies the header and parent nodes, content
// supplies chunk bytes by plaintext offset.
func NewOutboardSeekingDecoder(r SeekableReader, content SeekableReader, root [blake2b.Size]byte) *SeekingDecoder {
	return &SeekingDecoder{r: r, content: content, root: root}
}

func (d *SeekingDecoder) poison(err error) error {
	if d.err == nil {
		d.err = err
	}
	return d.err
}

func (d *SeekingDecoder) chunkSource() SeekableReader {
	if d.content != nil {
		return d.content
	}
	return d.r
}

func (d *SeekingDecoder) init() error {
	var header [bao.HeaderSize]byte
	if err := d.r.ReadFull(header[:]); err != nil {
		return err
	}
	d.total = binary.LittleEndian.Uint64(header[:])
	d.streamPos = bao.HeaderSize
	d.initialized = true

	if d.total <= bao.ChunkSize {
		return d.readAndVerifyChunkFrame(sframe{hash: d.root, span: d.total, start: 0, isRoot: true})
	}
	d.stack[0] = sframe{hash: d.root, span: d.total, start: 0, isRoot: true}
	d.stackLen = 1
	return nil
}

// step descends from the top of the stack, left to right, until a chunk
// has been verified and buffered.
func (d *SeekingDecoder) step() error {
	for {
		top := d.stack[d.stackLen-1]
		if top.span > bao.ChunkSize {
			var buf [bao.ParentSize]byte
			if err := d.r.ReadFull(buf[:]); err != nil {
				return err
			}
			d.streamPos += bao.ParentSize
			cv := blake2b.HashParent(buf, top.isRoot, d.total)
			if err := verifyHash(cv, top.hash); err != nil {
				return err
			}

			left := bao.LeftSubtreeLen(top.span)
			right := top.span - left
			var leftHash, rightHash [blake2b.Size]byte
			copy(leftHash[:], buf[:blake2b.Size])
			copy(rightHash[:], buf[blake2b.Size:])
			d.stackLen--
			d.stack[d.stackLen] = sframe{hash: rightHash, span: right, start: top.start + left}
			d.stackLen++
			d.stack[d.stackLen] = sframe{hash: leftHash, span: left, start: top.start}
			d.stackLen++
			continue
		}

		d.stackLen--
		if err := d.readAndVerifyChunkFrame(top); err != nil {
			return err
		}
		return nil
	}
}

func (d *SeekingDecoder) readAndVerifyChunkFrame(f sframe) error {
	src := d.chunkSource()
	if d.content != nil {
		if err := src.Seek(int64(f.start)); err != nil {
			return err
		}
	}
	buf := make([]byte, f.span)
	if err := src.ReadFull(buf); err != nil {
		return err
	}
	if d.content == nil {
		d.streamPos += int64(f.span)
	}
	cv, err := blake2b.HashChunk(buf, f.isRoot, d.total)
	if err != nil {
		return err
	}
	if err := verifyHash(cv, f.hash); err != nil {
		return err
	}
	d.pending = buf
	d.pendingOff = 0
	d.pendingAt = f.start
	return nil
}

// Read implements io.Reader, continuing from wherever the last Read or
// SeekTo left off.
func (d *SeekingDecoder) Read(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	if !d.initialized {
		if err := d.init(); err != nil {
			return 0, d.poison(err)
		}
	}
	for d.pendingOff >= len(d.pending) {
		if d.stackLen == 0 {
			return 0, io.EOF
		}
		if err := d.step(); err != nil {
			return 0, d.poison(err)
		}
	}
	n := copy(p, d.pending[d.pendingOff:])
	d.pendingOff += n
	return n, nil
}

// SeekTo repositions the decoder at plaintext offset. For an input of more
// than one chunk it re-authenticates the root and every node on the path to
// offset, even when offset equals the total length (a zero-length read must
// still prove the root is genuine). For a single-chunk input the root chunk
// is verified once, by the first Read or SeekTo, and later calls only
// reposition within it.
func (d *SeekingDecoder) SeekTo(offset uint64) error {
	if d.err != nil {
		return d.err
	}
	if !d.initialized {
		if err := d.init(); err != nil {
			return d.poison(err)
		}
	}
	if offset > d.total {
		return d.poison(errors.Wrap(errs.InvalidRange, "seek target past end of input"))
	}

	if d.total <= bao.ChunkSize {
		// init already verified the single chunk; just reposition within it.
		d.pendingOff = int(offset)
		return nil
	}

	d.stackLen = 0
	d.stack[0] = sframe{hash: d.root, span: d.total, start: 0, isRoot: true}
	d.stackLen = 1
	if err := d.r.Seek(bao.HeaderSize); err != nil {
		return d.poison(err)
	}
	d.streamPos = bao.HeaderSize
	d.pending = nil
	d.pendingOff = 0

	for {
		top := d.stack[d.stackLen-1]
		if top.span <= bao.ChunkSize {
			d.stackLen--
			if err := d.readAndVerifyChunkFrame(top); err != nil {
				return d.poison(err)
			}
			d.pendingOff = int(offset - top.start)
			return nil
		}

		var buf [bao.ParentSize]byte
		if err := d.r.ReadFull(buf[:]); err != nil {
			return d.poison(err)
		}
		d.streamPos += bao.ParentSize
		cv := blake2b.HashParent(buf, top.isRoot, d.total)
		if err := verifyHash(cv, top.hash); err != nil {
			return d.poison(err)
		}

		left := bao.LeftSubtreeLen(top.span)
		right := top.span - left
		var leftHash, rightHash [blake2b.Size]byte
		copy(leftHash[:], buf[:blake2b.Size])
		copy(rightHash[:], buf[blake2b.Size:])
		d.stackLen--

		if offset < top.start+left {
			d.stack[d.stackLen] = sframe{hash: rightHash, span: right, start: top.start + left}
			d.stackLen++
			d.stack[d.stackLen] = sframe{hash: leftHash, span: left, start: top.start}
			d.stackLen++
			continue
		}

		skip := int64(d.subtreeSkipLen(left))
		if err := d.r.Seek(d.streamPos + skip); err != nil {
			return d.poison(err)
		}
		d.streamPos += skip
		d.stack[d.stackLen] = sframe{hash: rightHash, span: right, start: top.start + left}
		d.stackLen++
	}
}

// subtreeSkipLen is the number of bytes a subtree of n plaintext bytes
// occupies in d.r, the stream SeekTo skips over to bypass it entirely.
// For a combined decoder that is every byte of the subtree
// (bao.EncodedSubtreeLen); for an outboard decoder d.r holds only parent
// nodes (streamPos is never advanced for chunk reads, which come from
// d.content instead), so the skip is outboardSize instead.
func (d *SeekingDecoder) subtreeSkipLen(n uint64) uint64 {
	if d.content != nil {
		return outboardSize(n)
	}
	return bao.EncodedSubtreeLen(n)
}
