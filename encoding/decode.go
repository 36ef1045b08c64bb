package encoding

import (
	"crypto/subtle"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/pombredanne/bao"
	"github.com/pombredanne/bao/blake2b"
	"github.com/pombredanne/bao/internal/errs"
)

// frame is one pending, already-authenticated-by-its-parent expected hash
// on the decoder's subtree stack, together with the plaintext span it
// covers and whether it is the tree's root (the only node ever hashed
// with the last-node flag set).
type frame struct {
	hash   [blake2b.Size]byte
	span   uint64
	isRoot bool
}

func verifyHash(got, want [blake2b.Size]byte) error {
	if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
		return errs.HashMismatch
	}
	return nil
}

// Decoder is a streaming, non-seeking verified decoder: it authenticates
// the root lazily against the hash the caller supplies, walks the
// implicit tree depth-first, validates every node it touches, and emits
// plaintext bytes in order. It implements io.Reader.
type Decoder struct {
	r       Reader
	content Reader // non-nil for outboard mode; chunk bytes come from here instead of r
	root    [blake2b.Size]byte

	stack    [bao.MaxDepth]frame
	stackLen int
	total    uint64

	initialized bool
	pending     []byte
	pendingOff  int

	err error
}

// NewDecoder returns a sequential verified decoder over a combined
// encoding. root is the 32-byte hash the caller already trusts.
func NewDecoder(r Reader, root [blake2b.Size]byte) *Decoder {
	return &Decoder{r: r, root: root}
}

// NewOutboardDecoder returns a sequential verified decoder over an
// outboard encoding: r supplies the header and parent nodes, content
// supplies chunk bytes read in plaintext order.
func NewOutboardDecoder(r Reader, content Reader, root [blake2b.Size]byte) *Decoder {
	return &Decoder{r: r, content: content, root: root}
}

func (d *Decoder) poison(err error) error {
	if d.err == nil {
		d.err = err
	}
	return d.err
}

func (d *Decoder) init() error {
	var header [bao.HeaderSize]byte
	if err := d.r.ReadFull(header[:]); err != nil {
		return err
	}
	d.total = binary.LittleEndian.Uint64(header[:])
	d.initialized = true

	if d.total <= bao.ChunkSize {
		buf := make([]byte, d.total)
		if err := d.chunkSource().ReadFull(buf); err != nil {
			return err
		}
		cv, err := blake2b.HashChunk(buf, true, d.total)
		if err != nil {
			return err
		}
		if err := verifyHash(cv, d.root); err != nil {
			return err
		}
		d.pending = buf
		return nil
	}

	d.stack[0] = frame{hash: d.root, span: d.total, isRoot: true}
	d.stackLen = 1
	return nil
}

func (d *Decoder) chunkSource() Reader {
	if d.content != nil {
		return d.content
	}
	return d.r
}

// step descends from the top of the stack until it has verified and
// buffered one chunk's worth of plaintext, or returns an error.
func (d *Decoder) step() error {
	for {
		top := d.stack[d.stackLen-1]
		if top.span > bao.ChunkSize {
			var buf [bao.ParentSize]byte
			if err := d.r.ReadFull(buf[:]); err != nil {
				return err
			}
			cv := blake2b.HashParent(buf, top.isRoot, d.total)
			if err := verifyHash(cv, top.hash); err != nil {
				return err
			}
			left := bao.LeftSubtreeLen(top.span)
			right := top.span - left
			d.stackLen--

			var leftHash, rightHash [blake2b.Size]byte
			copy(leftHash[:], buf[:blake2b.Size])
			copy(rightHash[:], buf[blake2b.Size:])

			d.stack[d.stackLen] = frame{hash: rightHash, span: right}
			d.stackLen++
			d.stack[d.stackLen] = frame{hash: leftHash, span: left}
			d.stackLen++
			continue
		}

		buf := make([]byte, top.span)
		if err := d.chunkSource().ReadFull(buf); err != nil {
			return err
		}
		cv, err := blake2b.HashChunk(buf, top.isRoot, d.total)
		if err != nil {
			return err
		}
		if err := verifyHash(cv, top.hash); err != nil {
			return err
		}
		d.stackLen--
		d.pending = buf
		d.pendingOff = 0
		return nil
	}
}

// Read implements io.Reader. Once any error occurs the decoder is
// poisoned: every subsequent Read returns the same error without
// performing any further I/O.
func (d *Decoder) Read(p []byte) (int, error) {
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

// ReadAll drains the decoder and returns the full verified plaintext.
func ReadAll(d *Decoder) ([]byte, error) {
	out, err := io.ReadAll(d)
	if err != nil {
		return nil, errors.Wrap(err, "bao: decode")
	}
	return out, nil
}
