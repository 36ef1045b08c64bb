// Package encoding implements bao's combined, outboard and slice wire
// formats: the encoder that serializes the tree depth-first pre-order,
// the streaming and seeking verified decoder, and the slice extractor and
// decoder that restrict both to a contiguous byte range.
package encoding

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pombredanne/bao/internal/errs"
)

// Reader is the minimal capability a streaming decoder needs from its
// source: read exactly n bytes, or fail. Modeled as a narrow capability
// interface rather than io.Reader directly so decoders never have to
// handle short reads themselves.
type Reader interface {
	ReadFull(buf []byte) error
}

// SeekableReader additionally supports jumping to an absolute byte
// position in the encoded stream, which the seeking decoder and the slice
// extractor both need to skip subtrees outside their range of interest.
type SeekableReader interface {
	Reader
	Seek(offset int64) error
}

// ioReader adapts an io.Reader (and optionally io.Seeker) to Reader /
// SeekableReader, translating io.EOF and io.ErrUnexpectedEOF into the
// Truncated sentinel the rest of the package matches on.
type ioReader struct {
	r io.Reader
}

// NewReader wraps an io.Reader as a sequential Reader.
func NewReader(r io.Reader) Reader {
	return &ioReader{r: r}
}

func (a *ioReader) ReadFull(buf []byte) error {
	_, err := io.ReadFull(a.r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errs.Truncated
	}
	return err
}

type ioSeekableReader struct {
	ioReader
	s io.Seeker
}

// NewSeekableReader wraps an io.ReadSeeker as a SeekableReader.
func NewSeekableReader(rs io.ReadSeeker) SeekableReader {
	return &ioSeekableReader{ioReader: ioReader{r: rs}, s: rs}
}

func (a *ioSeekableReader) Seek(offset int64) error {
	_, err := a.s.Seek(offset, io.SeekStart)
	return err
}

// byteSliceReader is a SeekableReader over an in-memory byte slice, used
// internally by the slice decoder (which never seeks) and by tests.
type byteSliceReader struct {
	data []byte
	pos  int64
}

// NewBytesReader wraps an in-memory byte slice as a SeekableReader.
func NewBytesReader(data []byte) SeekableReader {
	return &byteSliceReader{data: data}
}

func (b *byteSliceReader) ReadFull(buf []byte) error {
	if b.pos < 0 || b.pos+int64(len(buf)) > int64(len(b.data)) {
		return errs.Truncated
	}
	copy(buf, b.data[b.pos:b.pos+int64(len(buf))])
	b.pos += int64(len(buf))
	return nil
}

func (b *byteSliceReader) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(b.data)) {
		return errors.Wrap(errs.InvalidRange, "seek out of range")
	}
	b.pos = offset
	return nil
}
