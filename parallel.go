package bao

import (
	"golang.org/x/sync/errgroup"

	"github.com/pombredanne/bao/blake2b"
)

// parallelThreshold is the minimum subtree span, in bytes, below which
// HashParallel recurses sequentially instead of handing a half off to
// another goroutine. Below this size the errgroup bookkeeping costs more
// than the extra core buys.
const parallelThreshold = 16 * ChunkSize

// HashParallel computes the same root as Hash, but recursively splits the
// input at the tree-layout boundary and may hash both halves concurrently
// via an errgroup.Group, joining with HashParent. Correctness does not
// depend on the threshold chosen; it only affects how much of the input
// is actually parallelized.
func HashParallel(buf []byte) [blake2b.Size]byte {
	sum, _ := hashParallelNode(buf, true, uint64(len(buf)))
	return sum
}

func hashParallelNode(buf []byte, isRoot bool, totalLen uint64) ([blake2b.Size]byte, error) {
	if len(buf) <= ChunkSize {
		return blake2b.HashChunk(buf, isRoot, totalLen)
	}

	left := LeftSubtreeLen(uint64(len(buf)))
	leftBuf, rightBuf := buf[:left], buf[left:]

	var leftCV, rightCV [blake2b.Size]byte
	var leftErr, rightErr error

	if len(buf) >= parallelThreshold {
		var g errgroup.Group
		g.Go(func() error {
			var err error
			leftCV, err = hashParallelNode(leftBuf, false, totalLen)
			return err
		})
		g.Go(func() error {
			var err error
			rightCV, err = hashParallelNode(rightBuf, false, totalLen)
			return err
		})
		if err := g.Wait(); err != nil {
			return [blake2b.Size]byte{}, err
		}
	} else {
		leftCV, leftErr = hashParallelNode(leftBuf, false, totalLen)
		if leftErr != nil {
			return [blake2b.Size]byte{}, leftErr
		}
		rightCV, rightErr = hashParallelNode(rightBuf, false, totalLen)
		if rightErr != nil {
			return [blake2b.Size]byte{}, rightErr
		}
	}

	var parentBuf [ParentSize]byte
	copy(parentBuf[:blake2b.Size], leftCV[:])
	copy(parentBuf[blake2b.Size:], rightCV[:])
	return blake2b.HashParent(parentBuf, isRoot, totalLen), nil
}
