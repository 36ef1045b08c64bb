package encoding

import "github.com/pombredanne/bao"

// outboardSize is bao.EncodedSubtreeLen minus the chunk bytes: just the
// parent nodes, bao.ParentSize each. The encoder uses it to size the
// output buffer; the seeking decoder and slice extractor use it to skip
// whole subtrees in an outboard parent-only stream, where
// bao.EncodedSubtreeLen (which counts chunk bytes too) would overshoot.
func outboardSize(n uint64) uint64 {
	if n <= bao.ChunkSize {
		return 0
	}
	left := bao.LeftSubtreeLen(n)
	right := n - left
	return bao.ParentSize + outboardSize(left) + outboardSize(right)
}
