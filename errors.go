package bao

import "github.com/pkg/errors"

// errHasherFinalized is returned when Write or Sum is called on a Hasher
// that has already produced its root.
var errHasherFinalized = errors.New("bao: hasher already finalized")
