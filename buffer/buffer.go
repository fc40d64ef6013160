// Buffer matrix data.
//
// All storage for one run lives in a Set, allocated once at startup
// and overwritten by every run.  Nothing here grows or shrinks; the
// sizes come from the workload dimensions in package matrix.
//
package buffer

import (
	"github.com/jbrzusto/fpgamm/matrix"
)

// A Set holds every buffer the pipeline touches.
type Set struct {
	A   [matrix.ASize]uint32   // matrix A as ingested
	B   [matrix.BSize]uint32   // matrix B as ingested
	Tx  [matrix.TxSize]uint32  // A followed by B; what goes to the FPGA
	Rx  [matrix.TxSize]uint32  // what comes back; sized for the loopback case
	Res [matrix.ResSize]uint32 // result of the CPU multiply
}

// RxSlice returns the first n words of the receive buffer,
// or nil if n does not fit.
func (s *Set) RxSlice(n int) []uint32 {
	if n < 0 || n > len(s.Rx) {
		return nil
	}
	return s.Rx[:n]
}

// Merge copies a then b into dst and returns dst[:len(a)+len(b)].
// dst must be large enough.
func Merge(dst, a, b []uint32) []uint32 {
	n := copy(dst, a)
	copy(dst[n:], b)
	return dst[:len(a)+len(b)]
}

// MergeTx merges A and B into Tx.
func (s *Set) MergeTx() []uint32 {
	return Merge(s.Tx[:], s.A[:], s.B[:])
}
