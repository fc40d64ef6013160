// Package matrix holds the fixed workload dimensions and the integer
// matrix multiply run on the CPU in the FIFO loopback build.
package matrix

import "fmt"

// Workload dimensions. These size every buffer in the program.
const (
	RowsA = 64
	ColsA = 8
	RowsB = ColsA
	ColsB = 1

	ASize   = RowsA * ColsA // elements in matrix A
	BSize   = RowsB * ColsB // elements in matrix B
	TxSize  = ASize + BSize // elements sent to the FPGA
	ResSize = RowsA * ColsB // elements in the result
)

// Shift is the fixed-point scaling applied to products.
const Shift = 8

// Variant selects where the scaling shift is applied.
type Variant int

const (
	// ShiftPerTerm shifts each product before accumulating, then keeps the low 8 bits.
	// This is what the FPGA accelerator and the reference generator compute.
	ShiftPerTerm Variant = iota
	// ShiftSum accumulates full products and divides the sum by 256.
	ShiftSum
)

var variantNames = [...]string{
	ShiftPerTerm: "per-term",
	ShiftSum:     "sum",
}

func (v Variant) String() string {
	if v < 0 || int(v) >= len(variantNames) {
		return fmt.Sprintf("Variant(%d)", int(v))
	}
	return variantNames[v]
}

// ParseVariant maps a config name to a Variant.
func ParseVariant(s string) (Variant, error) {
	for i, n := range variantNames {
		if n == s {
			return Variant(i), nil
		}
	}
	return 0, fmt.Errorf("matrix: unknown multiply variant %q", s)
}

// Multiply computes res = a x b for a (rowsA x colsA) and b (colsA x colsB),
// all row-major. res must hold rowsA*colsB elements.
func Multiply(v Variant, res, a, b []uint32, rowsA, colsA, colsB int) {
	for i := 0; i < rowsA; i++ {
		for j := 0; j < colsB; j++ {
			var acc uint32
			for k := 0; k < colsA; k++ {
				p := a[i*colsA+k] * b[k*colsB+j]
				if v == ShiftPerTerm {
					p >>= Shift
				}
				acc += p
			}
			if v == ShiftPerTerm {
				acc &= 0xFF
			} else {
				acc /= 1 << Shift
			}
			res[i*colsB+j] = acc
		}
	}
}
