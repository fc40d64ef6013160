package buffer

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jbrzusto/fpgamm/matrix"
)

func TestMergeKeepsOrder(t *testing.T) {
	g := NewWithT(t)

	for _, tc := range []struct{ m, n int }{{0, 0}, {1, 0}, {0, 3}, {5, 2}, {512, 8}} {
		a := make([]uint32, tc.m)
		b := make([]uint32, tc.n)
		for i := range a {
			a[i] = uint32(i + 1)
		}
		for i := range b {
			b[i] = uint32(1000 + i)
		}
		dst := make([]uint32, tc.m+tc.n+4)
		got := Merge(dst, a, b)
		g.Expect(got).To(HaveLen(tc.m + tc.n))
		g.Expect(got[:tc.m]).To(Equal(a))
		g.Expect(got[tc.m:]).To(Equal(b))
	}
}

func TestMergePanicsWhenShort(t *testing.T) {
	g := NewWithT(t)
	g.Expect(func() { Merge(make([]uint32, 2), []uint32{1, 2}, []uint32{3}) }).To(Panic())
}

func TestSetMergeTx(t *testing.T) {
	g := NewWithT(t)

	s := new(Set)
	for i := range s.A {
		s.A[i] = uint32(i)
	}
	for i := range s.B {
		s.B[i] = uint32(i + 7)
	}
	tx := s.MergeTx()
	g.Expect(tx).To(HaveLen(matrix.TxSize))
	g.Expect(tx[matrix.ASize-1]).To(Equal(uint32(matrix.ASize - 1)))
	g.Expect(tx[matrix.ASize]).To(Equal(uint32(7)))

	g.Expect(s.RxSlice(matrix.ResSize)).To(HaveLen(matrix.ResSize))
	g.Expect(s.RxSlice(matrix.TxSize + 1)).To(BeNil())
}
