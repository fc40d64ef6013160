// Package sim provides simulated devices that stand in for the FPGA:
// a tick clock with an up-counter on it, an AXI4-Stream FIFO, a simple
// DMA engine, and DMA-reachable memory with a write-back cache in front
// of it.  Every register access advances the clock, so elapsed-tick
// measurements against simulated devices are deterministic.
//
// Behind the FIFO or DMA engine sits a Core: either a loopback, or an
// accelerator that multiplies the merged A|B packet.
package sim

import (
	"github.com/jbrzusto/fpgamm/matrix"
	"github.com/jbrzusto/fpgamm/timer"
)

// DefaultLatency is the number of status polls a simulated transfer takes.
const DefaultLatency = 16

// Clock counts simulated cycles.
type Clock struct {
	now uint32
}

// Tick advances the clock by n cycles.
func (c *Clock) Tick(n uint32) { c.now += n }

// Now returns the current cycle count.
func (c *Clock) Now() uint32 { return c.now }

// Timer is an up-counter on a Clock.  Reading it costs one cycle.
type Timer struct {
	clk     *Clock
	running bool
	base    uint32
	acc     uint32
}

var _ timer.Counter = (*Timer)(nil)

// NewTimer returns a stopped Timer on clk.
func NewTimer(clk *Clock) *Timer {
	return &Timer{clk: clk}
}

func (t *Timer) Reset() {
	t.clk.Tick(1)
	t.acc = 0
	t.base = t.clk.now
}

func (t *Timer) Start() {
	t.clk.Tick(1)
	if !t.running {
		t.running = true
		t.base = t.clk.now
	}
}

func (t *Timer) Stop() {
	t.clk.Tick(1)
	if t.running {
		t.acc += t.clk.now - t.base
		t.running = false
	}
}

func (t *Timer) Value() uint32 {
	t.clk.Tick(1)
	if t.running {
		return t.acc + t.clk.now - t.base
	}
	return t.acc
}

// A Core consumes one packet and produces the result packet.
type Core interface {
	Process(in []uint32) []uint32
}

// Loopback returns its input unchanged.
type Loopback struct{}

func (Loopback) Process(in []uint32) []uint32 {
	return append([]uint32(nil), in...)
}

// Accelerator multiplies A (first matrix.ASize words) by B (next
// matrix.BSize words) and returns the matrix.ResSize result.  Packets
// of any other length produce no output.
type Accelerator struct {
	Variant matrix.Variant
}

func (a Accelerator) Process(in []uint32) []uint32 {
	if len(in) != matrix.TxSize {
		return nil
	}
	res := make([]uint32, matrix.ResSize)
	matrix.Multiply(a.Variant, res, in[:matrix.ASize], in[matrix.ASize:], matrix.RowsA, matrix.ColsA, matrix.ColsB)
	return res
}
