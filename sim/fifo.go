package sim

import "github.com/jbrzusto/fpgamm/mover"

// DefaultDepth is the simulated FIFO depth in words.
const DefaultDepth = 1024

// FIFO is a store-and-forward AXI4-Stream FIFO pair with a Core between
// the transmit and receive sides.  A packet leaves the transmit FIFO
// when its length is written, and its result shows up in the receive
// FIFO Latency status polls later.
type FIFO struct {
	clk     *Clock
	core    Core
	Depth   int
	Latency int

	// fault injection
	StuckTx  bool // transmit never completes
	DropRx   int  // words lost from the end of each result
	NoRxDone bool // receive complete never set

	txq       []uint32
	rxq       []uint32
	out       []uint32
	countdown int
	tc, rc    bool
}

var _ mover.FIFOPort = (*FIFO)(nil)

// NewFIFO returns a FIFO on clk feeding core.
func NewFIFO(clk *Clock, core Core) *FIFO {
	return &FIFO{clk: clk, core: core, Depth: DefaultDepth, Latency: DefaultLatency}
}

// step is one register access.
func (f *FIFO) step() {
	f.clk.Tick(1)
	if f.countdown > 0 {
		f.countdown--
		if f.countdown == 0 {
			f.complete()
		}
	}
}

func (f *FIFO) complete() {
	f.tc = true
	out := f.out
	f.out = nil
	if f.DropRx > 0 {
		if f.DropRx >= len(out) {
			out = nil
		} else {
			out = out[:len(out)-f.DropRx]
		}
	}
	f.rxq = append(f.rxq, out...)
	if !f.NoRxDone {
		f.rc = true
	}
}

func (f *FIFO) ClearStatus() {
	f.step()
	f.tc, f.rc = false, false
}

func (f *FIFO) TxVacancy() uint32 {
	f.step()
	return uint32(f.Depth - len(f.txq))
}

func (f *FIFO) TxPutWord(w uint32) {
	f.step()
	if len(f.txq) < f.Depth {
		f.txq = append(f.txq, w)
	}
}

func (f *FIFO) TxSetLen(bytes uint32) {
	f.step()
	n := int(bytes / mover.WordSize)
	if n > len(f.txq) {
		n = len(f.txq)
	}
	pkt := append([]uint32(nil), f.txq[:n]...)
	f.txq = append(f.txq[:0], f.txq[n:]...)
	if f.StuckTx {
		return
	}
	f.out = f.core.Process(pkt)
	f.clk.Tick(uint32(n))
	if f.Latency <= 0 {
		f.complete()
		return
	}
	f.countdown = f.Latency
}

func (f *FIFO) IsTxDone() bool {
	f.step()
	return f.tc
}

func (f *FIFO) RxOccupancy() uint32 {
	f.step()
	return uint32(len(f.rxq))
}

func (f *FIFO) RxGetWord() uint32 {
	f.step()
	if len(f.rxq) == 0 {
		return 0
	}
	w := f.rxq[0]
	f.rxq = f.rxq[1:]
	return w
}

func (f *FIFO) IsRxDone() bool {
	f.step()
	return f.rc
}
