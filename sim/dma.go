package sim

import (
	"errors"

	"github.com/jbrzusto/fpgamm/mover"
)

var (
	errChannelBusy = errors.New("sim: dma channel busy")
	// ErrDecode is latched when a transfer addresses memory outside every region.
	ErrDecode = errors.New("sim: dma decode error")
)

// DMA is a simple-mode DMA engine between Regions and a Core.  The
// receive channel completes only once the core has produced at least
// as many words as were asked for; until then it stays busy.
type DMA struct {
	clk     *Clock
	core    Core
	regions []*Region
	Latency int

	// Stuck keeps both channels busy forever.
	Stuck bool

	out     []uint32
	busy    [2]int // polls left; -1 is forever
	fault   [2]error
	rxr     *Region
	rxOff   int
	rxWords int
}

var _ mover.DMAEngine = (*DMA)(nil)

// NewDMA returns an engine on clk that can reach regions.
func NewDMA(clk *Clock, core Core, regions ...*Region) *DMA {
	return &DMA{clk: clk, core: core, regions: regions, Latency: DefaultLatency}
}

func (e *DMA) lookup(addr uint64, words int) *Region {
	for _, r := range e.regions {
		if addr >= r.addr && addr+uint64(words*mover.WordSize) <= r.addr+uint64(len(r.mem)*mover.WordSize) {
			return r
		}
	}
	return nil
}

func (e *DMA) Transfer(d mover.Direction, addr uint64, length uint32) error {
	e.clk.Tick(1)
	if e.busy[d] != 0 {
		return errChannelBusy
	}
	e.fault[d] = nil
	words := int(length / mover.WordSize)
	r := e.lookup(addr, words)
	if r == nil {
		e.fault[d] = ErrDecode
		return nil
	}
	off := int(addr-r.addr) / mover.WordSize
	switch d {
	case mover.Send:
		e.out = e.core.Process(append([]uint32(nil), r.mem[off:off+words]...))
	case mover.Receive:
		e.rxr = r
		e.rxOff = off
		e.rxWords = words
		if len(e.out) < words {
			e.busy[d] = -1
			return nil
		}
	}
	e.clk.Tick(uint32(words))
	e.busy[d] = e.Latency
	if e.busy[d] <= 0 {
		e.busy[d] = 0
		e.complete(d)
	}
	return nil
}

func (e *DMA) complete(d mover.Direction) {
	if d == mover.Receive {
		copy(e.rxr.mem[e.rxOff:], e.out[:e.rxWords])
		e.out = nil
	}
}

func (e *DMA) Busy(d mover.Direction) bool {
	e.clk.Tick(1)
	if e.Stuck {
		return true
	}
	if e.busy[d] > 0 {
		e.busy[d]--
		if e.busy[d] == 0 {
			e.complete(d)
		}
	}
	return e.busy[d] != 0
}

func (e *DMA) Fault(d mover.Direction) error {
	return e.fault[d]
}
