package sim

import "github.com/jbrzusto/fpgamm/mover"

// Region is DMA-reachable memory behind a write-back cache.  The CPU
// sees the cache (Words); the DMA engine sees the memory.  Nothing moves
// between them except Flush and Invalidate.
type Region struct {
	addr  uint64
	cache []uint32
	mem   []uint32
}

var _ mover.Region = (*Region)(nil)

// NewRegion returns a zeroed region of n words at bus address addr.
func NewRegion(addr uint64, n int) *Region {
	return &Region{addr: addr, cache: make([]uint32, n), mem: make([]uint32, n)}
}

func (r *Region) Words() []uint32 { return r.cache }
func (r *Region) Addr() uint64    { return r.addr }

// Memory returns the device-side view.
func (r *Region) Memory() []uint32 { return r.mem }

func (r *Region) Flush() error {
	copy(r.mem, r.cache)
	return nil
}

func (r *Region) Invalidate() error {
	copy(r.cache, r.mem)
	return nil
}
