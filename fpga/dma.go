package fpga

import (
	"errors"
	"fmt"

	"github.com/jbrzusto/fpgamm/mover"
)

// Control and status register bits of an AXI DMA channel.
const (
	DMA_CR_RUNSTOP   = 1 << 0  // run/stop
	DMA_CR_RESET     = 1 << 2  // soft reset; self-clearing
	DMA_CR_IRQ_IOC   = 1 << 12 // interrupt on complete
	DMA_CR_IRQ_DELAY = 1 << 13 // interrupt on delay timer
	DMA_CR_IRQ_ERR   = 1 << 14 // interrupt on error
	DMA_CR_IRQ_ALL   = DMA_CR_IRQ_IOC | DMA_CR_IRQ_DELAY | DMA_CR_IRQ_ERR

	DMA_SR_HALTED  = 1 << 0 // channel halted
	DMA_SR_IDLE    = 1 << 1 // channel idle
	DMA_SR_SGINCLD = 1 << 3 // core built with scatter/gather
	DMA_SR_INTERR  = 1 << 4 // DMA internal error
	DMA_SR_SLVERR  = 1 << 5 // DMA slave error
	DMA_SR_DECERR  = 1 << 6 // DMA decode error
	DMA_SR_ERR_ALL = DMA_SR_INTERR | DMA_SR_SLVERR | DMA_SR_DECERR

	DMA_RESET_POLLS = 1000 // polls allowed for a soft reset to finish
)

// DMAChannel is the register layout shared by both directions.
type DMAChannel struct {
	CR      uint32    `reg:"dmacr" mode:"rw" desc:"Control: bit[0]: run/stop; bit[2]: reset; bits[14:12]: interrupt enables"`
	SR      uint32    `reg:"dmasr" mode:"rw" desc:"Status: bit[0]: halted; bit[1]: idle; bit[3]: SG included; bits[6:4]: internal/slave/decode error"`
	_       [4]uint32 // curdesc/taildesc, scatter/gather only
	Addr    uint32    `reg:"addr" mode:"rw" desc:"Buffer Address: low 32 bits of the bus address of the packet"`
	AddrMSB uint32    `reg:"addr_msb" mode:"rw" desc:"Buffer Address MSB: high 32 bits of the bus address of the packet"`
	_       [2]uint32
	Length  uint32 `reg:"length" mode:"rw" desc:"Length: packet length in bytes; writing it starts the transfer"`
	_       uint32
}

// DMARegs is a direct image of the AXI DMA register block.
type DMARegs struct {
	MM2S DMAChannel `reg_prefix:"mm2s_"` // memory to stream (send)
	S2MM DMAChannel `reg_prefix:"s2mm_"` // stream to memory (receive)
}

// DMA drives an AXI DMA engine in simple mode.
type DMA struct {
	*DMARegs
}

var _ mover.DMAEngine = (*DMA)(nil)

// NewDMA wraps a register block.
func NewDMA(regs *DMARegs) *DMA {
	return &DMA{DMARegs: regs}
}

// OpenDMA maps the DMA registers at base.
func OpenDMA(m *Mem, base uint64) (*DMA, error) {
	p, err := m.overlay(base)
	if err != nil {
		return nil, fmt.Errorf("fpga: dma: %w", err)
	}
	return NewDMA((*DMARegs)(p)), nil
}

func (e *DMA) channel(d mover.Direction) *DMAChannel {
	if d == mover.Send {
		return &e.MM2S
	}
	return &e.S2MM
}

// Init resets the engine, refuses a scatter/gather build and masks
// every interrupt; completion is polled.
func (e *DMA) Init() error {
	wr(&e.MM2S.CR, DMA_CR_RESET)
	reset := false
	for i := 0; i < DMA_RESET_POLLS; i++ {
		if rd(&e.MM2S.CR)&DMA_CR_RESET == 0 {
			reset = true
			break
		}
	}
	if !reset {
		return fmt.Errorf("%w: dma reset did not complete", ErrInitFailed)
	}
	if rd(&e.MM2S.SR)&DMA_SR_SGINCLD != 0 {
		return fmt.Errorf("%w: dma core is configured for scatter/gather", ErrInitFailed)
	}
	for _, c := range []*DMAChannel{&e.MM2S, &e.S2MM} {
		wr(&c.CR, rd(&c.CR)&^DMA_CR_IRQ_ALL)
	}
	return nil
}

// Transfer starts one packet on the channel for d.
func (e *DMA) Transfer(d mover.Direction, addr uint64, length uint32) error {
	c := e.channel(d)
	if rd(&c.CR)&DMA_CR_RUNSTOP != 0 && rd(&c.SR)&DMA_SR_IDLE == 0 {
		return fmt.Errorf("fpga: dma %v channel busy", d)
	}
	wr(&c.Addr, uint32(addr))
	wr(&c.AddrMSB, uint32(addr>>32))
	wr(&c.CR, rd(&c.CR)|DMA_CR_RUNSTOP)
	wr(&c.Length, length)
	return nil
}

// Busy reports whether the channel for d has not gone idle.  A halted
// channel also reads as busy.
func (e *DMA) Busy(d mover.Direction) bool {
	return rd(&e.channel(d).SR)&DMA_SR_IDLE == 0
}

var (
	errDMAInternal = errors.New("dma internal error")
	errDMASlave    = errors.New("dma slave error")
	errDMADecode   = errors.New("dma decode error")
)

// Fault returns the first error flagged in the channel status.
func (e *DMA) Fault(d mover.Direction) error {
	sr := rd(&e.channel(d).SR)
	switch {
	case sr&DMA_SR_INTERR != 0:
		return errDMAInternal
	case sr&DMA_SR_SLVERR != 0:
		return errDMASlave
	case sr&DMA_SR_DECERR != 0:
		return errDMADecode
	}
	return nil
}
