package fpga

import (
	"fmt"

	"github.com/jbrzusto/fpgamm/mover"
)

// Interrupt status register bits of the AXI4-Stream FIFO.
const (
	FIFO_INT_RPURE = 1 << 31 // receive packet underrun read
	FIFO_INT_RPORE = 1 << 30 // receive packet overrun read
	FIFO_INT_RPUE  = 1 << 29 // receive packet underrun
	FIFO_INT_TPOE  = 1 << 28 // transmit packet overrun
	FIFO_INT_TC    = 1 << 27 // transmit complete
	FIFO_INT_RC    = 1 << 26 // receive complete
	FIFO_INT_TSE   = 1 << 25 // transmit length mismatch
	FIFO_INT_TRC   = 1 << 24 // transmit reset complete
	FIFO_INT_RRC   = 1 << 23 // receive reset complete
	FIFO_INT_ALL   = 0xFFF80000
	FIFO_RESET_KEY = 0xA5 // value written to a reset register
)

// FIFORegs is a direct image of the AXI4-Stream FIFO register block.
type FIFORegs struct {
	ISR  uint32 `reg:"isr" mode:"rw" desc:"Interrupt Status: write 1 to clear; bit[27]: transmit complete; bit[26]: receive complete"`
	IER  uint32 `reg:"ier" mode:"rw" desc:"Interrupt Enable: same layout as ISR; left at zero since every wait is polled"`
	TDFR uint32 `reg:"tdfr" mode:"w" desc:"Transmit Data FIFO Reset: write 0xA5 to reset the transmit side"`
	TDFV uint32 `reg:"tdfv" mode:"r" desc:"Transmit Data FIFO Vacancy: free locations, in words"`
	TDFD uint32 `reg:"tdfd" mode:"w" desc:"Transmit Data FIFO Data: each write pushes one word"`
	TLR  uint32 `reg:"tlr" mode:"w" desc:"Transmit Length: packet length in bytes; writing it starts transmission"`
	RDFR uint32 `reg:"rdfr" mode:"w" desc:"Receive Data FIFO Reset: write 0xA5 to reset the receive side"`
	RDFO uint32 `reg:"rdfo" mode:"r" desc:"Receive Data FIFO Occupancy: words available to read"`
	RDFD uint32 `reg:"rdfd" mode:"rc" desc:"Receive Data FIFO Data: each read pops one word"`
	RLR  uint32 `reg:"rlr" mode:"rc" desc:"Receive Length: length of the packet at the head of the receive FIFO, in bytes"`
	SRR  uint32 `reg:"srr" mode:"w" desc:"AXI4-Stream Reset: write 0xA5 to reset the whole core"`
	TDR  uint32 `reg:"tdr" mode:"w" desc:"Transmit Destination: TDEST of the next packet"`
	RDR  uint32 `reg:"rdr" mode:"r" desc:"Receive Destination: TDEST of the packet at the head of the receive FIFO"`
}

// FIFO drives an AXI4-Stream FIFO through its registers.
type FIFO struct {
	*FIFORegs
}

var _ mover.FIFOPort = (*FIFO)(nil)

// NewFIFO wraps a register block.  regs may be a mapped device or plain memory.
func NewFIFO(regs *FIFORegs) *FIFO {
	return &FIFO{FIFORegs: regs}
}

// OpenFIFO maps the FIFO registers at base.
func OpenFIFO(m *Mem, base uint64) (*FIFO, error) {
	p, err := m.overlay(base)
	if err != nil {
		return nil, fmt.Errorf("fpga: fifo: %w", err)
	}
	return NewFIFO((*FIFORegs)(p)), nil
}

// Init resets the core and clears its interrupt status.  The status
// must read back as zero.
func (f *FIFO) Init() error {
	wr(&f.SRR, FIFO_RESET_KEY)
	wr(&f.ISR, FIFO_INT_ALL)
	if isr := rd(&f.ISR); isr != 0 {
		return fmt.Errorf("%w: fifo ISR reads 0x%08x after clear, expected 0", ErrInitFailed, isr)
	}
	return nil
}

func (f *FIFO) ClearStatus() { wr(&f.ISR, FIFO_INT_TC|FIFO_INT_RC) }
func (f *FIFO) TxVacancy() uint32 { return rd(&f.TDFV) }
func (f *FIFO) TxPutWord(w uint32) { wr(&f.TDFD, w) }
func (f *FIFO) TxSetLen(bytes uint32) { wr(&f.TLR, bytes) }
func (f *FIFO) IsTxDone() bool { return rd(&f.ISR)&FIFO_INT_TC != 0 }
func (f *FIFO) RxOccupancy() uint32 { return rd(&f.RDFO) }
func (f *FIFO) RxGetWord() uint32 { return rd(&f.RDFD) }
func (f *FIFO) IsRxDone() bool { return rd(&f.ISR)&FIFO_INT_RC != 0 }
