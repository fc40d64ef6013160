// Interface to the matrix-multiply FPGA build.
//
// FPGA registers and the DMA staging buffers are accessed via mmap()ing
// segments of /dev/mem and coercing the returned []byte into pointers
// to structs, using unsafe.Pointer()
//
// The programmable logic carries three AXI4-Lite slaves:
//
// - AXI4-Stream FIFO: memory-mapped transmit and receive FIFOs in front
// of the stream that feeds the loopback path or the multiply core.
// Words are pushed and popped one at a time through data port
// registers; writing the transmit length register sends the packet.
//
// - AXI DMA (simple mode): an MM2S channel that streams a packet out of
// DDR and an S2MM channel that writes the result packet back.  The
// staging buffers live in a reserved DDR window.
//
// - AXI Timer: counter 0 is a free-running 32-bit up-counter on the
// AXI clock, used to time each phase of a run.
//
// All register accesses go through sync/atomic so that polling loops
// reread the hardware every iteration.
package fpga

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	// ErrConfigMissing means a device has no address or its memory cannot be mapped.
	ErrConfigMissing = errors.New("fpga: device configuration missing")
	// ErrInitFailed means a device failed its reset or self-test.
	ErrInitFailed = errors.New("fpga: device initialization failed")
)

// Default physical addresses for the reference block design.
const (
	FIFO_BASE_ADDR  = 0x43C00000 // AXI4-Stream FIFO registers
	DMA_BASE_ADDR   = 0x40400000 // AXI DMA registers
	TIMER_BASE_ADDR = 0x42800000 // AXI Timer registers
	MEM_BASE_ADDR   = 0x01000000 // start of the DDR window reserved for DMA
	TX_BUFFER_BASE  = MEM_BASE_ADDR + 0x00100000
	RX_BUFFER_BASE  = MEM_BASE_ADDR + 0x00300000
	REG_SPAN        = 0x1000 // bytes mapped per register block
)

// Mem is an open /dev/mem with the segments mapped from it.
type Mem struct {
	file *os.File
	maps [][]byte
}

// OpenMem opens the physical memory device at path (normally /dev/mem).
func OpenMem(path string) (*Mem, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open %q: %v", ErrConfigMissing, path, err)
	}
	return &Mem{file: f}, nil
}

// mapRange maps size bytes at physical address base.  It returns the
// page-aligned mapping and the offset of base within it.
func (m *Mem) mapRange(base uint64, size int) ([]byte, int, error) {
	if base == 0 {
		return nil, 0, fmt.Errorf("%w: no address configured", ErrConfigMissing)
	}
	pg := uint64(os.Getpagesize())
	off := int(base & (pg - 1))
	b, err := unix.Mmap(int(m.file.Fd()), int64(base-uint64(off)), size+off, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: mmap 0x%08x+0x%x: %v", ErrConfigMissing, base, size, err)
	}
	m.maps = append(m.maps, b)
	return b, off, nil
}

// Map maps size bytes of physical memory at base.
func (m *Mem) Map(base uint64, size int) ([]byte, error) {
	b, off, err := m.mapRange(base, size)
	if err != nil {
		return nil, err
	}
	return b[off : off+size], nil
}

// Close unmaps every segment and closes the device.
func (m *Mem) Close() error {
	if m.file == nil {
		return nil
	}
	for i := len(m.maps) - 1; i >= 0; i-- {
		_ = unix.Munmap(m.maps[i])
	}
	m.maps = nil
	err := m.file.Close()
	m.file = nil
	return err
}

// overlay maps a register block and returns a pointer to its first byte.
func (m *Mem) overlay(base uint64) (unsafe.Pointer, error) {
	b, err := m.Map(base, REG_SPAN)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(&b[0]), nil
}

func rd(p *uint32) uint32    { return atomic.LoadUint32(p) }
func wr(p *uint32, v uint32) { atomic.StoreUint32(p, v) }

// Window is a DMA staging buffer in physical memory.
type Window struct {
	page  []byte
	words []uint32
	addr  uint64
}

// NewWindow maps n words at physical address addr.
func NewWindow(m *Mem, addr uint64, n int) (*Window, error) {
	page, off, err := m.mapRange(addr, n*4)
	if err != nil {
		return nil, err
	}
	return &Window{
		page:  page,
		words: unsafe.Slice((*uint32)(unsafe.Pointer(&page[off])), n),
		addr:  addr,
	}, nil
}

// Words returns the CPU view of the window.
func (w *Window) Words() []uint32 { return w.words }

// Addr returns the bus address of the first word.
func (w *Window) Addr() uint64 { return w.addr }

// Flush writes the window back so the DMA engine sees CPU writes.
func (w *Window) Flush() error {
	return unix.Msync(w.page, unix.MS_SYNC)
}

// Invalidate drops cached copies so the CPU sees what the DMA engine wrote.
func (w *Window) Invalidate() error {
	return unix.Msync(w.page, unix.MS_INVALIDATE)
}
