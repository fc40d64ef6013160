package mover

import "fmt"

// DMAEngine is the capability of a simple-mode (no scatter/gather) DMA engine.
type DMAEngine interface {
	// Transfer starts one packet of length bytes at bus address addr.
	Transfer(d Direction, addr uint64, length uint32) error
	// Busy reports whether the channel for d is still moving data.
	Busy(d Direction) bool
	// Fault returns the error latched by the channel for d, if any.
	Fault(d Direction) error
}

// Region is memory the DMA engine can reach, seen through the CPU cache.
type Region interface {
	Words() []uint32   // CPU view
	Addr() uint64      // bus address of Words()[0]
	Flush() error      // write back dirty lines so the device sees CPU writes
	Invalidate() error // drop cached lines so the CPU sees device writes
}

// DMA moves whole packets between staging regions and the FPGA.
type DMA struct {
	eng    DMAEngine
	txr    Region
	rxr    Region
	poll   Poll
	state  State
	txLen  int
	rxLen  int
	rxDest []uint32
}

var _ Mover = (*DMA)(nil)

// NewDMA returns a DMA mover that stages data in tx and rx.
func NewDMA(eng DMAEngine, tx, rx Region, poll Poll) *DMA {
	return &DMA{eng: eng, txr: tx, rxr: rx, poll: poll}
}

// State returns the current transfer state.
func (m *DMA) State() State { return m.state }

// Prepare copies tx into the transmit region and flushes both regions.
// The receive region is flushed so that the invalidate after the
// transfer cannot write back stale lines over device data.
func (m *DMA) Prepare(tx, rx []uint32) error {
	m.state = Idle
	if len(tx) > len(m.txr.Words()) {
		return fmt.Errorf("mover: %d words exceed transmit region of %d", len(tx), len(m.txr.Words()))
	}
	if len(rx) > len(m.rxr.Words()) {
		return fmt.Errorf("mover: %d words exceed receive region of %d", len(rx), len(m.rxr.Words()))
	}
	copy(m.txr.Words(), tx)
	if err := m.txr.Flush(); err != nil {
		return fmt.Errorf("mover: flushing transmit region: %w", err)
	}
	if err := m.rxr.Flush(); err != nil {
		return fmt.Errorf("mover: flushing receive region: %w", err)
	}
	m.txLen, m.rxLen = len(tx), len(rx)
	m.state = CacheFlushed
	return nil
}

// SubmitSend starts the transmit packet.  tx must be what was prepared.
func (m *DMA) SubmitSend(tx []uint32) error {
	if m.state != CacheFlushed || len(tx) != m.txLen {
		return fmt.Errorf("%w: send of %d words in state %v", ErrNotPrepared, len(tx), m.state)
	}
	if err := m.eng.Transfer(Send, m.txr.Addr(), uint32(len(tx)*WordSize)); err != nil {
		return fmt.Errorf("mover: starting transmit: %w", err)
	}
	m.state = TxSubmitted
	return nil
}

// SubmitReceive starts the receive packet; data lands in rx after WaitIdle(Receive).
func (m *DMA) SubmitReceive(rx []uint32) error {
	if m.state != TxDone || len(rx) != m.rxLen {
		return fmt.Errorf("%w: receive of %d words in state %v", ErrNotPrepared, len(rx), m.state)
	}
	if err := m.eng.Transfer(Receive, m.rxr.Addr(), uint32(len(rx)*WordSize)); err != nil {
		return fmt.Errorf("mover: starting receive: %w", err)
	}
	m.rxDest = rx
	m.state = RxSubmitted
	return nil
}

// Busy reports whether the engine channel for d is running.
func (m *DMA) Busy(d Direction) bool {
	return m.eng.Busy(d)
}

// WaitIdle polls the engine until the channel for d is idle.  Running
// out of polls is ErrTimeout, never success.  After a receive the
// region is invalidated and copied out.
func (m *DMA) WaitIdle(d Direction) error {
	want, next := TxSubmitted, TxDone
	if d == Receive {
		want, next = RxSubmitted, RxDone
	}
	if m.state != want {
		return fmt.Errorf("mover: wait for %v in state %v", d, m.state)
	}
	if !m.poll.Until(func() bool { return !m.eng.Busy(d) }) {
		return fmt.Errorf("%w: %v channel still busy after %d polls", ErrTimeout, d, m.poll.Limit)
	}
	if err := m.eng.Fault(d); err != nil {
		return fmt.Errorf("%w: %v channel: %v", ErrTransferIncomplete, d, err)
	}
	if d == Receive {
		if err := m.rxr.Invalidate(); err != nil {
			return fmt.Errorf("mover: invalidating receive region: %w", err)
		}
		copy(m.rxDest, m.rxr.Words()[:m.rxLen])
	}
	m.state = next
	return nil
}
