package mover

import "fmt"

// FIFOPort is the register-level capability of an AXI4-Stream FIFO.
// Each call is one register access.
type FIFOPort interface {
	ClearStatus()          // clear the transmit and receive complete flags
	TxVacancy() uint32     // free words in the transmit FIFO
	TxPutWord(w uint32)    // push one word
	TxSetLen(bytes uint32) // write the packet length; starts transmission
	IsTxDone() bool        // transmit complete flag
	RxOccupancy() uint32   // words waiting in the receive FIFO
	RxGetWord() uint32     // pop one word
	IsRxDone() bool        // receive complete flag
}

// FIFO moves data one word at a time through a streaming FIFO.
type FIFO struct {
	port  FIFOPort
	poll  Poll
	state State
	rx    []uint32
	got   int
}

var (
	_ Mover           = (*FIFO)(nil)
	_ FirstWordWaiter = (*FIFO)(nil)
)

// NewFIFO returns a FIFO mover on port.  A zero poll limit waits forever.
func NewFIFO(port FIFOPort, poll Poll) *FIFO {
	return &FIFO{port: port, poll: poll}
}

// State returns the current transfer state.
func (f *FIFO) State() State { return f.state }

// Prepare is a no-op; FIFO words go through registers, not shared memory.
func (f *FIFO) Prepare(tx, rx []uint32) error {
	f.state = Idle
	return nil
}

// SubmitSend pushes tx word by word, waiting for vacancy before each,
// then writes the byte length to start the stream.
func (f *FIFO) SubmitSend(tx []uint32) error {
	f.port.ClearStatus()
	f.state = Sending
	for i, w := range tx {
		if !f.poll.Until(func() bool { return f.port.TxVacancy() > 0 }) {
			return fmt.Errorf("%w: no vacancy for word %d of %d", ErrTimeout, i, len(tx))
		}
		f.port.TxPutWord(w)
	}
	f.port.TxSetLen(uint32(len(tx) * WordSize))
	return nil
}

// SubmitReceive arms rx as the destination; words are popped by WaitIdle.
func (f *FIFO) SubmitReceive(rx []uint32) error {
	f.rx = rx
	f.got = 0
	f.state = Receiving
	return nil
}

// Busy reports whether a transfer is under way in direction d.
func (f *FIFO) Busy(d Direction) bool {
	switch d {
	case Send:
		return f.state == Sending && !f.port.IsTxDone()
	case Receive:
		return f.state == Receiving
	}
	return false
}

// WaitFirstWord polls until the receive FIFO holds at least one word.
func (f *FIFO) WaitFirstWord() error {
	if f.state != Receiving {
		return fmt.Errorf("mover: wait for first word in state %v", f.state)
	}
	if !f.poll.Until(func() bool { return f.port.RxOccupancy() > 0 }) {
		return fmt.Errorf("%w: no data in receive FIFO", ErrTimeout)
	}
	return nil
}

// WaitIdle polls until the transfer in direction d is done.  For Send
// that is the transmit complete flag.  For Receive, each poll that sees
// occupancy pops exactly one word, until rx is full; the receive
// complete flag must then be set.
func (f *FIFO) WaitIdle(d Direction) error {
	switch d {
	case Send:
		if f.state != Sending {
			return fmt.Errorf("mover: wait for send in state %v", f.state)
		}
		if !f.poll.Until(f.port.IsTxDone) {
			return fmt.Errorf("%w: transmit complete not set", ErrTimeout)
		}
		f.state = SendComplete
		return nil
	case Receive:
		if f.state != Receiving {
			return fmt.Errorf("mover: wait for receive in state %v", f.state)
		}
		for f.got < len(f.rx) {
			if !f.poll.Until(func() bool { return f.port.RxOccupancy() > 0 }) {
				return fmt.Errorf("%w: received %d of %d words", ErrTimeout, f.got, len(f.rx))
			}
			f.rx[f.got] = f.port.RxGetWord()
			f.got++
		}
		if !f.port.IsRxDone() {
			return fmt.Errorf("%w: receive complete not set after %d words", ErrTransferIncomplete, f.got)
		}
		f.state = ReceiveComplete
		return nil
	}
	return fmt.Errorf("mover: bad direction %v", d)
}
