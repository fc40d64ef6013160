// Package mover moves a transmit buffer to the FPGA and a result buffer
// back, either word by word through an AXI4-Stream FIFO or as whole
// packets through an AXI DMA engine.  Both are driven by busy polling;
// nothing here uses interrupts.
//
// The Runner is written once against Mover.  A typical run is
//
//	m.Prepare(tx, rx)
//	m.SubmitSend(tx); m.WaitIdle(Send)
//	m.SubmitReceive(rx); m.WaitIdle(Receive)
package mover

import (
	"errors"
	"fmt"
	"time"
)

// WordSize is the width of one stream word in bytes.
const WordSize = 4

// Direction of a transfer.
type Direction int

const (
	Send    Direction = iota // memory to FPGA (MM2S, TX FIFO)
	Receive                  // FPGA to memory (S2MM, RX FIFO)
)

func (d Direction) String() string {
	switch d {
	case Send:
		return "send"
	case Receive:
		return "receive"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

var (
	// ErrTransferIncomplete means the device did not flag completion.
	ErrTransferIncomplete = errors.New("mover: transfer incomplete")
	// ErrTimeout means a poll limit was exhausted.
	ErrTimeout = errors.New("mover: timed out polling device")
	// ErrNotPrepared means a DMA submit did not follow a matching Prepare.
	ErrNotPrepared = errors.New("mover: buffers not prepared")
)

// Mover is a data-mover.
type Mover interface {
	// Prepare readies tx and rx for the device (DMA cache maintenance).
	Prepare(tx, rx []uint32) error
	// SubmitSend starts moving tx to the FPGA.
	SubmitSend(tx []uint32) error
	// SubmitReceive arms rx as the destination of the next result.
	SubmitReceive(rx []uint32) error
	// Busy reports whether a transfer in direction d is still running.
	Busy(d Direction) bool
	// WaitIdle polls until the transfer in direction d is done.
	WaitIdle(d Direction) error
}

// FirstWordWaiter is implemented by movers that can report when the
// first result word is available, before the receive completes.
type FirstWordWaiter interface {
	WaitFirstWord() error
}

// Poll bounds a busy-wait.  Limit is the number of unsuccessful polls
// allowed before giving up; zero means poll forever.  Delay is slept
// after each unsuccessful poll.
type Poll struct {
	Limit int
	Delay time.Duration
}

// Until polls cond until it is true.  It reports false if the limit was reached first.
func (p Poll) Until(cond func() bool) bool {
	for misses := 0; ; misses++ {
		if cond() {
			return true
		}
		if p.Limit > 0 && misses >= p.Limit {
			return false
		}
		if p.Delay > 0 {
			time.Sleep(p.Delay)
		}
	}
}

// State is where a mover is in its transfer sequence.
type State int

const (
	Idle State = iota

	// streaming FIFO
	Sending
	SendComplete
	Receiving
	ReceiveComplete

	// DMA
	CacheFlushed
	TxSubmitted
	TxDone
	RxSubmitted
	RxDone
)

var stateNames = [...]string{
	Idle:            "idle",
	Sending:         "sending",
	SendComplete:    "send complete",
	Receiving:       "receiving",
	ReceiveComplete: "receive complete",
	CacheFlushed:    "cache flushed",
	TxSubmitted:     "tx submitted",
	TxDone:          "tx done",
	RxSubmitted:     "rx submitted",
	RxDone:          "rx done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}
