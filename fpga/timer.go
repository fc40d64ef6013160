package fpga

import (
	"fmt"

	"github.com/jbrzusto/fpgamm/timer"
)

// Control/status bits of AXI Timer counter 0.
const (
	TIMER_MDT0  = 1 << 0 // capture mode
	TIMER_UDT0  = 1 << 1 // count down
	TIMER_GENT0 = 1 << 2 // enable external generate signal
	TIMER_CAPT0 = 1 << 3 // enable external capture trigger
	TIMER_ARHT0 = 1 << 4 // auto reload
	TIMER_LOAD0 = 1 << 5 // load counter from TLR0
	TIMER_ENIT0 = 1 << 6 // enable interrupt
	TIMER_ENT0  = 1 << 7 // enable counter
	TIMER_T0INT = 1 << 8 // interrupt occurred; write 1 to clear

	TIMER_TEST_PATTERN = 0xA5A5A5A5
)

// TimerRegs is a direct image of counter 0 of the AXI Timer.
type TimerRegs struct {
	TCSR0 uint32 `reg:"tcsr0" mode:"rw" desc:"Control/Status: bit[5]: load; bit[7]: enable; other bits left clear (count up, no reload, no interrupt)"`
	TLR0  uint32 `reg:"tlr0" mode:"rw" desc:"Load: value copied into the counter while TCSR0 load bit is set"`
	TCR0  uint32 `reg:"tcr0" mode:"r" desc:"Counter: current count in AXI clock cycles"`
}

// Timer is counter 0 of an AXI Timer used as a free-running up-counter.
type Timer struct {
	*TimerRegs
}

var _ timer.Counter = (*Timer)(nil)

// NewTimer wraps a register block.
func NewTimer(regs *TimerRegs) *Timer {
	return &Timer{TimerRegs: regs}
}

// OpenTimer maps the timer registers at base.
func OpenTimer(m *Mem, base uint64) (*Timer, error) {
	p, err := m.overlay(base)
	if err != nil {
		return nil, fmt.Errorf("fpga: timer: %w", err)
	}
	return NewTimer((*TimerRegs)(p)), nil
}

// Init checks that the load register holds a written value, then
// leaves the counter stopped at zero.
func (t *Timer) Init() error {
	wr(&t.TCSR0, 0)
	wr(&t.TLR0, TIMER_TEST_PATTERN)
	if v := rd(&t.TLR0); v != TIMER_TEST_PATTERN {
		return fmt.Errorf("%w: timer load register reads 0x%08x, wrote 0x%08x", ErrInitFailed, v, uint32(TIMER_TEST_PATTERN))
	}
	wr(&t.TLR0, 0)
	t.Reset()
	return nil
}

// Reset loads zero into the counter without changing whether it runs.
func (t *Timer) Reset() {
	wr(&t.TLR0, 0)
	cs := rd(&t.TCSR0)
	wr(&t.TCSR0, cs|TIMER_LOAD0)
	wr(&t.TCSR0, cs&^TIMER_LOAD0)
}

func (t *Timer) Start() {
	wr(&t.TCSR0, (rd(&t.TCSR0)&^TIMER_LOAD0)|TIMER_ENT0)
}

func (t *Timer) Stop() {
	wr(&t.TCSR0, rd(&t.TCSR0)&^TIMER_ENT0)
}

func (t *Timer) Value() uint32 { return rd(&t.TCR0) }
