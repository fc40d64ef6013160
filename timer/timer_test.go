package timer

import (
	"testing"

	. "github.com/onsi/gomega"
)

// fakeCounter advances by step on every read while running.
type fakeCounter struct {
	v       uint32
	step    uint32
	running bool
	resets  int
}

func (f *fakeCounter) Reset() { f.v = 0; f.resets++ }
func (f *fakeCounter) Start() { f.running = true }
func (f *fakeCounter) Stop()  { f.running = false }
func (f *fakeCounter) Value() uint32 {
	if f.running {
		f.v += f.step
	}
	return f.v
}

func TestLapsAreDeltas(t *testing.T) {
	g := NewWithT(t)

	c := &fakeCounter{step: 10}
	sw := NewStopwatch(c)
	sw.Restart()
	g.Expect(sw.Lap()).To(Equal(uint32(10)))
	g.Expect(sw.Lap()).To(Equal(uint32(10)))
	g.Expect(sw.Elapsed()).To(Equal(uint32(30)))
	// the Elapsed read above is not a checkpoint
	g.Expect(sw.Lap()).To(Equal(uint32(20)))
	sw.Stop()
	g.Expect(sw.Lap()).To(Equal(uint32(0)))
}

func TestRestartPerPhase(t *testing.T) {
	g := NewWithT(t)

	c := &fakeCounter{step: 7}
	sw := NewStopwatch(c)
	sw.Restart()
	g.Expect(sw.Elapsed()).To(Equal(uint32(7)))
	sw.Stop()
	sw.Restart()
	g.Expect(sw.Elapsed()).To(Equal(uint32(7)))
	g.Expect(c.resets).To(Equal(2))
}

func TestLapWraps(t *testing.T) {
	g := NewWithT(t)

	c := &fakeCounter{step: 0, running: true}
	sw := NewStopwatch(c)
	sw.last = 0xFFFFFFF0
	c.v = 0x10
	g.Expect(sw.Lap()).To(Equal(uint32(0x20)))
}

func TestStatsReset(t *testing.T) {
	g := NewWithT(t)
	s := Stats{Tx: 1, Rx: 2, Compute: 3, Total: 4}
	s.Reset()
	g.Expect(s).To(Equal(Stats{}))
}
