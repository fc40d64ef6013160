// Package timer brackets pipeline phases with a free-running counter.
//
// A Counter is the hardware capability: reset to zero, start, stop and
// read.  A Stopwatch layers the two measurement patterns on top of it:
// restart before each phase (phases are disjoint), or restart once and
// take laps (phases share one timeline).  Which pattern a build uses is
// the caller's choice.
package timer

// Counter is a free-running up-counter.
type Counter interface {
	Reset()        // load zero
	Start()        // begin counting
	Stop()         // freeze the count
	Value() uint32 // current count
}

// Stopwatch measures elapsed ticks on a Counter.
type Stopwatch struct {
	c    Counter
	last uint32 // reading at the previous checkpoint
}

// NewStopwatch returns a Stopwatch on c.
func NewStopwatch(c Counter) *Stopwatch {
	return &Stopwatch{c: c}
}

// Restart zeroes the counter and starts it.
func (sw *Stopwatch) Restart() {
	sw.c.Reset()
	sw.c.Start()
	sw.last = 0
}

// Elapsed returns the raw counter reading.
func (sw *Stopwatch) Elapsed() uint32 {
	return sw.c.Value()
}

// Lap returns the ticks since the previous checkpoint (Restart or Lap)
// and makes the current reading the new checkpoint.
func (sw *Stopwatch) Lap() uint32 {
	v := sw.c.Value()
	d := v - sw.last
	sw.last = v
	return d
}

// Stop freezes the counter.
func (sw *Stopwatch) Stop() {
	sw.c.Stop()
}

// Stats holds elapsed ticks for one run.
type Stats struct {
	Tx      uint32 // transmit phase
	Rx      uint32 // receive phase
	Compute uint32 // multiply phase, on the CPU or in the FPGA
	Total   uint32 // whole timed section
}

// Reset zeroes all fields.
func (s *Stats) Reset() {
	*s = Stats{}
}
