// Package fpgamm runs the matrix-multiply pipeline between a serial
// link and the FPGA: ingest A and B as CSV, merge them into one packet,
// move it through the streaming FIFO or the DMA engine, multiply (on
// the CPU for the loopback build), and send the result back as CSV.
//
// Each phase is timed with the AXI Timer.  A TERMINATE field in place
// of a value aborts the current run and sends a one-line stats report
// for the last completed run instead of a result.
package fpgamm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jbrzusto/fpgamm/buffer"
	"github.com/jbrzusto/fpgamm/matrix"
	"github.com/jbrzusto/fpgamm/mover"
	"github.com/jbrzusto/fpgamm/timer"
	"github.com/jbrzusto/fpgamm/wire"
)

// Modes, as named in the config file.
const (
	ModeFIFO      = "fifo"
	ModeFIFOAccel = "fifo-accel"
	ModeDMA       = "dma"
)

// Variant describes one FPGA build.
type Variant struct {
	RxWords    int    // words read back
	Loopback   bool   // the FPGA echoes; multiply on the CPU
	DMA        bool   // move data with the DMA engine instead of the FIFO
	Continuous bool   // one timeline with laps instead of a restart per phase
	FirstWord  bool   // time the multiply up to the first result word
	Label      string // third field of the stats report
}

// Variants maps each mode to its build.
var Variants = map[string]Variant{
	ModeFIFO:      {RxWords: matrix.TxSize, Loopback: true, Label: wire.LabelMatMul},
	ModeFIFOAccel: {RxWords: matrix.ResSize, Continuous: true, FirstWord: true, Label: wire.LabelMatMul},
	ModeDMA:       {RxWords: matrix.ResSize, DMA: true, Continuous: true, Label: wire.LabelTotal},
}

// Transport is the serial link: bytes in, text out.
type Transport interface {
	io.ByteReader
	io.Writer
}

// Runner owns every buffer and device handle used by the pipeline.
type Runner struct {
	cfg   *Config
	v     Variant
	mm    matrix.Variant
	dev   *Devices
	port  Transport
	log   *log.Logger
	bufs  buffer.Set
	in    *wire.Ingestor
	enc   *wire.Encoder
	sw    *timer.Stopwatch
	stats timer.Stats
	runs  int
}

// NewRunner returns a Runner moving data through dev and talking over port.
func NewRunner(cfg *Config, dev *Devices, port Transport, logger *log.Logger) (*Runner, error) {
	v, ok := Variants[cfg.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: mode %q", ErrBadConfig, cfg.Mode)
	}
	mm, err := matrix.ParseVariant(cfg.MatMul)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if v.FirstWord {
		if _, ok := dev.Mover.(mover.FirstWordWaiter); !ok {
			return nil, fmt.Errorf("%w: mode %s needs a mover that reports the first word", ErrBadConfig, cfg.Mode)
		}
	}
	r := &Runner{
		cfg:  cfg,
		v:    v,
		mm:   mm,
		dev:  dev,
		port: port,
		log:  logger,
		in:   wire.NewIngestor(port, matrix.ASize),
		enc:  wire.NewEncoder(port),
		sw:   timer.NewStopwatch(dev.Counter),
	}
	if cfg.Progress > 0 {
		r.in.Every = cfg.Progress
		r.in.Progress = func(n, total int) {
			r.log.Printf("received %d of %d elements", n, total)
		}
	}
	return r, nil
}

// Stats returns the timings of the last completed run.
func (r *Runner) Stats() timer.Stats { return r.stats }

// Runs returns the number of completed runs.
func (r *Runner) Runs() int { return r.runs }

// Run repeats RunOnce until an error other than wire.ErrTerminated,
// or until ctx is done.  With Once set it runs a single pipeline.
func (r *Runner) Run(ctx context.Context) error {
	for {
		err := r.RunOnce(ctx)
		switch {
		case err == nil:
		case errors.Is(err, wire.ErrTerminated):
			r.log.Print("run terminated; waiting for new matrices")
		default:
			return err
		}
		if r.cfg.Once {
			return nil
		}
	}
}

// RunOnce runs the pipeline once: ingest, merge, transfer, multiply if
// the FPGA only echoed, and encode the result to the link.
func (r *Runner) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.log.Printf("waiting for matrix A (%dx%d)", matrix.RowsA, matrix.ColsA)
	if err := r.ingest("A", r.bufs.A[:]); err != nil {
		return err
	}
	r.log.Printf("waiting for matrix B (%dx%d)", matrix.RowsB, matrix.ColsB)
	if err := r.ingest("B", r.bufs.B[:]); err != nil {
		return err
	}

	tx := r.bufs.MergeTx()
	rx := r.bufs.RxSlice(r.v.RxWords)
	if err := r.dev.Mover.Prepare(tx, rx); err != nil {
		return fmt.Errorf("fpgamm: prepare: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.stats.Reset()
	if err := r.transfer(tx, rx); err != nil {
		r.sw.Stop()
		return fmt.Errorf("fpgamm: transfer: %w", err)
	}

	res := rx
	if r.v.Loopback {
		r.sw.Restart()
		matrix.Multiply(r.mm, r.bufs.Res[:], rx[:matrix.ASize], rx[matrix.ASize:matrix.TxSize], matrix.RowsA, matrix.ColsA, matrix.ColsB)
		r.stats.Compute = r.sw.Elapsed()
		r.sw.Stop()
		r.stats.Total = r.stats.Tx + r.stats.Rx + r.stats.Compute
		res = r.bufs.Res[:]
	}

	if err := r.enc.Encode(res, matrix.RowsA, matrix.ColsB); err != nil {
		return fmt.Errorf("fpgamm: sending result: %w", err)
	}
	r.runs++
	s := r.stats
	r.log.Printf("run %d: tx %d, rx %d, compute %d, total %d ticks", r.runs, s.Tx, s.Rx, s.Compute, s.Total)
	return nil
}

// ingest fills dst from the link.  On the termination token it sends
// the stats report before returning.
func (r *Runner) ingest(name string, dst []uint32) error {
	_, err := r.in.Ingest(dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, wire.ErrTerminated) {
		r.log.Printf("termination token while reading %s; sending stats", name)
		if werr := wire.WriteStats(r.port, r.stats, r.v.Label); werr != nil {
			return fmt.Errorf("fpgamm: sending stats: %w", werr)
		}
		return err
	}
	return fmt.Errorf("fpgamm: matrix %s: %w", name, err)
}

// transfer sends tx and receives into rx, filling in the timings.
func (r *Runner) transfer(tx, rx []uint32) error {
	m := r.dev.Mover
	r.sw.Restart()
	if err := m.SubmitSend(tx); err != nil {
		return err
	}
	if err := m.WaitIdle(mover.Send); err != nil {
		return err
	}
	if r.v.Continuous {
		r.stats.Tx = r.sw.Lap()
	} else {
		r.stats.Tx = r.sw.Elapsed()
		r.sw.Restart()
	}

	if err := m.SubmitReceive(rx); err != nil {
		return err
	}
	if r.v.FirstWord {
		if err := m.(mover.FirstWordWaiter).WaitFirstWord(); err != nil {
			return err
		}
		r.stats.Compute = r.sw.Lap()
	}
	if err := m.WaitIdle(mover.Receive); err != nil {
		return err
	}
	if r.v.Continuous {
		r.stats.Rx = r.sw.Lap()
		r.stats.Total = r.sw.Elapsed()
	} else {
		r.stats.Rx = r.sw.Elapsed()
	}
	r.sw.Stop()
	return nil
}
