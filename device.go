package fpgamm

import (
	"log"

	"github.com/jbrzusto/fpgamm/fpga"
	"github.com/jbrzusto/fpgamm/matrix"
	"github.com/jbrzusto/fpgamm/mover"
	"github.com/jbrzusto/fpgamm/sim"
	"github.com/jbrzusto/fpgamm/timer"
)

// Devices are the data mover and counter a Runner drives.
type Devices struct {
	Mover   mover.Mover
	Counter timer.Counter

	mem *fpga.Mem
}

// Close releases any mapped memory.
func (d *Devices) Close() error {
	if d.mem == nil {
		return nil
	}
	return d.mem.Close()
}

// OpenDevices builds the devices cfg asks for, on the hardware or
// simulated.  Hardware devices are reset and self-tested.
func OpenDevices(cfg *Config, logger *log.Logger) (*Devices, error) {
	v := Variants[cfg.Mode]
	if cfg.Simulate {
		return openSim(cfg, v)
	}
	m, err := fpga.OpenMem(cfg.Mem.Device)
	if err != nil {
		return nil, err
	}
	d, err := openHardware(cfg, v, m, logger)
	if err != nil {
		m.Close()
		return nil, err
	}
	return d, nil
}

func openHardware(cfg *Config, v Variant, m *fpga.Mem, logger *log.Logger) (*Devices, error) {
	d := &Devices{mem: m}

	tm, err := fpga.OpenTimer(m, cfg.Timer.Base)
	if err != nil {
		return nil, err
	}
	if err := tm.Init(); err != nil {
		return nil, err
	}
	logger.Printf("timer at 0x%08x ready", cfg.Timer.Base)
	d.Counter = tm

	if v.DMA {
		eng, err := fpga.OpenDMA(m, cfg.DMA.Base)
		if err != nil {
			return nil, err
		}
		if err := eng.Init(); err != nil {
			return nil, err
		}
		tx, err := fpga.NewWindow(m, cfg.DMA.TxBuffer, matrix.TxSize)
		if err != nil {
			return nil, err
		}
		rx, err := fpga.NewWindow(m, cfg.DMA.RxBuffer, matrix.TxSize)
		if err != nil {
			return nil, err
		}
		logger.Printf("dma at 0x%08x ready; tx buffer 0x%08x, rx buffer 0x%08x", cfg.DMA.Base, cfg.DMA.TxBuffer, cfg.DMA.RxBuffer)
		d.Mover = mover.NewDMA(eng, tx, rx, mover.Poll{Limit: cfg.DMA.PollLimit, Delay: cfg.DMA.PollDelay})
		return d, nil
	}

	f, err := fpga.OpenFIFO(m, cfg.FIFO.Base)
	if err != nil {
		return nil, err
	}
	if err := f.Init(); err != nil {
		return nil, err
	}
	logger.Printf("fifo at 0x%08x ready", cfg.FIFO.Base)
	d.Mover = mover.NewFIFO(f, mover.Poll{Limit: cfg.FIFO.PollLimit, Delay: cfg.FIFO.PollDelay})
	return d, nil
}

// openSim wires simulated devices to a shared clock, so the counter
// measures the register traffic of each phase.
func openSim(cfg *Config, v Variant) (*Devices, error) {
	mm, err := matrix.ParseVariant(cfg.MatMul)
	if err != nil {
		return nil, err
	}
	clk := new(sim.Clock)
	var core sim.Core = sim.Accelerator{Variant: mm}
	if v.Loopback {
		core = sim.Loopback{}
	}
	d := &Devices{Counter: sim.NewTimer(clk)}
	if v.DMA {
		tx := sim.NewRegion(cfg.DMA.TxBuffer, matrix.TxSize)
		rx := sim.NewRegion(cfg.DMA.RxBuffer, matrix.TxSize)
		eng := sim.NewDMA(clk, core, tx, rx)
		eng.Latency = cfg.Sim.Latency
		d.Mover = mover.NewDMA(eng, tx, rx, mover.Poll{Limit: cfg.DMA.PollLimit})
		return d, nil
	}
	f := sim.NewFIFO(clk, core)
	f.Depth = cfg.Sim.FIFODepth
	f.Latency = cfg.Sim.Latency
	d.Mover = mover.NewFIFO(f, mover.Poll{Limit: cfg.FIFO.PollLimit})
	return d, nil
}
