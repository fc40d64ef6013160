package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/jbrzusto/fpgamm/fpga"
)

type block struct {
	name string
	regs interface{}
}

// blocks maps the register blocks without resetting them.
func blocks(m *fpga.Mem, fifoBase, dmaBase, timerBase uint64) ([]block, error) {
	f, err := fpga.OpenFIFO(m, fifoBase)
	if err != nil {
		return nil, err
	}
	d, err := fpga.OpenDMA(m, dmaBase)
	if err != nil {
		return nil, err
	}
	t, err := fpga.OpenTimer(m, timerBase)
	if err != nil {
		return nil, err
	}
	return []block{{"fifo", f.FIFORegs}, {"dma", d.DMARegs}, {"timer", t.TimerRegs}}, nil
}

// regsCmd shows one or more registers at repeated intervals.  With no
// names it shows every register that can be read without side effects.
func regsCmd() *cobra.Command {
	var (
		count    int
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "regs [REG ...]",
		Short: "Show FPGA registers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := fpga.OpenMem(cfg.Mem.Device)
			if err != nil {
				return err
			}
			atexit.Register(func() { m.Close() })
			bs, err := blocks(m, cfg.FIFO.Base, cfg.DMA.Base, cfg.Timer.Base)
			if err != nil {
				return err
			}

			type sel struct {
				b block
				r fpga.Reg
			}
			var picked []sel
			for _, name := range args {
				found := false
				for _, b := range bs {
					if r, ok := fpga.FindReg(fpga.RegisterMap(b.regs), name); ok {
						picked = append(picked, sel{b, r})
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("no register named %q", name)
				}
			}

			for i := 0; i < count; i++ {
				if i > 0 {
					time.Sleep(interval)
				}
				if len(picked) == 0 {
					for _, b := range bs {
						if err := fpga.WriteRegs(os.Stdout, b.name, b.regs); err != nil {
							return err
						}
					}
					continue
				}
				for _, p := range picked {
					if !p.r.Readable() {
						fmt.Printf("%-6s %-16s (%s; not read)\n", p.b.name, p.r.RegName, p.r.Mode)
						continue
					}
					fmt.Printf("%-6s %-16s 0x%08x\n", p.b.name, p.r.RegName, p.r.Read(p.b.regs))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of times to show the registers")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "time between repeats")
	return cmd
}

// regmapCmd prints the register offsets of every block as C #defines,
// for code that drives the same build without this program.
func regmapCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "regmap",
		Short: "Print register offsets as C #defines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			fmt.Fprintf(w, "#define FIFO_BASE_ADDR  0x%08x\n", fpga.FIFO_BASE_ADDR)
			fmt.Fprintf(w, "#define DMA_BASE_ADDR   0x%08x\n", fpga.DMA_BASE_ADDR)
			fmt.Fprintf(w, "#define TIMER_BASE_ADDR 0x%08x\n\n", fpga.TIMER_BASE_ADDR)
			for _, b := range []block{{"fifo", new(fpga.FIFORegs)}, {"dma", new(fpga.DMARegs)}, {"timer", new(fpga.TimerRegs)}} {
				if err := fpga.WriteDefines(w, b.name, b.regs); err != nil {
					return err
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
