// Command fpgamm runs the matrix-multiply pipeline on the board, and
// carries the host-side helpers that go with it.
//
// Usage:
//
//	fpgamm run [--stdio]          serve matrices arriving on the serial link
//	fpgamm regs [REG ...]         show FPGA registers
//	fpgamm regmap                 print register offsets as C #defines
//	fpgamm gen                    write random A.csv, B.csv and LABELS.csv
//	fpgamm send A.csv B.csv       (host) send matrices and print the result
//
// Configuration is read from fpgamm.toml in /opt or the current
// directory, then overridden by FPGAMM_* environment variables (a .env
// file is loaded into the environment first) and by flags.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/jbrzusto/fpgamm"
	"github.com/jbrzusto/fpgamm/serial"
)

var (
	v       = fpgamm.NewViper()
	cfgFile string
	logger  = log.New(os.Stderr, "fpgamm: ", log.LstdFlags)
)

// loadConfig reads .env, the config file and the environment, in that
// order of increasing precedence below flags.
func loadConfig() (*fpgamm.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	found, err := fpgamm.LoadConfig(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Print("no fpgamm.toml found; using defaults")
	}
	return fpgamm.ConfigFrom(v)
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fpgamm",
		Short:         "Move matrices between a serial link and an FPGA multiplier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: fpgamm.toml in /opt or .)")
	pf.String("mode", fpgamm.ModeFIFO, "FPGA build: fifo, fifo-accel or dma")
	pf.Bool("simulate", false, "use simulated devices instead of /dev/mem")
	v.BindPFlag("mode", pf.Lookup("mode"))
	v.BindPFlag("simulate", pf.Lookup("simulate"))

	root.AddCommand(runCmd(), regsCmd(), regmapCmd(), genCmd(), sendCmd())
	return root
}

func runCmd() *cobra.Command {
	var stdio bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve matrices arriving on the serial link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dev, err := fpgamm.OpenDevices(cfg, logger)
			if err != nil {
				return err
			}
			atexit.Register(func() { dev.Close() })

			var port fpgamm.Transport
			if stdio {
				port = serial.New(os.Stdin, os.Stdout)
			} else {
				p, err := serial.Open(cfg.Serial.Device)
				if err != nil {
					return err
				}
				atexit.Register(func() { p.Close() })
				port = p
			}

			r, err := fpgamm.NewRunner(cfg, dev, port, logger)
			if err != nil {
				return err
			}
			logger.Printf("mode %s, multiply %s, simulate %v", cfg.Mode, cfg.MatMul, cfg.Simulate)

			// reads block, so a signal exits through atexit rather than ctx
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			go func() {
				s := <-sig
				logger.Printf("%v; exiting after %d runs", s, r.Runs())
				atexit.Exit(1)
			}()
			return r.Run(context.Background())
		},
	}
	cmd.Flags().BoolVar(&stdio, "stdio", false, "use stdin/stdout instead of the serial device")
	cmd.Flags().Bool("once", false, "run the pipeline once and exit")
	v.BindPFlag("once", cmd.Flags().Lookup("once"))
	return cmd
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		logger.Print(err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
