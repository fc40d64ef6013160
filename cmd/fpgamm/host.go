package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/jbrzusto/fpgamm/matrix"
	"github.com/jbrzusto/fpgamm/serial"
)

// writeCSV writes m as rows lines of cols values.
func writeCSV(path string, m []uint32, rows, cols int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				w.WriteByte(',')
			}
			w.WriteString(strconv.FormatInt(int64(int32(m[i*cols+j])), 10))
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// genCmd writes a random test case and the result the board should send back.
func genCmd() *cobra.Command {
	var (
		dir  string
		seed int64
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Write random A.csv, B.csv and the expected LABELS.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mm, err := matrix.ParseVariant(cfg.MatMul)
			if err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed))
			a := make([]uint32, matrix.ASize)
			b := make([]uint32, matrix.BSize)
			for i := range a {
				a[i] = uint32(rng.Intn(256))
			}
			for i := range b {
				b[i] = uint32(rng.Intn(256))
			}
			res := make([]uint32, matrix.ResSize)
			matrix.Multiply(mm, res, a, b, matrix.RowsA, matrix.ColsA, matrix.ColsB)

			if err := writeCSV(filepath.Join(dir, "A.csv"), a, matrix.RowsA, matrix.ColsA); err != nil {
				return err
			}
			if err := writeCSV(filepath.Join(dir, "B.csv"), b, matrix.RowsB, matrix.ColsB); err != nil {
				return err
			}
			if err := writeCSV(filepath.Join(dir, "LABELS.csv"), res, matrix.RowsA, matrix.ColsB); err != nil {
				return err
			}
			logger.Printf("wrote A.csv, B.csv and LABELS.csv (%s multiply, seed %d) to %s", mm, seed, dir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "output directory")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}

// sendCmd is the host end of the link: send A and B, print the result
// rows, and optionally compare them with LABELS.csv.
func sendCmd() *cobra.Command {
	var (
		device    string
		expect    string
		terminate bool
	)
	cmd := &cobra.Command{
		Use:   "send A.csv B.csv | send --terminate",
		Short: "Send matrices over a serial line and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !terminate && len(args) != 2 {
				return fmt.Errorf("need A and B files, or --terminate")
			}
			p, err := serial.Open(device)
			if err != nil {
				return err
			}
			atexit.Register(func() { p.Close() })

			if terminate {
				if _, err := p.WriteString("TERMINATE\n"); err != nil {
					return err
				}
				line, err := p.ReadLine()
				if err != nil {
					return err
				}
				fmt.Println(line)
				return nil
			}

			for _, name := range args {
				b, err := os.ReadFile(name)
				if err != nil {
					return err
				}
				if _, err := p.Write(b); err != nil {
					return err
				}
				if len(b) > 0 && b[len(b)-1] != '\n' {
					p.WriteString("\n")
				}
			}

			var got []string
			for len(got) < matrix.RowsA {
				line, err := p.ReadLine()
				if err != nil {
					return err
				}
				fmt.Println(line)
				if strings.HasPrefix(line, "STATS:") {
					return fmt.Errorf("run terminated after %d rows", len(got))
				}
				got = append(got, line)
			}
			if expect == "" {
				return nil
			}
			return compare(expect, got)
		},
	}
	cmd.Flags().StringVar(&device, "device", "/dev/ttyUSB0", "host serial device")
	cmd.Flags().StringVar(&expect, "expect", "", "LABELS.csv to compare the result with")
	cmd.Flags().BoolVar(&terminate, "terminate", false, "send TERMINATE and print the stats report")
	return cmd
}

func compare(path string, got []string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	want := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	bad := 0
	for i := range got {
		if i >= len(want) || strings.TrimSpace(want[i]) != got[i] {
			bad++
		}
	}
	if bad > 0 || len(want) != len(got) {
		return fmt.Errorf("%d of %d rows differ from %s", bad, len(got), path)
	}
	logger.Printf("all %d rows match %s", len(got), path)
	return nil
}
