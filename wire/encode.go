package wire

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jbrzusto/fpgamm/timer"
)

// An Encoder writes matrices as CSV rows.
type Encoder struct {
	w      io.Writer
	ColSep string
	RowSep string
	line   []byte
}

// NewEncoder returns an Encoder writing "," between columns and "\r\n" after rows.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, ColSep: ",", RowSep: "\r\n", line: make([]byte, 0, 128)}
}

// Encode writes m, row-major, as rows lines of cols values.
// Values are printed as signed 32-bit decimals.
func (e *Encoder) Encode(m []uint32, rows, cols int) error {
	if rows*cols > len(m) {
		return fmt.Errorf("wire: %dx%d matrix needs %d elements, have %d", rows, cols, rows*cols, len(m))
	}
	for i := 0; i < rows; i++ {
		e.line = e.line[:0]
		for j := 0; j < cols; j++ {
			if j > 0 {
				e.line = append(e.line, e.ColSep...)
			}
			e.line = strconv.AppendInt(e.line, int64(int32(m[i*cols+j])), 10)
		}
		e.line = append(e.line, e.RowSep...)
		if _, err := e.w.Write(e.line); err != nil {
			return fmt.Errorf("wire: writing row %d: %w", i, err)
		}
	}
	return nil
}

// Stats report labels for the third field.
const (
	LabelMatMul = "MATMUL"
	LabelTotal  = "TOTAL"
)

// WriteStats writes the one-line stats report
//
//	STATS:TX=<tx>,RX=<rx>,<label>=<value>\r\n
//
// where value is s.Compute for LabelMatMul and s.Total otherwise.
func WriteStats(w io.Writer, s timer.Stats, label string) error {
	third := s.Total
	if label == LabelMatMul {
		third = s.Compute
	}
	b := make([]byte, 0, 64)
	b = append(b, "STATS:TX="...)
	b = strconv.AppendUint(b, uint64(s.Tx), 10)
	b = append(b, ",RX="...)
	b = strconv.AppendUint(b, uint64(s.Rx), 10)
	b = append(b, ',')
	b = append(b, label...)
	b = append(b, '=')
	b = strconv.AppendUint(b, uint64(third), 10)
	b = append(b, "\r\n"...)
	_, err := w.Write(b)
	return err
}
