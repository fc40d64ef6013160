// Package wire implements the text protocol spoken over the serial link:
// comma/newline separated decimal integers in, CRLF terminated CSV rows
// and a one-line stats report out.
package wire

import (
	"errors"
	"fmt"
	"io"
)

// Sentinel is the field that aborts ingestion for the current run.
const Sentinel = "TERMINATE"

// MaxField is the accumulator capacity; longer fields are truncated.
const MaxField = 19

// ProgressEvery is the default number of accepted fields between progress calls.
const ProgressEvery = 64

var (
	// ErrTerminated means the sentinel was received before the buffer was full.
	ErrTerminated = errors.New("wire: termination token received")
	// ErrCountMismatch means fewer fields arrived than expected.
	ErrCountMismatch = errors.New("wire: element count mismatch")
)

// An Ingestor parses fields from a byte source.
type Ingestor struct {
	r       io.ByteReader
	scratch []uint32
	acc     [MaxField]byte

	// Progress, if set, is called every Every accepted fields.
	Progress func(n, total int)
	Every    int
}

// NewIngestor returns an Ingestor reading from r that can fill
// buffers of up to max elements.
func NewIngestor(r io.ByteReader, max int) *Ingestor {
	return &Ingestor{
		r:       r,
		scratch: make([]uint32, max),
		Every:   ProgressEvery,
	}
}

// Ingest reads exactly len(dst) fields into dst.  It returns the
// number of fields accepted.  On any error dst is left as it was.
// Bytes are consumed up to and including the delimiter of the last
// field, so consecutive calls read consecutive blocks.
func (in *Ingestor) Ingest(dst []uint32) (int, error) {
	want := len(dst)
	if want > len(in.scratch) {
		return 0, fmt.Errorf("wire: buffer of %d exceeds ingest capacity %d", want, len(in.scratch))
	}
	buf := in.scratch[:want]
	n, k := 0, 0
	for n < want {
		c, err := in.r.ReadByte()
		if err != nil {
			return n, fmt.Errorf("%w: got %d of %d: %v", ErrCountMismatch, n, want, err)
		}
		switch c {
		case '\r':
			continue
		case ',', '\n':
			if k == 0 {
				continue
			}
			field := in.acc[:k]
			k = 0
			if string(field) == Sentinel {
				return n, ErrTerminated
			}
			buf[n] = uint32(atoi(field))
			n++
			if in.Progress != nil && in.Every > 0 && n%in.Every == 0 {
				in.Progress(n, want)
			}
		default:
			if k < len(in.acc) {
				in.acc[k] = c
				k++
			}
		}
	}
	copy(dst, buf)
	return n, nil
}

// atoi parses like C atoi: leading blanks, an optional sign, then
// digits up to the first non-digit.  Anything else yields 0.  The
// result saturates at the int32 limits.
func atoi(b []byte) int32 {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t') {
		i++
	}
	neg := false
	if i < len(b) && (b[i] == '-' || b[i] == '+') {
		neg = b[i] == '-'
		i++
	}
	var v int64
	for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
		v = v*10 + int64(b[i]-'0')
		if v > 1<<31 {
			v = 1 << 31
		}
	}
	if neg {
		v = -v
	}
	if v > 1<<31-1 {
		v = 1<<31 - 1
	}
	return int32(v)
}
