// Package serial is the byte transport between the board and the host:
// a tty opened raw, or any reader/writer pair standing in for one.
package serial

import (
	"bufio"
	"fmt"
	"io"

	tty "github.com/mattn/go-tty"
)

// Port reads bytes from, and writes bytes to, the other end of a link.
type Port struct {
	r     *bufio.Reader
	w     io.Writer
	close func() error
}

// New returns a Port on r and w.  Close is a no-op.
func New(r io.Reader, w io.Writer) *Port {
	return &Port{r: bufio.NewReader(r), w: w, close: func() error { return nil }}
}

// Open opens the tty device at path (e.g. /dev/ttyPS0) in raw mode.
// Close restores the previous mode.
func Open(path string) (*Port, error) {
	t, err := tty.OpenDevice(path)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", path, err)
	}
	restore, err := t.Raw()
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("serial: raw mode on %s: %w", path, err)
	}
	p := New(t.Input(), t.Output())
	p.close = func() error {
		rerr := restore()
		if err := t.Close(); err != nil {
			return err
		}
		return rerr
	}
	return p, nil
}

// ReadByte blocks until a byte arrives.
func (p *Port) ReadByte() (byte, error) {
	return p.r.ReadByte()
}

// ReadLine returns the next line with its terminator ("\n" or "\r\n")
// removed.
func (p *Port) ReadLine() (string, error) {
	s, err := p.r.ReadString('\n')
	if err != nil {
		return s, err
	}
	s = s[:len(s)-1]
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s, nil
}

func (p *Port) Write(b []byte) (int, error) {
	return p.w.Write(b)
}

// WriteString sends s unchanged.
func (p *Port) WriteString(s string) (int, error) {
	return io.WriteString(p.w, s)
}

func (p *Port) Close() error {
	return p.close()
}
