package wire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jbrzusto/fpgamm/timer"
)

func ingest(s string, n int) ([]uint32, int, error) {
	in := NewIngestor(bufio.NewReader(strings.NewReader(s)), 1024)
	dst := make([]uint32, n)
	got, err := in.Ingest(dst)
	return dst, got, err
}

func TestIngestRow(t *testing.T) {
	g := NewWithT(t)

	dst, n, err := ingest("1,2,3,4,5,6,7,8\n", 8)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(n).To(Equal(8))
	g.Expect(dst).To(Equal([]uint32{1, 2, 3, 4, 5, 6, 7, 8}))
}

func TestIngestTerminate(t *testing.T) {
	g := NewWithT(t)

	dst, n, err := ingest("1,2,TERMINATE\n", 8)
	g.Expect(err).To(MatchError(ErrTerminated))
	g.Expect(n).To(Equal(2))
	// destination untouched
	g.Expect(dst).To(Equal(make([]uint32, 8)))
}

func TestIngestSentinelIsExact(t *testing.T) {
	g := NewWithT(t)

	dst, _, err := ingest("terminate,TERMINATEX,TERMINAT,4\n", 4)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(dst).To(Equal([]uint32{0, 0, 0, 4}))
}

func TestIngestDelimiters(t *testing.T) {
	g := NewWithT(t)

	// CR ignored, consecutive delimiters are no-ops, CR inside a field is dropped
	dst, _, err := ingest("\r\n,,1\r\n2,,\n3\r4,\n", 3)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(dst).To(Equal([]uint32{1, 2, 34}))
}

func TestIngestParsesLikeAtoi(t *testing.T) {
	g := NewWithT(t)

	dst, _, err := ingest("-1, 42,+7,12abc,abc,99999999999,-99999999999\n", 7)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(dst).To(Equal([]uint32{
		0xFFFFFFFF,
		42,
		7,
		12,
		0,
		0x7FFFFFFF,
		0x80000000,
	}))
}

func TestIngestTruncatesLongFields(t *testing.T) {
	g := NewWithT(t)

	// 25 digits; only the first 19 are kept, which still saturates
	dst, _, err := ingest(strings.Repeat("1", 25)+",5\n", 2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(dst).To(Equal([]uint32{0x7FFFFFFF, 5}))

	// a sentinel padded past the capacity no longer matches
	dst, _, err = ingest("TERMINATE"+strings.Repeat(" ", 20)+",5\n", 2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(dst).To(Equal([]uint32{0, 5}))
}

func TestIngestShortInput(t *testing.T) {
	g := NewWithT(t)

	dst, n, err := ingest("1,2,3", 4)
	g.Expect(errors.Is(err, ErrCountMismatch)).To(BeTrue())
	g.Expect(err.Error()).To(ContainSubstring(io.EOF.Error()))
	g.Expect(n).To(Equal(2))
	g.Expect(dst).To(Equal(make([]uint32, 4)))
}

func TestIngestConsecutiveBlocks(t *testing.T) {
	g := NewWithT(t)

	r := bufio.NewReader(strings.NewReader("1,2\n3,4\n5\n6\n"))
	in := NewIngestor(r, 8)
	a := make([]uint32, 4)
	b := make([]uint32, 2)
	_, err := in.Ingest(a)
	g.Expect(err).NotTo(HaveOccurred())
	_, err = in.Ingest(b)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(a).To(Equal([]uint32{1, 2, 3, 4}))
	g.Expect(b).To(Equal([]uint32{5, 6}))

	_, err = r.ReadByte()
	g.Expect(err).To(Equal(io.EOF))
}

func TestIngestProgress(t *testing.T) {
	g := NewWithT(t)

	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("7\n")
	}
	in := NewIngestor(bufio.NewReader(strings.NewReader(sb.String())), 200)
	var seen []int
	in.Progress = func(n, total int) {
		g.Expect(total).To(Equal(200))
		seen = append(seen, n)
	}
	_, err := in.Ingest(make([]uint32, 200))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(seen).To(Equal([]int{64, 128, 192}))
}

func TestIngestCapacity(t *testing.T) {
	g := NewWithT(t)

	in := NewIngestor(bufio.NewReader(strings.NewReader("1\n")), 1)
	_, err := in.Ingest(make([]uint32, 2))
	g.Expect(err).To(HaveOccurred())
	g.Expect(errors.Is(err, ErrCountMismatch)).To(BeFalse())
}

func TestEncodeRows(t *testing.T) {
	g := NewWithT(t)

	var out bytes.Buffer
	g.Expect(NewEncoder(&out).Encode([]uint32{1, 2, 3, 4}, 2, 2)).To(Succeed())
	g.Expect(out.String()).To(Equal("1,2\r\n3,4\r\n"))

	out.Reset()
	g.Expect(NewEncoder(&out).Encode([]uint32{9}, 1, 1)).To(Succeed())
	g.Expect(out.String()).To(Equal("9\r\n"))

	out.Reset()
	g.Expect(NewEncoder(&out).Encode([]uint32{0xFFFFFFFF, 5}, 2, 1)).To(Succeed())
	g.Expect(out.String()).To(Equal("-1\r\n5\r\n"))

	g.Expect(NewEncoder(&out).Encode([]uint32{1}, 2, 2)).NotTo(Succeed())
}

func TestEncodeCustomDelimiters(t *testing.T) {
	g := NewWithT(t)

	var out bytes.Buffer
	e := NewEncoder(&out)
	e.ColSep, e.RowSep = ";", "\n"
	g.Expect(e.Encode([]uint32{1, 2, 3, 4, 5, 6}, 2, 3)).To(Succeed())
	g.Expect(out.String()).To(Equal("1;2;3\n4;5;6\n"))
}

func TestEncodeIngestRoundTrip(t *testing.T) {
	g := NewWithT(t)

	m := make([]uint32, 64*3)
	for i := range m {
		m[i] = uint32(i*2654435761) ^ uint32(i<<7)
	}
	var out bytes.Buffer
	g.Expect(NewEncoder(&out).Encode(m, 64, 3)).To(Succeed())

	in := NewIngestor(bufio.NewReader(&out), len(m))
	back := make([]uint32, len(m))
	_, err := in.Ingest(back)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(back).To(Equal(m))
}

func TestWriteStats(t *testing.T) {
	g := NewWithT(t)

	s := timer.Stats{Tx: 10, Rx: 20, Compute: 30, Total: 60}
	var out bytes.Buffer
	g.Expect(WriteStats(&out, s, LabelMatMul)).To(Succeed())
	g.Expect(out.String()).To(Equal("STATS:TX=10,RX=20,MATMUL=30\r\n"))

	out.Reset()
	g.Expect(WriteStats(&out, s, LabelTotal)).To(Succeed())
	g.Expect(out.String()).To(Equal("STATS:TX=10,RX=20,TOTAL=60\r\n"))
}
