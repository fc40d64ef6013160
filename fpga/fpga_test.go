package fpga

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jbrzusto/fpgamm/mover"
)

func TestRegisterOffsets(t *testing.T) {
	g := NewWithT(t)

	offset := func(x interface{}, name string) int {
		r, ok := FindReg(RegisterMap(x), name)
		g.Expect(ok).To(BeTrue(), name)
		return r.Offset
	}

	g.Expect(RegisterMap(new(FIFORegs))).To(HaveLen(13))
	g.Expect(offset(new(FIFORegs), "tdfd")).To(Equal(0x10))
	g.Expect(offset(new(FIFORegs), "SRR")).To(Equal(0x28))
	g.Expect(offset(new(FIFORegs), "rdr")).To(Equal(0x30))

	g.Expect(RegisterMap(new(DMARegs))).To(HaveLen(10))
	g.Expect(offset(new(DMARegs), "mm2s_dmasr")).To(Equal(0x04))
	g.Expect(offset(new(DMARegs), "mm2s_addr")).To(Equal(0x18))
	g.Expect(offset(new(DMARegs), "mm2s_length")).To(Equal(0x28))
	g.Expect(offset(new(DMARegs), "s2mm_dmacr")).To(Equal(0x30))
	g.Expect(offset(new(DMARegs), "s2mm_addr")).To(Equal(0x48))
	g.Expect(offset(new(DMARegs), "S2MM_LENGTH")).To(Equal(0x58))

	g.Expect(offset(new(TimerRegs), "tcr0")).To(Equal(0x08))

	_, ok := FindReg(RegisterMap(new(TimerRegs)), "nope")
	g.Expect(ok).To(BeFalse())
}

func TestWriteDefines(t *testing.T) {
	g := NewWithT(t)

	var b bytes.Buffer
	g.Expect(WriteDefines(&b, "dma", new(DMARegs))).To(Succeed())
	out := b.String()
	g.Expect(out).To(HavePrefix("// dma register offsets"))
	g.Expect(out).To(ContainSubstring("#define DMA_S2MM_LENGTH"))
	g.Expect(out).To(MatchRegexp(`DMA_S2MM_ADDR +0x048`))
	g.Expect(strings.Count(out, "#define")).To(Equal(10))
}

func TestWriteRegsSkipsDestructiveReads(t *testing.T) {
	g := NewWithT(t)

	regs := new(FIFORegs)
	regs.RDFO = 7
	regs.RDFD = 0xdeadbeef
	var b bytes.Buffer
	g.Expect(WriteRegs(&b, "fifo", regs)).To(Succeed())
	out := b.String()
	// isr, ier, tdfv, rdfo, rdr
	g.Expect(strings.Count(out, "\n")).To(Equal(5))
	g.Expect(out).To(MatchRegexp(`rdfo +0x00000007`))
	g.Expect(out).NotTo(ContainSubstring("rdfd"))
	g.Expect(out).NotTo(ContainSubstring("deadbeef"))
}

func TestFIFOPort(t *testing.T) {
	g := NewWithT(t)

	regs := new(FIFORegs)
	f := NewFIFO(regs)

	regs.TDFV = 100
	g.Expect(f.TxVacancy()).To(Equal(uint32(100)))
	f.TxPutWord(42)
	g.Expect(regs.TDFD).To(Equal(uint32(42)))
	f.TxSetLen(520 * mover.WordSize)
	g.Expect(regs.TLR).To(Equal(uint32(2080)))

	g.Expect(f.IsTxDone()).To(BeFalse())
	regs.ISR = FIFO_INT_TC
	g.Expect(f.IsTxDone()).To(BeTrue())
	g.Expect(f.IsRxDone()).To(BeFalse())
	regs.ISR |= FIFO_INT_RC
	g.Expect(f.IsRxDone()).To(BeTrue())

	regs.RDFO = 3
	regs.RDFD = 9
	g.Expect(f.RxOccupancy()).To(Equal(uint32(3)))
	g.Expect(f.RxGetWord()).To(Equal(uint32(9)))

	f.ClearStatus()
	g.Expect(regs.ISR).To(Equal(uint32(FIFO_INT_TC | FIFO_INT_RC)))
}

func TestFIFOInitRequiresClearStatus(t *testing.T) {
	g := NewWithT(t)

	// plain memory does not clear on write, so the status check fails
	regs := new(FIFORegs)
	err := NewFIFO(regs).Init()
	g.Expect(err).To(MatchError(ErrInitFailed))
	g.Expect(regs.SRR).To(Equal(uint32(FIFO_RESET_KEY)))
}

func TestDMAInitRequiresReset(t *testing.T) {
	g := NewWithT(t)

	// plain memory never clears the reset bit
	regs := new(DMARegs)
	g.Expect(NewDMA(regs).Init()).To(MatchError(ErrInitFailed))
}

func TestDMATransfer(t *testing.T) {
	g := NewWithT(t)

	regs := new(DMARegs)
	e := NewDMA(regs)

	g.Expect(e.Transfer(mover.Send, 0x1_0110_0000, 2080)).To(Succeed())
	g.Expect(regs.MM2S.Addr).To(Equal(uint32(0x01100000)))
	g.Expect(regs.MM2S.AddrMSB).To(Equal(uint32(1)))
	g.Expect(regs.MM2S.CR & DMA_CR_RUNSTOP).NotTo(BeZero())
	g.Expect(regs.MM2S.Length).To(Equal(uint32(2080)))
	g.Expect(regs.S2MM.Length).To(BeZero())

	// running and not idle
	g.Expect(e.Busy(mover.Send)).To(BeTrue())
	g.Expect(e.Transfer(mover.Send, 0x01100000, 4)).NotTo(Succeed())
	regs.MM2S.SR = DMA_SR_IDLE
	g.Expect(e.Busy(mover.Send)).To(BeFalse())
	g.Expect(e.Transfer(mover.Send, 0x01100000, 4)).To(Succeed())

	g.Expect(e.Transfer(mover.Receive, 0x01300000, 256)).To(Succeed())
	g.Expect(regs.S2MM.Addr).To(Equal(uint32(0x01300000)))
	g.Expect(regs.S2MM.Length).To(Equal(uint32(256)))

	g.Expect(e.Fault(mover.Receive)).To(Succeed())
	regs.S2MM.SR = DMA_SR_IDLE | DMA_SR_DECERR
	g.Expect(e.Fault(mover.Receive)).To(HaveOccurred())
	g.Expect(e.Fault(mover.Send)).To(Succeed())
}

func TestTimer(t *testing.T) {
	g := NewWithT(t)

	regs := new(TimerRegs)
	tm := NewTimer(regs)
	g.Expect(tm.Init()).To(Succeed())
	g.Expect(regs.TLR0).To(BeZero())
	g.Expect(regs.TCSR0).To(BeZero())

	tm.Start()
	g.Expect(regs.TCSR0).To(Equal(uint32(TIMER_ENT0)))
	tm.Reset()
	g.Expect(regs.TCSR0).To(Equal(uint32(TIMER_ENT0)))
	regs.TCR0 = 1234
	g.Expect(tm.Value()).To(Equal(uint32(1234)))
	tm.Stop()
	g.Expect(regs.TCSR0).To(BeZero())
}
