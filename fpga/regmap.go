package fpga

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"unsafe"
)

// Reg describes a 32 or 64-bit register in one of the register blocks.
type Reg struct {
	Name    string       // Go field name, with any prefix
	RegName string       // name of the register in the vendor documentation
	Size    int          // size in bits
	Kind    reflect.Kind // uint32, int32, uint64 or int64
	Offset  int          // byte offset from the start of the block
	Desc    string       // human-readable description
	Mode    string       // "rw", "r", "w", "rc" (read consumes) or "p" (pulse)
}

// Readable is true if the register can be read without side effects.
func (r Reg) Readable() bool {
	return r.Mode == "rw" || r.Mode == "r"
}

// Define returns a C #define for the register's offset within block.
func (r Reg) Define(block string) string {
	name := strings.ToUpper(block + "_" + r.RegName)
	return fmt.Sprintf("#define %-30s 0x%03x // %s\n", name, r.Offset, r.Desc)
}

// Read returns the register's current value in the block at x, which
// must be a pointer to the struct the Reg was extracted from.
func (r Reg) Read(x interface{}) uint64 {
	p := unsafe.Add(unsafe.Pointer(reflect.ValueOf(x).Pointer()), r.Offset)
	if r.Size == 64 {
		return uint64(rd((*uint32)(p))) | uint64(rd((*uint32)(unsafe.Add(p, 4))))<<32
	}
	return uint64(rd((*uint32)(p)))
}

// recExtractor is the type for the recursive register extractor
type recExtractor func(t reflect.Type, prefix string, offset int)

// RegisterMap reads register definitions from a possibly nested struct.
// Registers must be 32 or 64-bit int fields (signed or unsigned), and
// have these fields in their tag:
//
//	desc: human-readable description of register
//	reg: name of the register in the vendor documentation
//	mode: "r", "rw", "w", "rc" or "p"; only "r" and "rw" are read by WriteRegs
//	reg_prefix: on a nested struct present as more than one copy; prepended
//	   to the names of registers in this copy.
//
// Padding fields named "_" are skipped but still advance the offset.
func RegisterMap(x interface{}) []Reg {
	regs := make([]Reg, 0, 16)
	var ext recExtractor
	ext = func(t reflect.Type, prefix string, offset int) {
		switch t.Kind() {
		case reflect.Ptr:
			// dereference a pointer to a struct
			ext(t.Elem(), prefix, offset)
		case reflect.Struct:
			for i := 0; i < t.NumField(); i++ {
				f := t.Field(i)
				if f.Name == "_" {
					continue
				}
				switch f.Type.Kind() {
				case reflect.Struct:
					// recursively read nested struct
					ext(f.Type, prefix+f.Tag.Get("reg_prefix"), offset+int(f.Offset))
				case reflect.Uint32, reflect.Int32, reflect.Uint64, reflect.Int64:
					regs = append(regs, Reg{
						Kind:    f.Type.Kind(),
						Name:    prefix + f.Name,
						RegName: prefix + f.Tag.Get("reg"),
						Offset:  offset + int(f.Offset),
						Desc:    f.Tag.Get("desc"),
						Size:    8 * int(f.Type.Size()),
						Mode:    f.Tag.Get("mode"),
					})
				}
			}
		}
	}
	ext(reflect.TypeOf(x), "", 0)
	return regs
}

// FindReg looks up a register by Go or hardware name, ignoring case.
func FindReg(regs []Reg, name string) (Reg, bool) {
	for _, r := range regs {
		if strings.EqualFold(r.Name, name) || strings.EqualFold(r.RegName, name) {
			return r, true
		}
	}
	return Reg{}, false
}

// WriteDefines writes a C header fragment with the offsets of the
// registers in x, prefixed by block.
func WriteDefines(w io.Writer, block string, x interface{}) error {
	if _, err := fmt.Fprintf(w, "// %s register offsets - generated by fpgamm regmap\n", block); err != nil {
		return err
	}
	for _, r := range RegisterMap(x) {
		if _, err := io.WriteString(w, r.Define(block)); err != nil {
			return err
		}
	}
	return nil
}

// WriteRegs writes the name and value of every side-effect-free register
// in the block at x.
func WriteRegs(w io.Writer, block string, x interface{}) error {
	for _, r := range RegisterMap(x) {
		if !r.Readable() {
			continue
		}
		if _, err := fmt.Fprintf(w, "%-6s %-16s 0x%08x\n", block, r.RegName, r.Read(x)); err != nil {
			return err
		}
	}
	return nil
}
