package codegen

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/karstvm/karst/pkg/target"
)

// testCG builds a code generator over a mutated default target.
func testCG(t *testing.T, tramps TrampolineResolver, mutate func(*target.Target)) *CodeGenerator {
	t.Helper()
	tgt := target.Default()
	if mutate != nil {
		mutate(&tgt)
	}
	cg, err := NewCodeGenerator(tgt, tramps)
	if err != nil {
		t.Fatalf("NewCodeGenerator() error = %v", err)
	}
	return cg
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestResolvedCallGlueLengthMatchesEncoding(t *testing.T) {
	for _, width := range []int{4, 8} {
		cg := testCG(t, nil, func(tgt *target.Target) { tgt.PointerWidth = width })
		sym := NewSymbolRef("jitCallHelper", 23, 0x2000)
		s := NewCallSnippet(cg, nil, NewLabelSymbol("call"), sym, true)

		buf := NewCodeBuffer(0x1000, 32)
		want := s.Length(cg)
		s.Encode(cg, buf)

		if got := uint32(buf.Offset()); got != want {
			t.Errorf("pointer width %d: encoded %d bytes, Length() = %d", width, got, want)
		}
	}
}

func TestResolvedCallGlueEncoding(t *testing.T) {
	cg := testCG(t, nil, nil)
	sym := NewSymbolRef("jitCallHelper", 23, 0x2000)
	s := NewCallSnippet(cg, nil, nil, sym, true)

	buf := NewCodeBuffer(0x1000, 32)
	s.Encode(cg, buf)

	code := buf.Bytes()
	if len(code) != 6 {
		t.Fatalf("encoded %d bytes, want 6", len(code))
	}
	if code[0] != 0xC0 || code[1] != 0xE5 {
		t.Errorf("opcode bytes = %02X %02X, want C0 E5 (BRASL)", code[0], code[1])
	}
	// Displacement is halfword-scaled from the instruction start.
	disp := int32(binary.BigEndian.Uint32(code[2:6]))
	if disp != (0x2000-0x1000)/2 {
		t.Errorf("displacement = %#x, want %#x", disp, (0x2000-0x1000)/2)
	}
	if s.DestAddr() != 0x2000 {
		t.Errorf("DestAddr() = %#x, want 0x2000", s.DestAddr())
	}
	if s.UsedTrampoline() {
		t.Error("UsedTrampoline() = true for a reachable target")
	}
}

func TestResolvedCallRegistersRelocation(t *testing.T) {
	cg := testCG(t, nil, nil)
	sym := NewSymbolRef("jitCallHelper", 23, 0x2000)
	s := NewCallSnippet(cg, nil, nil, sym, true)

	buf := NewCodeBuffer(0x1000, 32)
	s.Encode(cg, buf)

	relocs := cg.Relocations()
	if len(relocs) != 1 {
		t.Fatalf("got %d relocations, want 1", len(relocs))
	}
	r := relocs[0]
	if r.Offset != 2 {
		t.Errorf("relocation offset = %d, want 2 (displacement field)", r.Offset)
	}
	if r.Kind != RelocHelperAddress {
		t.Errorf("relocation kind = %v, want %v", r.Kind, RelocHelperAddress)
	}
	if r.Width != 4 {
		t.Errorf("relocation width = %d, want 4", r.Width)
	}
	if r.Symbol != sym {
		t.Errorf("relocation symbol = %v, want %v", r.Symbol, sym)
	}
	if !strings.HasSuffix(r.File, "encode.go") || r.Line <= 0 {
		t.Errorf("relocation source = %s:%d, want encode.go with a line", r.File, r.Line)
	}
}

func TestUnresolvedCallGlueShape(t *testing.T) {
	cases := []struct {
		width      int
		wantLen    int
		loadOpcode byte
	}{
		{8, 14, 0xE3}, // LARL + LG + BCR
		{4, 12, 0x58}, // LARL + L + BCR
	}
	for _, tc := range cases {
		cg := testCG(t, nil, func(tgt *target.Target) { tgt.PointerWidth = tc.width })
		sym := NewSymbolRef("unresolvedMethod", 7, 0)
		s := NewUnresolvedCallSnippet(cg, nil, nil, sym)

		buf := NewCodeBuffer(0x1000, 32)
		if got := s.Length(cg); got != uint32(tc.wantLen) {
			t.Errorf("width %d: Length() = %d, want %d", tc.width, got, tc.wantLen)
		}
		s.Encode(cg, buf)

		code := buf.Bytes()
		if len(code) != tc.wantLen {
			t.Fatalf("width %d: encoded %d bytes, want %d", tc.width, len(code), tc.wantLen)
		}
		// Load-address, load-indirect, branch-through-register, in order.
		if code[0] != 0xC0 || code[1] != 0xE0 {
			t.Errorf("width %d: first instruction = %02X %02X, want C0 E0 (LARL)", tc.width, code[0], code[1])
		}
		if code[6] != tc.loadOpcode {
			t.Errorf("width %d: load opcode = %02X, want %02X", tc.width, code[6], tc.loadOpcode)
		}
		rEP := byte(cg.EntryPointRegister())
		if code[len(code)-2] != 0x07 || code[len(code)-1] != 0xF0+rEP {
			t.Errorf("width %d: trailing instruction = %02X %02X, want 07 %02X (BCR)",
				tc.width, code[len(code)-2], code[len(code)-1], 0xF0+rEP)
		}
		// LARL addresses the constant data right after the glue.
		disp := binary.BigEndian.Uint32(code[2:6])
		if disp != uint32(tc.wantLen)/2 {
			t.Errorf("width %d: LARL displacement = %d halfwords, want %d", tc.width, disp, tc.wantLen/2)
		}
	}
}

func TestTrampolineSubstitutionPrecedesRangeCheck(t *testing.T) {
	table := NewTrampolineTable(0x100000, 16)
	cg := testCG(t, table, nil)

	// Direct distance is far beyond the 32-bit halfword range.
	far := NewSymbolRef("farHelper", 41, 1<<40)
	s := NewCallSnippet(cg, nil, nil, far, true)

	buf := NewCodeBuffer(0x1000, 32)
	s.Encode(cg, buf)

	if !s.UsedTrampoline() {
		t.Fatal("UsedTrampoline() = false, want true")
	}
	if s.DestAddr() != 0x100000 {
		t.Errorf("DestAddr() = %#x, want trampoline address 0x100000", s.DestAddr())
	}
	disp := int32(binary.BigEndian.Uint32(buf.Bytes()[2:6]))
	if disp != (0x100000-0x1000)/2 {
		t.Errorf("displacement = %#x, computed from %#x, want trampoline-relative %#x",
			disp, s.DestAddr(), (0x100000-0x1000)/2)
	}
}

func TestUnreachableTargetPanics(t *testing.T) {
	far := NewSymbolRef("farHelper", 41, 1<<40)

	// No trampoline support at all.
	cg := testCG(t, nil, func(tgt *target.Target) { tgt.SupportsTrampolines = false })
	s := NewCallSnippet(cg, nil, nil, far, true)
	expectPanic(t, "encode of unreachable target", func() {
		s.Encode(cg, NewCodeBuffer(0x1000, 32))
	})

	// Trampoline table itself out of range.
	table := NewTrampolineTable(1<<41, 16)
	cg2 := testCG(t, table, nil)
	s2 := NewCallSnippet(cg2, nil, nil, far, true)
	expectPanic(t, "encode with unreachable trampoline", func() {
		s2.Encode(cg2, NewCodeBuffer(0x1000, 32))
	})
}

func TestConstantDataSnippet(t *testing.T) {
	cg := testCG(t, nil, nil)

	resolved := NewConstantDataSnippet(cg, nil, nil, NewSymbolRef("m", 1, 0xDEADBEEF))
	buf := NewCodeBuffer(0, 16)
	resolved.Encode(cg, buf)
	want := []byte{0, 0, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("resolved data = % X, want % X", buf.Bytes(), want)
	}
	if len(cg.Relocations()) != 0 {
		t.Errorf("resolved data registered %d relocations, want 0", len(cg.Relocations()))
	}

	unresolved := NewConstantDataSnippet(cg, nil, nil, NewSymbolRef("m2", 2, 0))
	buf2 := NewCodeBuffer(0, 16)
	unresolved.Encode(cg, buf2)
	if len(cg.Relocations()) != 1 {
		t.Fatalf("unresolved data registered %d relocations, want 1", len(cg.Relocations()))
	}
	r := cg.Relocations()[0]
	if r.Kind != RelocAbsoluteAddress || r.Width != 8 || r.Offset != 0 {
		t.Errorf("relocation = %v, want absolute width 8 at offset 0", r)
	}
}

func TestVMThreadReload(t *testing.T) {
	enable := func(tgt *target.Target) {
		tgt.FreeVMThreadRegister = true
		tgt.VMThreadSpillOffset = 16
	}

	// 64-bit: LG r13,16(r15) is E3 D0 F0 10 00 04.
	cg := testCG(t, nil, enable)
	s := &Snippet{}
	if got := s.VMThreadReloadLength(cg); got != 6 {
		t.Errorf("64-bit reload length = %d, want 6", got)
	}
	buf := NewCodeBuffer(0, 16)
	s.EncodeVMThreadReload(cg, buf)
	want := []byte{0xE3, 0xD0, 0xF0, 0x10, 0x00, 0x04}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("64-bit reload = % X, want % X", buf.Bytes(), want)
	}

	// 31-bit: L r13,16(r15) is 58 D0 F0 10.
	cg31 := testCG(t, nil, func(tgt *target.Target) {
		enable(tgt)
		tgt.PointerWidth = 4
	})
	if got := s.VMThreadReloadLength(cg31); got != 4 {
		t.Errorf("31-bit reload length = %d, want 4", got)
	}
	buf31 := NewCodeBuffer(0, 16)
	s.EncodeVMThreadReload(cg31, buf31)
	want31 := []byte{0x58, 0xD0, 0xF0, 0x10}
	if !bytes.Equal(buf31.Bytes(), want31) {
		t.Errorf("31-bit reload = % X, want % X", buf31.Bytes(), want31)
	}
}

func TestVMThreadReloadGating(t *testing.T) {
	s := &Snippet{}

	// Mode inactive: zero bytes, zero length.
	cg := testCG(t, nil, nil)
	buf := NewCodeBuffer(0, 16)
	s.EncodeVMThreadReload(cg, buf)
	if buf.Offset() != 0 || s.VMThreadReloadLength(cg) != 0 {
		t.Errorf("inactive mode: wrote %d bytes, length %d, want 0/0",
			buf.Offset(), s.VMThreadReloadLength(cg))
	}

	// Mode active but no backing store: still zero.
	cg2 := testCG(t, nil, func(tgt *target.Target) { tgt.FreeVMThreadRegister = true })
	buf2 := NewCodeBuffer(0, 16)
	s.EncodeVMThreadReload(cg2, buf2)
	if buf2.Offset() != 0 || s.VMThreadReloadLength(cg2) != 0 {
		t.Errorf("no backing store: wrote %d bytes, length %d, want 0/0",
			buf2.Offset(), s.VMThreadReloadLength(cg2))
	}
}

func TestInstrumentationToggle(t *testing.T) {
	s := &Snippet{}
	ri := func(tgt *target.Target) { tgt.SupportsRuntimeInstrumentation = true }

	// Unsupported facility: nothing.
	cg := testCG(t, nil, nil)
	buf := NewCodeBuffer(0, 16)
	s.EncodeInstrumentationToggle(cg, buf, RIOn, false)
	if buf.Offset() != 0 || s.InstrumentationToggleLength(cg, false) != 0 {
		t.Error("unsupported facility still emitted a toggle")
	}

	// Supported, public linkage: 4-byte hooks.
	cgRI := testCG(t, nil, ri)
	bufOn := NewCodeBuffer(0, 16)
	s.EncodeInstrumentationToggle(cgRI, bufOn, RIOn, false)
	if !bytes.Equal(bufOn.Bytes(), []byte{0xAA, 0x01, 0x00, 0x00}) {
		t.Errorf("RION = % X, want AA 01 00 00", bufOn.Bytes())
	}
	bufOff := NewCodeBuffer(0, 16)
	s.EncodeInstrumentationToggle(cgRI, bufOff, RIOff, false)
	if !bytes.Equal(bufOff.Bytes(), []byte{0xAA, 0x03, 0x00, 0x00}) {
		t.Errorf("RIOFF = % X, want AA 03 00 00", bufOff.Bytes())
	}
	if got := s.InstrumentationToggleLength(cgRI, false); got != 4 {
		t.Errorf("toggle length = %d, want 4", got)
	}

	// Private linkage without the override: suppressed.
	bufPriv := NewCodeBuffer(0, 16)
	s.EncodeInstrumentationToggle(cgRI, bufPriv, RIOn, true)
	if bufPriv.Offset() != 0 || s.InstrumentationToggleLength(cgRI, true) != 0 {
		t.Error("private linkage emitted a toggle without the override")
	}

	// Private linkage with the override: emitted.
	cgOver := testCG(t, nil, func(tgt *target.Target) {
		ri(tgt)
		tgt.RIOverPrivateLinkage = true
	})
	if got := s.InstrumentationToggleLength(cgOver, true); got != 4 {
		t.Errorf("toggle length with override = %d, want 4", got)
	}

	// Unknown toggle value is a bug.
	expectPanic(t, "unknown instrumentation opcode", func() {
		s.EncodeInstrumentationToggle(cgRI, NewCodeBuffer(0, 16), RIOp(9), false)
	})
}

func TestHelperCallSnippetComposition(t *testing.T) {
	cg := testCG(t, nil, func(tgt *target.Target) {
		tgt.SupportsRuntimeInstrumentation = true
		tgt.FreeVMThreadRegister = true
		tgt.VMThreadSpillOffset = 16
	})
	helper := NewSymbolRef("jitThrow", 9, 0x4000)
	s := NewHelperCallSnippet(cg, nil, NewLabelSymbol("helper"), helper, false)

	// RIOFF + reload + BRASL + RION on 64-bit.
	if got := s.Length(cg); got != 4+6+6+4 {
		t.Fatalf("Length() = %d, want 20", got)
	}

	buf := NewCodeBuffer(0x1000, 64)
	s.Encode(cg, buf)
	code := buf.Bytes()
	if uint32(len(code)) != s.Length(cg) {
		t.Fatalf("encoded %d bytes, Length() = %d", len(code), s.Length(cg))
	}
	if !bytes.Equal(code[0:4], []byte{0xAA, 0x03, 0x00, 0x00}) {
		t.Errorf("prefix = % X, want RIOFF", code[0:4])
	}
	if code[4] != 0xE3 {
		t.Errorf("reload opcode = %02X, want E3", code[4])
	}
	if code[10] != 0xC0 || code[11] != 0xE5 {
		t.Errorf("call opcode = %02X %02X, want C0 E5", code[10], code[11])
	}
	if !bytes.Equal(code[16:20], []byte{0xAA, 0x01, 0x00, 0x00}) {
		t.Errorf("suffix = % X, want RION", code[16:20])
	}
}
