package codegen

import (
	"fmt"
	"math"
)

// z/Architecture opcode patterns used by the snippet encoders. The
// relative-long forms carry a 32-bit halfword-scaled displacement
// measured from the start of the instruction.
const (
	opBRASL uint16 = 0xC0E5 // BRASL r14,<rel32>   branch relative and save
	opLARL  uint16 = 0xC0E0 // LARL  r14,<rel32>   load address relative
	opLG    uint32 = 0xE3000000
	opLGTag uint16 = 0x0004 // trailing opcode halfword of LG
	opL     uint32 = 0x58000000
	opBCR   uint16 = 0x07F0 // BCR 15,<reg>        unconditional branch
	opRION  uint32 = 0xAA010000
	opRIOFF uint32 = 0xAA030000
)

// RIOp selects a runtime-instrumentation toggle instruction.
type RIOp uint8

const (
	RIOn RIOp = iota + 1
	RIOff
)

// inRelativeRange reports whether dest can be reached from an
// instruction starting at from with a 32-bit halfword displacement.
func inRelativeRange(dest, from uint64) bool {
	half := (int64(dest) - int64(from)) / 2
	return half >= math.MinInt32 && half <= math.MaxInt32
}

// relativeHalfwords computes the halfword displacement from the
// instruction starting at from to dest.
func relativeHalfwords(dest, from uint64) uint32 {
	return uint32(int32((int64(dest) - int64(from)) / 2))
}

// EncodeCallGlue writes the branch-to-dispatcher sequence for the
// snippet's call. Two shapes are produced:
//
//	BRASL r14,<target>                          resolved calls
//
//	LARL  r14,<constant data>                   unresolved calls
//	LG/L  rEP,0(r14)
//	BCR   rEP
//
// For resolved calls, a target beyond direct branch range is redirected
// through the trampoline table before the displacement is computed; a
// target still unreachable afterwards indicates a broken trampoline
// configuration and panics. The displacement field is registered for
// relocation so the loader can repatch the helper address.
func (s *Snippet) EncodeCallGlue(cg *CodeGenerator, buf *CodeBuffer, glueRef *SymbolRef) {
	rEP := uint32(cg.EntryPointRegister())

	if s.kind == SnippetUnresolvedCall {
		start := buf.Cursor()
		buf.Emit16(opLARL)
		// The constant data area sits right after this glue plus any
		// alignment padding the sizing pass inserted.
		dataStart := start + uint64(s.CallGlueLength(cg)) + uint64(s.padBytes)
		buf.Emit32(relativeHalfwords(dataStart, start))

		if cg.Is64Bit() {
			buf.Emit32(opLG + rEP<<20 + 0xE000) // LG rEP,0(r14)
			buf.Emit16(opLGTag)
		} else {
			buf.Emit32(opL + rEP<<20 + 0xE000) // L rEP,0(r14)
		}

		buf.Emit16(opBCR + uint16(rEP)) // BCR rEP
		return
	}

	start := buf.Cursor()
	buf.Emit16(opBRASL)

	destAddr := glueRef.Address()
	if cg.SupportsTrampolines() && !inRelativeRange(destAddr, start) {
		// Beyond reachable branch distance: go through the trampoline.
		destAddr = cg.trampolines.TrampolineLookup(glueRef.RefNumber, buf.Cursor())
		s.usedTrampoline = true
	}
	if !inRelativeRange(destAddr, start) {
		panic(fmt.Sprintf("codegen: helper %s at %#x not reachable from %#x", glueRef.Name, destAddr, start))
	}
	s.destAddr = destAddr

	cg.AddRelocation(uint32(buf.Offset()), glueRef, RelocHelperAddress, 4)
	buf.Emit32(relativeHalfwords(destAddr, start))
}

// CallGlueLength returns the exact byte length EncodeCallGlue produces
// for this snippet's kind and the target's pointer width.
func (s *Snippet) CallGlueLength(cg *CodeGenerator) uint32 {
	lengthOfLoad := uint32(4)
	if cg.Is64Bit() {
		lengthOfLoad = 6
	}
	if s.kind == SnippetUnresolvedCall {
		return 6 + lengthOfLoad + 2 // LARL + LG/L + BCR
	}
	return 6 // BRASL
}

// EncodeVMThreadReload restores the dedicated VM-thread register from
// its backing store on the stack. Nothing is emitted unless the target
// runs with a freed VM-thread register and a backing store exists;
// callers use VMThreadReloadLength to learn which case applies.
func (s *Snippet) EncodeVMThreadReload(cg *CodeGenerator, buf *CodeBuffer) {
	if !cg.FreeVMThreadRegister() {
		return
	}
	disp, ok := cg.VMThreadSpillOffset()
	if !ok {
		return
	}
	if disp < 0 || disp > 0xFFF {
		panic(fmt.Sprintf("codegen: vm thread spill displacement %#x too large", disp))
	}
	rVM := uint32(cg.VMThreadRegister())
	rSP := uint32(cg.StackPointerRegister())
	if cg.Is64Bit() {
		buf.Emit32(opLG + rVM<<20 + rSP<<12 + uint32(disp)) // LG rVM,disp(rSP)
		buf.Emit16(opLGTag)
	} else {
		buf.Emit32(opL + rVM<<20 + rSP<<12 + uint32(disp)) // L rVM,disp(rSP)
	}
}

// VMThreadReloadLength mirrors EncodeVMThreadReload: 6 or 4 bytes when
// a reload is emitted, 0 when the mode is inactive or there is no
// backing store.
func (s *Snippet) VMThreadReloadLength(cg *CodeGenerator) uint32 {
	if !cg.FreeVMThreadRegister() {
		return 0
	}
	if _, ok := cg.VMThreadSpillOffset(); !ok {
		return 0
	}
	if cg.Is64Bit() {
		return 6
	}
	return 4
}

// EncodeInstrumentationToggle emits a runtime-instrumentation on or off
// hook. Nothing is emitted when the facility is unsupported, or when
// the snippet participates in the private JIT linkage and the target
// does not permit hooks there. An unknown toggle value is a bug and
// panics.
func (s *Snippet) EncodeInstrumentationToggle(cg *CodeGenerator, buf *CodeBuffer, op RIOp, isPrivateLinkage bool) {
	if !cg.SupportsRuntimeInstrumentation() {
		return
	}
	if isPrivateLinkage && !cg.RIOverPrivateLinkage() {
		return
	}
	switch op {
	case RIOn:
		buf.Emit32(opRION)
	case RIOff:
		buf.Emit32(opRIOFF)
	default:
		panic(fmt.Sprintf("codegen: unexpected runtime instrumentation opcode %d", op))
	}
}

// InstrumentationToggleLength mirrors EncodeInstrumentationToggle:
// both hooks are 4-byte instructions when emitted, 0 otherwise.
func (s *Snippet) InstrumentationToggleLength(cg *CodeGenerator, isPrivateLinkage bool) uint32 {
	if !cg.SupportsRuntimeInstrumentation() {
		return 0
	}
	if isPrivateLinkage && !cg.RIOverPrivateLinkage() {
		return 0
	}
	return 4
}
