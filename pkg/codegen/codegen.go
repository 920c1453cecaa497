package codegen

import (
	"fmt"
	"runtime"

	"github.com/karstvm/karst/pkg/target"
)

// CodeGenerator carries the per-compilation state the snippet encoders
// consult: the target description, the trampoline resolver, the
// relocation list, and the snippets awaiting layout. It is owned by
// exactly one compilation and never shared between threads.
type CodeGenerator struct {
	target      target.Target
	trampolines TrampolineResolver
	relocations []Relocation
	snippets    []SnippetEmitter
}

// NewCodeGenerator creates the code-generation context for one
// compilation. trampolines may be nil on environments without a
// trampoline table.
func NewCodeGenerator(tgt target.Target, trampolines TrampolineResolver) (*CodeGenerator, error) {
	if err := tgt.Validate(); err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}
	return &CodeGenerator{target: tgt, trampolines: trampolines}, nil
}

// Target returns the machine description being compiled for.
func (cg *CodeGenerator) Target() target.Target { return cg.target }

// Is64Bit reports whether addresses are 8 bytes wide.
func (cg *CodeGenerator) Is64Bit() bool { return cg.target.Is64Bit() }

// SupportsTrampolines reports whether out-of-range call targets can be
// reached through a trampoline stub.
func (cg *CodeGenerator) SupportsTrampolines() bool {
	return cg.target.SupportsTrampolines && cg.trampolines != nil
}

// SupportsRuntimeInstrumentation reports whether the processor provides
// the runtime-instrumentation facility.
func (cg *CodeGenerator) SupportsRuntimeInstrumentation() bool {
	return cg.target.SupportsRuntimeInstrumentation
}

// RIOverPrivateLinkage reports whether instrumentation hooks may be
// emitted in private-linkage snippets.
func (cg *CodeGenerator) RIOverPrivateLinkage() bool {
	return cg.target.RIOverPrivateLinkage
}

// FreeVMThreadRegister reports whether the VM-thread register is
// released for allocation and must be reloaded in call snippets.
func (cg *CodeGenerator) FreeVMThreadRegister() bool {
	return cg.target.FreeVMThreadRegister
}

// EntryPointRegister returns the machine register through which
// unresolved calls branch.
func (cg *CodeGenerator) EntryPointRegister() int { return cg.target.EntryPointRegister }

// StackPointerRegister returns the machine stack-pointer register.
func (cg *CodeGenerator) StackPointerRegister() int { return cg.target.StackPointerRegister }

// VMThreadRegister returns the dedicated VM-thread context register.
func (cg *CodeGenerator) VMThreadRegister() int { return cg.target.VMThreadRegister }

// VMThreadSpillOffset returns the stack displacement of the VM-thread
// register's backing store. ok is false when no backing store exists.
func (cg *CodeGenerator) VMThreadSpillOffset() (offset int32, ok bool) {
	if cg.target.VMThreadSpillOffset == target.NoSpillSlot {
		return 0, false
	}
	return cg.target.VMThreadSpillOffset, true
}

// AddRelocation registers a deferred address patch at the given code
// offset. The registration site's file and line are captured for
// diagnostics.
func (cg *CodeGenerator) AddRelocation(offset uint32, sym *SymbolRef, kind RelocationKind, width uint8) {
	file, line := "unknown", 0
	if _, f, l, ok := runtime.Caller(1); ok {
		file, line = f, l
	}
	cg.relocations = append(cg.relocations, Relocation{
		Offset: offset,
		Width:  width,
		Kind:   kind,
		Symbol: sym,
		File:   file,
		Line:   line,
	})
}

// Relocations returns the relocations registered so far.
func (cg *CodeGenerator) Relocations() []Relocation { return cg.relocations }

// AppendSnippet queues a snippet for layout and emission.
func (cg *CodeGenerator) AppendSnippet(s SnippetEmitter) {
	cg.snippets = append(cg.snippets, s)
}

// Snippets returns the queued snippets in layout order.
func (cg *CodeGenerator) Snippets() []SnippetEmitter { return cg.snippets }

// SizeSnippets assigns a base offset to every queued snippet, starting
// at start, and returns the offset one past the last snippet. Constant
// data is aligned to the pointer width; the padding is charged to the
// preceding snippet so call glue branching over it can account for it.
// Each snippet's label is bound to its base offset.
func (cg *CodeGenerator) SizeSnippets(start uint32) uint32 {
	cur := start
	for i, s := range cg.snippets {
		base := s.Base()
		if base.kind == SnippetConstantData {
			width := uint32(cg.target.PointerWidth)
			pad := (width - cur%width) % width
			if pad > 0 && i > 0 {
				cg.snippets[i-1].Base().padBytes = int32(pad)
			}
			cur += pad
		}
		base.codeBaseOffset = int32(cur)
		if base.label != nil {
			base.label.Bind(int32(cur))
		}
		cur += s.Length(cg)
	}
	return cur
}

// EmitSnippets writes every queued snippet at its assigned offset,
// padding alignment gaps with zero bytes. A snippet writing a byte
// count different from its Length is a layout-corrupting bug and
// panics; so does emitting before SizeSnippets ran.
func (cg *CodeGenerator) EmitSnippets(buf *CodeBuffer) {
	for _, s := range cg.snippets {
		base := s.Base()
		if base.codeBaseOffset < 0 {
			panic(fmt.Sprintf("codegen: emitting unsized %s snippet", base.kind))
		}
		for buf.Offset() < int(base.codeBaseOffset) {
			buf.Emit8(0)
		}
		if buf.Offset() != int(base.codeBaseOffset) {
			panic(fmt.Sprintf("codegen: %s snippet placed at %#x but cursor is at %#x",
				base.kind, base.codeBaseOffset, buf.Offset()))
		}
		before := buf.Offset()
		s.Encode(cg, buf)
		wrote := uint32(buf.Offset() - before)
		if want := s.Length(cg); wrote != want {
			panic(fmt.Sprintf("codegen: %s snippet encoded %d bytes but reported length %d",
				base.kind, wrote, want))
		}
	}
}
