package codegen

import "fmt"

// SnippetKind tags a snippet with the out-of-line sequence it emits.
// The enumeration is closed: the printer and emission dispatch handle
// every kind, and an unknown value panics there.
type SnippetKind uint8

const (
	SnippetCall SnippetKind = iota
	SnippetHelperCall
	SnippetUnresolvedCall
	SnippetVirtualCall
	SnippetInterfaceCall
	SnippetConstantData
	SnippetJumpTable
	SnippetLabelTable
)

// String returns a human-readable name for SnippetKind.
func (k SnippetKind) String() string {
	switch k {
	case SnippetCall:
		return "call"
	case SnippetHelperCall:
		return "helperCall"
	case SnippetUnresolvedCall:
		return "unresolvedCall"
	case SnippetVirtualCall:
		return "virtualCall"
	case SnippetInterfaceCall:
		return "interfaceCall"
	case SnippetConstantData:
		return "constantData"
	case SnippetJumpTable:
		return "jumpTable"
	case SnippetLabelTable:
		return "labelTable"
	default:
		return fmt.Sprintf("SnippetKind(%d)", k)
	}
}

// Snippet is the bookkeeping common to every out-of-line sequence: the
// owning context, the IR node that required it, its entry label, and
// the byte-layout state filled in by the sizing pass. The kind is fixed
// at construction and selects the dispatch arm used to encode and print
// the snippet.
type Snippet struct {
	cg          *CodeGenerator
	node        *Node
	label       *LabelSymbol
	kind        SnippetKind
	gcSafePoint bool

	codeBaseOffset int32 // assigned by the sizing pass, -1 until then
	padBytes       int32 // alignment bytes between this snippet and the next
	destAddr       uint64
	usedTrampoline bool
}

// NewSnippet initializes the common snippet bookkeeping. Concrete
// snippet types embed the result.
func NewSnippet(cg *CodeGenerator, node *Node, label *LabelSymbol, kind SnippetKind, gcSafePoint bool) Snippet {
	return Snippet{
		cg:             cg,
		node:           node,
		label:          label,
		kind:           kind,
		gcSafePoint:    gcSafePoint,
		codeBaseOffset: -1,
	}
}

// Kind returns the snippet's immutable kind tag.
func (s *Snippet) Kind() SnippetKind { return s.kind }

// Label returns the snippet's entry label, nil if anonymous.
func (s *Snippet) Label() *LabelSymbol { return s.label }

// Node returns the IR node the snippet was created for, may be nil.
func (s *Snippet) Node() *Node { return s.node }

// IsGCSafePoint reports whether the snippet is a GC safe point.
func (s *Snippet) IsGCSafePoint() bool { return s.gcSafePoint }

// CodeBaseOffset returns the base offset assigned by the sizing pass,
// -1 before layout.
func (s *Snippet) CodeBaseOffset() int32 { return s.codeBaseOffset }

// PadBytes returns the alignment padding that follows the snippet.
func (s *Snippet) PadBytes() int32 { return s.padBytes }

// DestAddr returns the resolved destination address recorded while
// encoding call glue, 0 before encoding.
func (s *Snippet) DestAddr() uint64 { return s.destAddr }

// UsedTrampoline reports whether the encoded branch went through a
// trampoline stub.
func (s *Snippet) UsedTrampoline() bool { return s.usedTrampoline }

// SnippetEmitter is implemented by every concrete snippet type: the
// sizing pass calls Length, the emission pass calls Encode, and the two
// must agree byte for byte.
type SnippetEmitter interface {
	Base() *Snippet
	Length(cg *CodeGenerator) uint32
	Encode(cg *CodeGenerator, buf *CodeBuffer)
}

// CallSnippet branches to a resolved helper dispatcher.
type CallSnippet struct {
	Snippet
	glue *SymbolRef
}

// NewCallSnippet creates call glue for a resolved helper.
func NewCallSnippet(cg *CodeGenerator, node *Node, label *LabelSymbol, glue *SymbolRef, gcSafePoint bool) *CallSnippet {
	return &CallSnippet{Snippet: NewSnippet(cg, node, label, SnippetCall, gcSafePoint), glue: glue}
}

func (s *CallSnippet) Base() *Snippet            { return &s.Snippet }
func (s *CallSnippet) Glue() *SymbolRef          { return s.glue }
func (s *CallSnippet) targetSymbol() *SymbolRef  { return s.glue }
func (s *CallSnippet) Length(cg *CodeGenerator) uint32 {
	return s.CallGlueLength(cg)
}
func (s *CallSnippet) Encode(cg *CodeGenerator, buf *CodeBuffer) {
	s.EncodeCallGlue(cg, buf, s.glue)
}

// HelperCallSnippet wraps helper call glue with the runtime
// instrumentation off/on hooks and the VM-thread register reload the
// private JIT linkage requires.
type HelperCallSnippet struct {
	Snippet
	helper         *SymbolRef
	privateLinkage bool
}

// NewHelperCallSnippet creates a helper call snippet. privateLinkage
// marks helpers reached through the private JIT linkage, which gates
// the instrumentation hooks.
func NewHelperCallSnippet(cg *CodeGenerator, node *Node, label *LabelSymbol, helper *SymbolRef, privateLinkage bool) *HelperCallSnippet {
	return &HelperCallSnippet{
		Snippet:        NewSnippet(cg, node, label, SnippetHelperCall, true),
		helper:         helper,
		privateLinkage: privateLinkage,
	}
}

func (s *HelperCallSnippet) Base() *Snippet           { return &s.Snippet }
func (s *HelperCallSnippet) Helper() *SymbolRef       { return s.helper }
func (s *HelperCallSnippet) targetSymbol() *SymbolRef { return s.helper }

func (s *HelperCallSnippet) Length(cg *CodeGenerator) uint32 {
	return 2*s.InstrumentationToggleLength(cg, s.privateLinkage) +
		s.VMThreadReloadLength(cg) +
		s.CallGlueLength(cg)
}

func (s *HelperCallSnippet) Encode(cg *CodeGenerator, buf *CodeBuffer) {
	s.EncodeInstrumentationToggle(cg, buf, RIOff, s.privateLinkage)
	s.EncodeVMThreadReload(cg, buf)
	s.EncodeCallGlue(cg, buf, s.helper)
	s.EncodeInstrumentationToggle(cg, buf, RIOn, s.privateLinkage)
}

// UnresolvedCallSnippet branches through a constant-data slot whose
// final address the loader patches. The data snippet is laid out
// immediately after the glue, pointer-aligned.
type UnresolvedCallSnippet struct {
	Snippet
	data *ConstantDataSnippet
}

// NewUnresolvedCallSnippet creates the glue and its companion data
// snippet for a call whose target is unknown until load time. Append
// both, glue first, so the sizing pass keeps them adjacent.
func NewUnresolvedCallSnippet(cg *CodeGenerator, node *Node, label *LabelSymbol, sym *SymbolRef) *UnresolvedCallSnippet {
	s := &UnresolvedCallSnippet{
		Snippet: NewSnippet(cg, node, label, SnippetUnresolvedCall, true),
	}
	s.data = NewConstantDataSnippet(cg, node, nil, sym)
	return s
}

func (s *UnresolvedCallSnippet) Base() *Snippet             { return &s.Snippet }
func (s *UnresolvedCallSnippet) Data() *ConstantDataSnippet { return s.data }
func (s *UnresolvedCallSnippet) targetSymbol() *SymbolRef   { return s.data.sym }

func (s *UnresolvedCallSnippet) Length(cg *CodeGenerator) uint32 {
	return s.CallGlueLength(cg)
}

func (s *UnresolvedCallSnippet) Encode(cg *CodeGenerator, buf *CodeBuffer) {
	s.EncodeCallGlue(cg, buf, nil)
}

// ConstantDataSnippet is a pointer-width data slot holding a symbol's
// address, registered for relocation while the symbol is unresolved.
type ConstantDataSnippet struct {
	Snippet
	sym *SymbolRef
}

// NewConstantDataSnippet creates an address slot for the symbol.
func NewConstantDataSnippet(cg *CodeGenerator, node *Node, label *LabelSymbol, sym *SymbolRef) *ConstantDataSnippet {
	return &ConstantDataSnippet{Snippet: NewSnippet(cg, node, label, SnippetConstantData, false), sym: sym}
}

func (s *ConstantDataSnippet) Base() *Snippet    { return &s.Snippet }
func (s *ConstantDataSnippet) Symbol() *SymbolRef { return s.sym }

func (s *ConstantDataSnippet) Length(cg *CodeGenerator) uint32 {
	return uint32(cg.Target().PointerWidth)
}

func (s *ConstantDataSnippet) Encode(cg *CodeGenerator, buf *CodeBuffer) {
	if !s.sym.IsResolved() {
		cg.AddRelocation(uint32(buf.Offset()), s.sym, RelocAbsoluteAddress, uint8(cg.Target().PointerWidth))
	}
	if cg.Is64Bit() {
		buf.Emit64(s.sym.Address())
	} else {
		buf.Emit32(uint32(s.sym.Address()))
	}
}

// LabelTableSnippet is a table of code offsets, one word per entry,
// used for jump tables and label tables. All entry labels must be
// bound before emission.
type LabelTableSnippet struct {
	Snippet
	entries []*LabelSymbol
}

// NewLabelTableSnippet creates a table snippet. kind must be
// SnippetJumpTable or SnippetLabelTable.
func NewLabelTableSnippet(cg *CodeGenerator, node *Node, label *LabelSymbol, kind SnippetKind, entries []*LabelSymbol) *LabelTableSnippet {
	if kind != SnippetJumpTable && kind != SnippetLabelTable {
		panic(fmt.Sprintf("codegen: %s is not a table snippet kind", kind))
	}
	return &LabelTableSnippet{Snippet: NewSnippet(cg, node, label, kind, false), entries: entries}
}

func (s *LabelTableSnippet) Base() *Snippet          { return &s.Snippet }
func (s *LabelTableSnippet) Entries() []*LabelSymbol { return s.entries }

func (s *LabelTableSnippet) Length(cg *CodeGenerator) uint32 {
	return 4 * uint32(len(s.entries))
}

func (s *LabelTableSnippet) Encode(cg *CodeGenerator, buf *CodeBuffer) {
	for _, l := range s.entries {
		buf.Emit32(uint32(l.Offset()))
	}
}
