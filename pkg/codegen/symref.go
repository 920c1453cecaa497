package codegen

import "fmt"

// SymbolRef identifies a helper or method the generated code refers to.
// A reference either carries a known machine address or stays
// unresolved until the loader patches it via a relocation.
type SymbolRef struct {
	Name      string
	RefNumber int32 // stable helper index, keys the trampoline table

	addr uint64 // 0 while unresolved
}

// NewSymbolRef creates a symbol reference. Pass addr 0 for a symbol
// whose address is not known until load time.
func NewSymbolRef(name string, refNumber int32, addr uint64) *SymbolRef {
	return &SymbolRef{Name: name, RefNumber: refNumber, addr: addr}
}

// Address returns the symbol's machine address, 0 if unresolved.
func (s *SymbolRef) Address() uint64 { return s.addr }

// IsResolved reports whether the address is known.
func (s *SymbolRef) IsResolved() bool { return s.addr != 0 }

// Resolve records the symbol's final address.
func (s *SymbolRef) Resolve(addr uint64) { s.addr = addr }

// String returns a printable form, e.g. "jitCallHelper#23@0x7f00".
func (s *SymbolRef) String() string {
	if s.IsResolved() {
		return fmt.Sprintf("%s#%d@%#x", s.Name, s.RefNumber, s.addr)
	}
	return fmt.Sprintf("%s#%d@unresolved", s.Name, s.RefNumber)
}

// LabelSymbol names a position in the emitted code, typically a
// snippet's entry point. The offset is bound once layout is final.
type LabelSymbol struct {
	Name   string
	offset int32
	bound  bool
}

// NewLabelSymbol creates an unbound label.
func NewLabelSymbol(name string) *LabelSymbol {
	return &LabelSymbol{Name: name}
}

// Bind records the label's code offset.
func (l *LabelSymbol) Bind(offset int32) {
	l.offset = offset
	l.bound = true
}

// Offset returns the bound code offset. Reading an unbound label is a
// layout bug and panics.
func (l *LabelSymbol) Offset() int32 {
	if !l.bound {
		panic(fmt.Sprintf("codegen: label %q read before binding", l.Name))
	}
	return l.offset
}

// Bound reports whether the label has been placed.
func (l *LabelSymbol) Bound() bool { return l.bound }

// Node ties a snippet back to the IR node whose evaluation required it.
type Node struct {
	ID            int32
	BytecodeIndex int32
}
