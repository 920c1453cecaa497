package codegen

import "fmt"

// RelocationKind tells the loader how to patch a deferred address.
type RelocationKind uint8

const (
	// RelocHelperAddress patches a 4-byte relative-long displacement
	// field (halfword-scaled, relative to the instruction start two
	// bytes before the field).
	RelocHelperAddress RelocationKind = iota

	// RelocAbsoluteAddress patches an absolute pointer-width data slot.
	RelocAbsoluteAddress
)

// String returns a human-readable name for RelocationKind.
func (k RelocationKind) String() string {
	switch k {
	case RelocHelperAddress:
		return "helperAddress"
	case RelocAbsoluteAddress:
		return "absoluteAddress"
	default:
		return fmt.Sprintf("RelocationKind(%d)", k)
	}
}

// Relocation is a deferred address patch: the bytes at Offset cannot be
// finalized until the symbol's address is known at load time. File and
// Line record where in the compiler the relocation was registered,
// which is invaluable when a bad patch corrupts generated code.
type Relocation struct {
	Offset uint32 // byte offset of the patch field in the code buffer
	Width  uint8  // patch field width in bytes
	Kind   RelocationKind
	Symbol *SymbolRef
	File   string
	Line   int
}

func (r Relocation) String() string {
	return fmt.Sprintf("reloc %s %s at +%#x/%d (from %s:%d)",
		r.Kind, r.Symbol, r.Offset, r.Width, r.File, r.Line)
}
