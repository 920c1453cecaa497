// Package codecache persists compiled code units so a later process can
// reload and relink them without recompiling. Units are serialized with
// canonical CBOR and stored in a SQLite database keyed by unit ID.
package codecache

// CompiledUnit is the persisted form of one compilation: the emitted
// machine code, the relocations the loader must apply at the final
// address, and the snippet directory for diagnostics.
type CompiledUnit struct {
	ID          string             `cbor:"1,keyasint"`
	Method      string             `cbor:"2,keyasint"`
	Base        uint64             `cbor:"3,keyasint"`
	Code        []byte             `cbor:"4,keyasint"`
	Relocations []RelocationRecord `cbor:"5,keyasint,omitempty"`
	Snippets    []SnippetRecord    `cbor:"6,keyasint,omitempty"`
}

// RelocationRecord is a loader-facing relocation: patch Width bytes at
// Offset with the resolved address of Symbol.
type RelocationRecord struct {
	Offset    uint32 `cbor:"1,keyasint"`
	Symbol    string `cbor:"2,keyasint"`
	RefNumber int32  `cbor:"3,keyasint"`
	Kind      uint8  `cbor:"4,keyasint"`
	Width     uint8  `cbor:"5,keyasint"`
}

// SnippetRecord locates one out-of-line sequence inside Code.
type SnippetRecord struct {
	Kind   string `cbor:"1,keyasint"`
	Label  string `cbor:"2,keyasint,omitempty"`
	Offset uint32 `cbor:"3,keyasint"`
	Length uint32 `cbor:"4,keyasint"`
}
