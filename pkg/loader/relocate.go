// Package loader places cached code units into executable memory and
// applies their relocation records against the live helper table.
package loader

import (
	"encoding/binary"
	"fmt"

	"github.com/karstvm/karst/pkg/codecache"
	"github.com/karstvm/karst/pkg/codegen"
)

// SymbolResolver maps persisted symbol names to their addresses in the
// running process.
type SymbolResolver interface {
	ResolveSymbol(name string, refNumber int32) (uint64, bool)
}

// SymbolTable is a name-keyed SymbolResolver.
type SymbolTable map[string]uint64

func (t SymbolTable) ResolveSymbol(name string, refNumber int32) (uint64, bool) {
	addr, ok := t[name]
	return addr, ok
}

// ApplyRelocations patches code, assumed to be loaded at base, in
// place. Helper-address relocations rewrite the halfword-scaled
// displacement of a relative branch whose instruction starts two bytes
// before the patched field; absolute relocations store the resolved
// address directly. A symbol the resolver cannot supply is an error,
// not a panic: the cache may legitimately outlive a helper table.
func ApplyRelocations(code []byte, base uint64, recs []codecache.RelocationRecord, resolver SymbolResolver) error {
	for _, r := range recs {
		dest, ok := resolver.ResolveSymbol(r.Symbol, r.RefNumber)
		if !ok {
			return fmt.Errorf("loader: unknown symbol %s#%d", r.Symbol, r.RefNumber)
		}
		if int(r.Offset)+int(r.Width) > len(code) {
			return fmt.Errorf("loader: relocation at %#x width %d beyond %d code bytes",
				r.Offset, r.Width, len(code))
		}
		switch codegen.RelocationKind(r.Kind) {
		case codegen.RelocHelperAddress:
			// The displacement field sits after the 2-byte opcode.
			from := base + uint64(r.Offset) - 2
			half := (int64(dest) - int64(from)) / 2
			binary.BigEndian.PutUint32(code[r.Offset:], uint32(int32(half)))
		case codegen.RelocAbsoluteAddress:
			if r.Width == 8 {
				binary.BigEndian.PutUint64(code[r.Offset:], dest)
			} else {
				binary.BigEndian.PutUint32(code[r.Offset:], uint32(dest))
			}
		default:
			return fmt.Errorf("loader: unknown relocation kind %d", r.Kind)
		}
	}
	return nil
}
