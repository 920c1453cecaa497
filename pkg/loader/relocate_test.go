package loader

import (
	"bytes"
	"testing"

	"github.com/karstvm/karst/pkg/codecache"
	"github.com/karstvm/karst/pkg/codegen"
)

func TestApplyHelperRelocation(t *testing.T) {
	// BRASL at offset 0, displacement field at offset 2, loaded at
	// 0x1000, helper at 0x2000: displacement is 0x800 halfwords.
	code := []byte{0xC0, 0xE5, 0xFF, 0xFF, 0xFF, 0xFF}
	recs := []codecache.RelocationRecord{
		{Offset: 2, Symbol: "jitCallHelper", RefNumber: 23, Kind: uint8(codegen.RelocHelperAddress), Width: 4},
	}
	table := SymbolTable{"jitCallHelper": 0x2000}

	if err := ApplyRelocations(code, 0x1000, recs, table); err != nil {
		t.Fatalf("ApplyRelocations() error = %v", err)
	}
	want := []byte{0xC0, 0xE5, 0x00, 0x00, 0x08, 0x00}
	if !bytes.Equal(code, want) {
		t.Errorf("patched code = % X, want % X", code, want)
	}
}

func TestApplyHelperRelocationBackward(t *testing.T) {
	// Helper below the code: the displacement is negative.
	code := []byte{0xC0, 0xE5, 0x00, 0x00, 0x00, 0x00}
	recs := []codecache.RelocationRecord{
		{Offset: 2, Symbol: "h", Kind: uint8(codegen.RelocHelperAddress), Width: 4},
	}
	if err := ApplyRelocations(code, 0x3000, recs, SymbolTable{"h": 0x1000}); err != nil {
		t.Fatal(err)
	}
	// (0x1000 - 0x3000) / 2 = -0x1000 halfwords.
	want := []byte{0xC0, 0xE5, 0xFF, 0xFF, 0xF0, 0x00}
	if !bytes.Equal(code, want) {
		t.Errorf("patched code = % X, want % X", code, want)
	}
}

func TestApplyAbsoluteRelocation(t *testing.T) {
	code := make([]byte, 8)
	recs := []codecache.RelocationRecord{
		{Offset: 0, Symbol: "vtable", Kind: uint8(codegen.RelocAbsoluteAddress), Width: 8},
	}
	if err := ApplyRelocations(code, 0, recs, SymbolTable{"vtable": 0xDEADBEEF}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 0, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(code, want) {
		t.Errorf("patched code = % X, want % X", code, want)
	}
}

func TestApplyAbsoluteRelocation32(t *testing.T) {
	code := make([]byte, 4)
	recs := []codecache.RelocationRecord{
		{Offset: 0, Symbol: "vtable", Kind: uint8(codegen.RelocAbsoluteAddress), Width: 4},
	}
	if err := ApplyRelocations(code, 0, recs, SymbolTable{"vtable": 0xCAFE}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x00, 0xCA, 0xFE}
	if !bytes.Equal(code, want) {
		t.Errorf("patched code = % X, want % X", code, want)
	}
}

func TestApplyRelocationsUnknownSymbol(t *testing.T) {
	recs := []codecache.RelocationRecord{
		{Offset: 2, Symbol: "missingHelper", Kind: uint8(codegen.RelocHelperAddress), Width: 4},
	}
	err := ApplyRelocations(make([]byte, 6), 0x1000, recs, SymbolTable{})
	if err == nil {
		t.Fatal("ApplyRelocations() accepted an unknown symbol")
	}
}

func TestApplyRelocationsOutOfBounds(t *testing.T) {
	recs := []codecache.RelocationRecord{
		{Offset: 4, Symbol: "h", Kind: uint8(codegen.RelocHelperAddress), Width: 4},
	}
	err := ApplyRelocations(make([]byte, 6), 0x1000, recs, SymbolTable{"h": 0x2000})
	if err == nil {
		t.Fatal("ApplyRelocations() accepted an out-of-bounds record")
	}
}

func TestApplyRelocationsUnknownKind(t *testing.T) {
	recs := []codecache.RelocationRecord{
		{Offset: 0, Symbol: "h", Kind: 99, Width: 4},
	}
	err := ApplyRelocations(make([]byte, 6), 0, recs, SymbolTable{"h": 1})
	if err == nil {
		t.Fatal("ApplyRelocations() accepted an unknown relocation kind")
	}
}
