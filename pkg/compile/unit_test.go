package compile

import (
	"encoding/binary"
	"testing"

	"github.com/karstvm/karst/pkg/codegen"
	"github.com/karstvm/karst/pkg/loader"
	"github.com/karstvm/karst/pkg/target"
)

func TestFinishProducesPersistableUnit(t *testing.T) {
	u, err := NewUnit("Point>>translate", target.Default(), nil)
	if err != nil {
		t.Fatalf("NewUnit() error = %v", err)
	}

	cg := u.CodeGenerator()
	glue := codegen.NewUnresolvedCallSnippet(cg, nil, codegen.NewLabelSymbol("lazy"), codegen.NewSymbolRef("lazyMethod", 11, 0))
	cg.AppendSnippet(glue)
	cg.AppendSnippet(glue.Data())

	unit, err := u.Finish(0x1000, 0x20)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	if unit.Method != "Point>>translate" {
		t.Errorf("unit method = %q", unit.Method)
	}
	if unit.ID != u.ID().String() {
		t.Errorf("unit ID = %q, want %q", unit.ID, u.ID().String())
	}
	if unit.Base != 0x1000 {
		t.Errorf("unit base = %#x, want 0x1000", unit.Base)
	}
	// 0x20 method body, 14 glue, 2 pad, 8 data.
	if len(unit.Code) != 0x20+24 {
		t.Errorf("code length = %d, want %d", len(unit.Code), 0x20+24)
	}

	if len(unit.Snippets) != 2 {
		t.Fatalf("got %d snippet records, want 2", len(unit.Snippets))
	}
	if unit.Snippets[0].Kind != "unresolvedCall" || unit.Snippets[0].Offset != 0x20 {
		t.Errorf("snippet 0 = %+v, want unresolvedCall at 0x20", unit.Snippets[0])
	}
	if unit.Snippets[1].Kind != "constantData" || unit.Snippets[1].Offset != 0x30 {
		t.Errorf("snippet 1 = %+v, want constantData at 0x30", unit.Snippets[1])
	}

	if len(unit.Relocations) != 1 {
		t.Fatalf("got %d relocation records, want 1", len(unit.Relocations))
	}
	r := unit.Relocations[0]
	if r.Offset != 0x30 || r.Symbol != "lazyMethod" || r.Width != 8 {
		t.Errorf("relocation = %+v, want absolute width 8 at 0x30", r)
	}
}

func TestFinishOutputRelinksWithLoader(t *testing.T) {
	u, err := NewUnit("Point>>x", target.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}

	cg := u.CodeGenerator()
	glue := codegen.NewUnresolvedCallSnippet(cg, nil, nil, codegen.NewSymbolRef("lazyMethod", 11, 0))
	cg.AppendSnippet(glue)
	cg.AppendSnippet(glue.Data())

	unit, err := u.Finish(0x1000, 0)
	if err != nil {
		t.Fatal(err)
	}

	table := loader.SymbolTable{"lazyMethod": 0x7F00}
	if err := loader.ApplyRelocations(unit.Code, unit.Base, unit.Relocations, table); err != nil {
		t.Fatalf("ApplyRelocations() error = %v", err)
	}

	// The constant-data slot now holds the live address.
	got := binary.BigEndian.Uint64(unit.Code[16:24])
	if got != 0x7F00 {
		t.Errorf("data slot = %#x, want 0x7F00", got)
	}
}

func TestFinishRejectsBadTarget(t *testing.T) {
	tgt := target.Default()
	tgt.PointerWidth = 3
	if _, err := NewUnit("m", tgt, nil); err == nil {
		t.Error("NewUnit() accepted an invalid target")
	}
}
