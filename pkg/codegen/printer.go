package codegen

import (
	"fmt"
	"strings"
)

// SelfPrinter is implemented by environment-specific snippet types
// (virtual and interface call snippets) that know how to render their
// own listing. The central dispatch delegates to them.
type SelfPrinter interface {
	PrintSelf(cg *CodeGenerator, sb *strings.Builder)
}

// glueTarget is implemented by the call-glue snippet types so the
// printer can name their destination symbol.
type glueTarget interface {
	targetSymbol() *SymbolRef
}

// SnippetListing returns a human-readable listing for a snippet. Kinds
// with common handling are printed centrally; environment-specific
// kinds delegate to the snippet's own printer. The kind enumeration is
// closed, so an unrecognized kind panics.
func SnippetListing(cg *CodeGenerator, s SnippetEmitter) string {
	var sb strings.Builder
	base := s.Base()

	name := "(anonymous)"
	if base.label != nil {
		name = base.label.Name
	}
	sb.WriteString(fmt.Sprintf("; === %s snippet %s ===\n", base.Kind(), name))
	if base.codeBaseOffset >= 0 {
		sb.WriteString(fmt.Sprintf("; offset %#x, length %d", base.codeBaseOffset, s.Length(cg)))
		if base.padBytes > 0 {
			sb.WriteString(fmt.Sprintf(", pad %d", base.padBytes))
		}
		sb.WriteString("\n")
	}
	if base.gcSafePoint {
		sb.WriteString("; gc safe point\n")
	}

	switch base.Kind() {
	case SnippetCall, SnippetHelperCall, SnippetUnresolvedCall:
		printCallGlue(cg, s, &sb)
	case SnippetConstantData:
		printConstantData(cg, s.(*ConstantDataSnippet), &sb)
	case SnippetJumpTable, SnippetLabelTable:
		printTable(s.(*LabelTableSnippet), &sb)
	case SnippetVirtualCall, SnippetInterfaceCall:
		sp, ok := s.(SelfPrinter)
		if !ok {
			panic(fmt.Sprintf("codegen: %s snippet does not print itself", base.Kind()))
		}
		sp.PrintSelf(cg, &sb)
	default:
		panic(fmt.Sprintf("codegen: unexpected snippet kind %d", base.Kind()))
	}

	return sb.String()
}

func printCallGlue(cg *CodeGenerator, s SnippetEmitter, sb *strings.Builder) {
	base := s.Base()
	if gt, ok := s.(glueTarget); ok {
		sym := gt.targetSymbol()
		sb.WriteString(fmt.Sprintf("; target %s\n", sym))
	}
	if base.Kind() == SnippetUnresolvedCall {
		sb.WriteString(";   LARL  r14,<constant data>\n")
		if cg.Is64Bit() {
			sb.WriteString(fmt.Sprintf(";   LG    r%d,0(r14)\n", cg.EntryPointRegister()))
		} else {
			sb.WriteString(fmt.Sprintf(";   L     r%d,0(r14)\n", cg.EntryPointRegister()))
		}
		sb.WriteString(fmt.Sprintf(";   BCR   r%d\n", cg.EntryPointRegister()))
		return
	}
	if base.destAddr != 0 {
		via := ""
		if base.usedTrampoline {
			via = " (via trampoline)"
		}
		sb.WriteString(fmt.Sprintf(";   BRASL r14,%#x%s\n", base.destAddr, via))
	} else {
		sb.WriteString(";   BRASL r14,<not yet encoded>\n")
	}
}

func printConstantData(cg *CodeGenerator, s *ConstantDataSnippet, sb *strings.Builder) {
	if s.sym.IsResolved() {
		sb.WriteString(fmt.Sprintf(";   DC    %#0*x  %s\n", cg.Target().PointerWidth*2, s.sym.Address(), s.sym.Name))
	} else {
		sb.WriteString(fmt.Sprintf(";   DC    <relocated>  %s\n", s.sym.Name))
	}
}

func printTable(s *LabelTableSnippet, sb *strings.Builder) {
	for i, l := range s.entries {
		if l.Bound() {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s -> %#x\n", i, l.Name, l.Offset()))
		} else {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s -> (unbound)\n", i, l.Name))
		}
	}
}
