// Package compile ties one method compilation together: the simulated
// VM state from ilgen, the snippet encoder from codegen, and the
// persisted form the codecache stores.
package compile

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/karstvm/karst/pkg/codecache"
	"github.com/karstvm/karst/pkg/codegen"
	"github.com/karstvm/karst/pkg/ilgen"
	"github.com/karstvm/karst/pkg/target"
)

// Unit is one in-flight method compilation.
type Unit struct {
	id     uuid.UUID
	method *ilgen.MethodBuilder
	cg     *codegen.CodeGenerator
	log    commonlog.Logger
}

// NewUnit starts a compilation of the named method for the given
// target. trampolines may be nil on environments without a trampoline
// table.
func NewUnit(method string, tgt target.Target, trampolines codegen.TrampolineResolver) (*Unit, error) {
	cg, err := codegen.NewCodeGenerator(tgt, trampolines)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return &Unit{
		id:     uuid.New(),
		method: ilgen.NewMethodBuilder(method),
		cg:     cg,
		log:    commonlog.GetLogger("karst.compile"),
	}, nil
}

// ID returns the unit's identity, stable across the compilation.
func (u *Unit) ID() uuid.UUID { return u.id }

// Method returns the method-level builder context.
func (u *Unit) Method() *ilgen.MethodBuilder { return u.method }

// CodeGenerator returns the unit's code-generation context.
func (u *Unit) CodeGenerator() *codegen.CodeGenerator { return u.cg }

// Finish lays out and emits the queued snippets into a buffer based at
// base and returns the persistable unit. mainLength is the byte size of
// the method body preceding the snippet area.
func (u *Unit) Finish(base uint64, mainLength uint32) (*codecache.CompiledUnit, error) {
	total := u.cg.SizeSnippets(mainLength)

	buf := codegen.NewCodeBuffer(base, int(total))
	for buf.Offset() < int(mainLength) {
		buf.Emit8(0)
	}
	u.cg.EmitSnippets(buf)

	unit := &codecache.CompiledUnit{
		ID:     u.id.String(),
		Method: u.method.Name(),
		Base:   base,
		Code:   buf.Bytes(),
	}

	// Relocation offsets recorded during emission are already relative
	// to the buffer start, which includes the method body.
	for _, r := range u.cg.Relocations() {
		unit.Relocations = append(unit.Relocations, codecache.RelocationRecord{
			Offset:    r.Offset,
			Symbol:    r.Symbol.Name,
			RefNumber: r.Symbol.RefNumber,
			Kind:      uint8(r.Kind),
			Width:     r.Width,
		})
	}

	for _, s := range u.cg.Snippets() {
		rec := codecache.SnippetRecord{
			Kind:   s.Base().Kind().String(),
			Offset: uint32(s.Base().CodeBaseOffset()),
			Length: s.Length(u.cg),
		}
		if l := s.Base().Label(); l != nil {
			rec.Label = l.Name
		}
		unit.Snippets = append(unit.Snippets, rec)

		u.log.Debugf("unit %s:\n%s", u.id, codegen.SnippetListing(u.cg, s))
	}

	return unit, nil
}
