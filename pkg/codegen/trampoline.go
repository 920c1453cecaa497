package codegen

// TrampolineResolver locates an indirect jump stub for a helper that is
// out of direct branch range from a call site. Implementations may
// place stubs per helper or per call site; the call-site address is
// provided for the latter.
type TrampolineResolver interface {
	TrampolineLookup(refNumber int32, callSite uint64) uint64
}

// TrampolineTable hands out stub addresses from a fixed table placed
// near the code cache, one slot per helper reference number. Repeated
// lookups for the same helper return the same stub.
type TrampolineTable struct {
	base   uint64
	stride uint64
	slots  map[int32]uint64
}

// NewTrampolineTable creates a table starting at base with the given
// per-stub stride in bytes.
func NewTrampolineTable(base, stride uint64) *TrampolineTable {
	return &TrampolineTable{base: base, stride: stride, slots: make(map[int32]uint64)}
}

// TrampolineLookup returns the stub address for the helper, reserving a
// slot on first use. The call site does not influence placement for a
// shared table.
func (t *TrampolineTable) TrampolineLookup(refNumber int32, callSite uint64) uint64 {
	if addr, ok := t.slots[refNumber]; ok {
		return addr
	}
	addr := t.base + t.stride*uint64(len(t.slots))
	t.slots[refNumber] = addr
	return addr
}

// Reserved returns the number of stubs handed out.
func (t *TrampolineTable) Reserved() int { return len(t.slots) }
