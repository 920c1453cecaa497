package ilgen

import "fmt"

// stackGrowthIncrement is the minimum number of slots added when the
// backing array fills up.
const stackGrowthIncrement = 32

// StackLayout describes how the virtual machine arranges its real
// operand stack in memory. The zero value is not meaningful; use
// DefaultLayout unless the VM differs.
type StackLayout struct {
	// GrowsUp reports whether pushing moves the stack pointer towards
	// larger addresses.
	GrowsUp bool

	// PtrStartingOffset is the element distance between the initial
	// stack pointer and the logical stack bottom. A VM that pushes by
	// incrementing the pointer and then storing starts one element
	// below the bottom, so -1. A VM that stores and then increments
	// starts at the bottom, so 0. Other values are possible but highly
	// unusual.
	PtrStartingOffset int32
}

// DefaultLayout matches the common increment-then-store discipline on
// an upward-growing stack.
var DefaultLayout = StackLayout{GrowsUp: true, PtrStartingOffset: -1}

// OperandStack simulates a bytecode virtual machine's operand stack at
// a single program point. The slots hold symbolic Value handles, not
// runtime values: pushing and popping manipulates the simulation only,
// and nothing touches the real operand stack until Commit.
//
// One OperandStack describes one program point. Control flow forks take
// a MakeCopy; joins call MergeInto on the canonical state for the join.
type OperandStack struct {
	mb       *MethodBuilder
	stackTop *VirtualMachineRegister
	elemType Type
	layout   StackLayout

	slots []*Value // backing array, len(slots) == max
	top   int32    // number of live values; slots[top-1] is the top
	max   int32

	pushAmount  int32 // elements the stack pointer moves per push
	stackOffset int32 // layout.PtrStartingOffset, cached
}

// NewOperandStack allocates an empty simulated stack with the default
// layout. sizeHint is the initial capacity; the stack grows on demand.
// stackTop is the previously created simulated register tracking the
// real stack-top pointer.
func NewOperandStack(mb *MethodBuilder, sizeHint int32, elemType Type, stackTop *VirtualMachineRegister) *OperandStack {
	return NewOperandStackWithLayout(mb, sizeHint, elemType, stackTop, DefaultLayout)
}

// NewOperandStackWithLayout is NewOperandStack for a VM whose stack
// arrangement differs from DefaultLayout.
func NewOperandStackWithLayout(mb *MethodBuilder, sizeHint int32, elemType Type, stackTop *VirtualMachineRegister, layout StackLayout) *OperandStack {
	if sizeHint < 0 {
		panic(fmt.Sprintf("ilgen: negative operand stack size hint %d", sizeHint))
	}
	s := &OperandStack{
		mb:          mb,
		stackTop:    stackTop,
		elemType:    elemType,
		layout:      layout,
		slots:       make([]*Value, sizeHint),
		max:         sizeHint,
		pushAmount:  1,
		stackOffset: layout.PtrStartingOffset,
	}
	if !layout.GrowsUp {
		s.pushAmount = -1
	}
	return s
}

// Depth returns the number of values currently on the simulated stack.
func (s *OperandStack) Depth() int32 { return s.top }

// Push appends value on top of the simulated stack and moves the
// simulated stack-top register by one element.
func (s *OperandStack) Push(b Builder, value *Value) {
	s.checkSize()
	s.slots[s.top] = value
	s.top++
	s.stackTop.Adjust(b, s.pushAmount)
}

// Pop removes and returns the top of the simulated stack. Popping an
// empty stack is a bug in the bytecode translator and panics.
func (s *OperandStack) Pop(b Builder) *Value {
	if s.top <= 0 {
		panic("ilgen: pop on empty simulated operand stack")
	}
	s.top--
	v := s.slots[s.top]
	s.stackTop.Adjust(b, -s.pushAmount)
	return v
}

// Top returns the top of the simulated stack without removing it.
func (s *OperandStack) Top() *Value {
	if s.top <= 0 {
		panic("ilgen: top of empty simulated operand stack")
	}
	return s.slots[s.top-1]
}

// Pick returns the value depth elements below the top; Pick(0) is Top.
func (s *OperandStack) Pick(depth int32) *Value {
	if depth < 0 || depth >= s.top {
		panic(fmt.Sprintf("ilgen: pick depth %d on simulated stack of depth %d", depth, s.top))
	}
	return s.slots[s.top-1-depth]
}

// Drop discards depth values from the simulated stack without
// materializing them, adjusting the stack-top register accordingly.
func (s *OperandStack) Drop(b Builder, depth int32) {
	if depth == 0 {
		return
	}
	if depth < 0 || depth > s.top {
		panic(fmt.Sprintf("ilgen: drop of %d values on simulated stack of depth %d", depth, s.top))
	}
	s.top -= depth
	s.stackTop.Adjust(b, -depth*s.pushAmount)
}

// Dup pushes another reference to the value already on top. The
// expression itself is not recomputed; both slots alias one handle.
func (s *OperandStack) Dup(b Builder) {
	s.Push(b, s.Top())
}

// Commit writes every simulated slot into the real operand stack,
// relative to the current simulated stack-top pointer. With the default
// layout the pointer addresses the top element, so slot i (0 = bottom)
// lives pushAmount*(i - top - startingOffset) elements away from it.
//
// Re-committing unchanged state emits the same stores again; Commit has
// no side effects on the simulation itself.
func (s *OperandStack) Commit(b Builder) {
	base := s.stackTop.Load(b)
	for i := int32(0); i < s.top; i++ {
		rel := s.pushAmount * (i - s.top - s.stackOffset)
		addr := b.IndexAt(s.elemType, base, b.ConstInt32(rel))
		b.StoreAt(addr, s.slots[i])
	}
}

// Reload is deliberately empty: after a transition back from the
// interpreter the bytecode translator is responsible for repopulating
// the simulated stack itself, because only it knows which expressions
// are live. The stack cannot reconstruct symbolic values from memory.
func (s *OperandStack) Reload(b Builder) {}

// MakeCopy returns an independent simulator with the same slot contents
// and depth. The slot array is duplicated; the value handles and the
// stack-top register are shared.
func (s *OperandStack) MakeCopy() VMState {
	c := &OperandStack{
		mb:          s.mb,
		stackTop:    s.stackTop,
		elemType:    s.elemType,
		layout:      s.layout,
		slots:       make([]*Value, s.max),
		top:         s.top,
		max:         s.max,
		pushAmount:  s.pushAmount,
		stackOffset: s.stackOffset,
	}
	copy(c.slots, s.slots[:s.top])
	return c
}

// MergeInto stores this path's values into the variables other's values
// occupy, slot by slot. Code generated downstream of the join point was
// generated against other's handles; after the emitted StoreOver
// operations run, this path's values are visible under those handles.
//
// Slots already holding the same expression on both paths need no
// store. Stacks of different depths at a join indicate an unsound
// translation and panic.
func (s *OperandStack) MergeInto(other VMState, b Builder) {
	o, ok := other.(*OperandStack)
	if !ok {
		panic(fmt.Sprintf("ilgen: merging operand stack into %T", other))
	}
	if s.top != o.top {
		panic(fmt.Sprintf("ilgen: merging operand stacks of different depths: %d vs %d", s.top, o.top))
	}
	for i := s.top - 1; i >= 0; i-- {
		if s.slots[i].ID() != o.slots[i].ID() {
			b.StoreOver(o.slots[i], s.slots[i])
		}
	}
}

// checkSize grows the backing array if the next push would overflow it.
func (s *OperandStack) checkSize() {
	if s.top == s.max {
		s.grow(0)
	}
}

// grow reallocates the backing array, preserving the live slots. The
// value handles themselves are untouched, so references held by the IR
// stay valid.
func (s *OperandStack) grow(growAmount int32) {
	if growAmount < stackGrowthIncrement {
		growAmount = stackGrowthIncrement
	}
	grown := make([]*Value, s.max+growAmount)
	copy(grown, s.slots[:s.top])
	s.slots = grown
	s.max += growAmount
}
