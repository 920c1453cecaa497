package ilgen

import "fmt"

// VirtualMachineRegister simulates a single persistent virtual machine
// location, typically a field of the VM structure such as the operand
// stack-top pointer. The simulated value lives in a method-local
// temporary; Commit writes the temporary back to its home location and
// Reload refreshes it from there.
//
// All copies of a register share the same temporary, so after a fork
// both paths keep updating one variable and MergeInto has nothing to
// reconcile. That is exactly the property the operand stack relies on
// when it adjusts the stack-top register on every push and pop.
type VirtualMachineRegister struct {
	mb   *MethodBuilder
	home string // name of the real VM location
	temp string // method-local temporary holding the simulated value
}

// NewVirtualMachineRegister creates a simulated register for the named
// VM location and loads its current value into the backing temporary.
func NewVirtualMachineRegister(mb *MethodBuilder, home string, b Builder) *VirtualMachineRegister {
	r := &VirtualMachineRegister{
		mb:   mb,
		home: home,
		temp: mb.tempName(home),
	}
	r.Reload(b)
	return r
}

// Home returns the name of the real VM location this register shadows.
func (r *VirtualMachineRegister) Home() string { return r.home }

// Load produces the register's current simulated value.
func (r *VirtualMachineRegister) Load(b Builder) *Value {
	return b.Load(r.temp)
}

// Store replaces the register's simulated value.
func (r *VirtualMachineRegister) Store(b Builder, value *Value) {
	b.Store(r.temp, value)
}

// Adjust adds amount (in elements, may be negative) to the simulated
// value. Used by the operand stack to track pushes and pops.
func (r *VirtualMachineRegister) Adjust(b Builder, amount int32) {
	if amount == 0 {
		return
	}
	b.Store(r.temp, b.Add(b.Load(r.temp), b.ConstInt32(amount)))
}

// Commit writes the simulated value back to the register's home
// location.
func (r *VirtualMachineRegister) Commit(b Builder) {
	b.Store(r.home, b.Load(r.temp))
}

// Reload refreshes the simulated value from the home location.
func (r *VirtualMachineRegister) Reload(b Builder) {
	b.Store(r.temp, b.Load(r.home))
}

// MakeCopy returns a copy sharing the same home location and temporary.
func (r *VirtualMachineRegister) MakeCopy() VMState {
	return &VirtualMachineRegister{mb: r.mb, home: r.home, temp: r.temp}
}

// MergeInto checks that other shadows the same location. No operations
// are needed: both copies already use the same temporary.
func (r *VirtualMachineRegister) MergeInto(other VMState, b Builder) {
	o, ok := other.(*VirtualMachineRegister)
	if !ok {
		panic(fmt.Sprintf("ilgen: merging simulated register into %T", other))
	}
	if o.home != r.home || o.temp != r.temp {
		panic(fmt.Sprintf("ilgen: merging simulated register %q into unrelated register %q",
			r.home, o.home))
	}
}
