// Package target describes the machine configuration the backend
// compiles for. Capabilities that vary by platform (pointer width,
// trampoline support, runtime instrumentation) are plain data here, so
// the same encoder logic can be exercised against any configuration
// without rebuilding.
package target

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// NoSpillSlot marks a target whose VM-thread register has no backing
// store on the stack.
const NoSpillSlot = -1

// maxShortDisplacement is the largest base+displacement offset the
// 12-bit displacement instruction forms can address.
const maxShortDisplacement = 0xFFF

// Target is a z/Architecture machine description.
type Target struct {
	Arch string `toml:"arch"` // "z64" or "z31"

	// PointerWidth is the width of an address in bytes: 8 or 4.
	PointerWidth int `toml:"pointer_width"`

	// SupportsTrampolines reports whether the environment provides a
	// trampoline table for call targets beyond direct branch range.
	SupportsTrampolines bool `toml:"trampolines"`

	// SupportsRuntimeInstrumentation reports whether the processor
	// provides the runtime-instrumentation facility.
	SupportsRuntimeInstrumentation bool `toml:"runtime_instrumentation"`

	// RIOverPrivateLinkage permits instrumentation hooks in snippets
	// that participate in the private JIT linkage.
	RIOverPrivateLinkage bool `toml:"ri_over_private_linkage"`

	// FreeVMThreadRegister reports whether the dedicated VM-thread
	// register is released for allocation and must be reloaded from its
	// spill slot in call snippets.
	FreeVMThreadRegister bool `toml:"free_vm_thread_register"`

	// Machine register numbers, 0-15.
	EntryPointRegister    int `toml:"entry_point_register"`
	StackPointerRegister  int `toml:"stack_pointer_register"`
	ReturnAddressRegister int `toml:"return_address_register"`
	VMThreadRegister      int `toml:"vm_thread_register"`

	// VMThreadSpillOffset is the stack displacement of the VM-thread
	// register's backing store, or NoSpillSlot if none exists.
	VMThreadSpillOffset int32 `toml:"vm_thread_spill_offset"`
}

// Default returns the 64-bit Linux configuration.
func Default() Target {
	return Target{
		Arch:                  "z64",
		PointerWidth:          8,
		SupportsTrampolines:   true,
		EntryPointRegister:    15,
		StackPointerRegister:  15,
		ReturnAddressRegister: 14,
		VMThreadRegister:      13,
		VMThreadSpillOffset:   NoSpillSlot,
	}
}

// Load reads a target descriptor from a TOML file. Fields absent from
// the file keep their Default values.
func Load(path string) (Target, error) {
	t := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("invalid target in %s: %w", path, err)
	}
	return t, nil
}

// Is64Bit reports whether addresses are 8 bytes wide.
func (t Target) Is64Bit() bool { return t.PointerWidth == 8 }

// Validate checks the descriptor for values the encoders cannot work
// with.
func (t Target) Validate() error {
	if t.Arch == "" {
		return fmt.Errorf("arch must be set")
	}
	if t.PointerWidth != 4 && t.PointerWidth != 8 {
		return fmt.Errorf("pointer_width must be 4 or 8, got %d", t.PointerWidth)
	}
	for _, reg := range []struct {
		name string
		n    int
	}{
		{"entry_point_register", t.EntryPointRegister},
		{"stack_pointer_register", t.StackPointerRegister},
		{"return_address_register", t.ReturnAddressRegister},
		{"vm_thread_register", t.VMThreadRegister},
	} {
		if reg.n < 0 || reg.n > 15 {
			return fmt.Errorf("%s must be 0-15, got %d", reg.name, reg.n)
		}
	}
	if t.VMThreadSpillOffset != NoSpillSlot &&
		(t.VMThreadSpillOffset < 0 || t.VMThreadSpillOffset > maxShortDisplacement) {
		return fmt.Errorf("vm_thread_spill_offset %d does not fit a 12-bit displacement",
			t.VMThreadSpillOffset)
	}
	return nil
}
