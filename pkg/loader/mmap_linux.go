package loader

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/karstvm/karst/pkg/codecache"
)

// Segment is a block of executable memory holding a relocated unit.
type Segment struct {
	mem  []byte
	base uint64
}

// Base returns the address the code runs at.
func (s *Segment) Base() uint64 { return s.base }

// Bytes returns the mapped code. The slice is read-only once Place
// seals the mapping.
func (s *Segment) Bytes() []byte { return s.mem }

// Release unmaps the segment. The code must no longer be running.
func (s *Segment) Release() error {
	if s.mem == nil {
		return nil
	}
	err := unix.Munmap(s.mem)
	s.mem = nil
	return err
}

// Place maps an anonymous writable region, copies the unit's code into
// it, applies the relocations against the region's actual address, and
// flips the mapping to read-execute.
func Place(u *codecache.CompiledUnit, resolver SymbolResolver) (*Segment, error) {
	if len(u.Code) == 0 {
		return nil, fmt.Errorf("loader: unit %s has no code", u.ID)
	}

	mem, err := unix.Mmap(-1, 0, len(u.Code),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("loader: mmap %d bytes: %w", len(u.Code), err)
	}
	seg := &Segment{mem: mem, base: uint64(uintptr(unsafe.Pointer(&mem[0])))}

	copy(mem, u.Code)
	if err := ApplyRelocations(mem, seg.base, u.Relocations, resolver); err != nil {
		seg.Release()
		return nil, err
	}

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		seg.Release()
		return nil, fmt.Errorf("loader: mprotect: %w", err)
	}
	return seg, nil
}
