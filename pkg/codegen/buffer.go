package codegen

import "encoding/binary"

// CodeBuffer accumulates emitted machine code. Instruction words are
// written big-endian, as the architecture stores them. The buffer knows
// the virtual address its first byte will occupy, so encoders can
// compute relative displacements while writing.
type CodeBuffer struct {
	base uint64
	code []byte
}

// NewCodeBuffer creates a buffer whose first byte will be placed at the
// given virtual address.
func NewCodeBuffer(base uint64, capacity int) *CodeBuffer {
	return &CodeBuffer{base: base, code: make([]byte, 0, capacity)}
}

// Base returns the virtual address of offset 0.
func (b *CodeBuffer) Base() uint64 { return b.base }

// Cursor returns the virtual address the next byte will occupy.
func (b *CodeBuffer) Cursor() uint64 { return b.base + uint64(len(b.code)) }

// Offset returns the number of bytes written so far.
func (b *CodeBuffer) Offset() int { return len(b.code) }

// Bytes returns the emitted code.
func (b *CodeBuffer) Bytes() []byte { return b.code }

// Emit8 appends one byte.
func (b *CodeBuffer) Emit8(v uint8) {
	b.code = append(b.code, v)
}

// Emit16 appends a big-endian halfword.
func (b *CodeBuffer) Emit16(v uint16) {
	b.code = binary.BigEndian.AppendUint16(b.code, v)
}

// Emit32 appends a big-endian word.
func (b *CodeBuffer) Emit32(v uint32) {
	b.code = binary.BigEndian.AppendUint32(b.code, v)
}

// Emit64 appends a big-endian doubleword.
func (b *CodeBuffer) Emit64(v uint64) {
	b.code = binary.BigEndian.AppendUint64(b.code, v)
}

// Patch32 overwrites the word at a previously emitted offset.
func (b *CodeBuffer) Patch32(offset int, v uint32) {
	binary.BigEndian.PutUint32(b.code[offset:], v)
}
