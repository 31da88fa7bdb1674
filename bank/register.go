// Package bank groups fields into bus words and logical multi-word
// registers, validates that the fields sharing a register can
// coexist, and claims the resulting block addresses.
package bank

import (
	"fmt"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/addr"
)

// A Field is one named bit range of a register together with its bus
// capabilities. The behavior implementing the field lives outside
// this package; fields only carry what the compiler needs to place
// and validate them.
type Field struct {
	Name string

	// High and Low delimit the field's bit range within the
	// register's logical value, inclusive on both sides.
	High int
	Low  int

	Caps access.Bus
}

// A Block is the decode unit for one bus word of a register. Multi
// word registers have one block per word, at consecutive addresses.
type Block struct {
	// Name identifies the block in diagnostics and generated code.
	// Single-block registers use the register name as is.
	Name string

	// Index is the block's position in ascending address order.
	Index int

	// Pattern is the address pattern this block responds to.
	Pattern addr.MaskedAddress

	register *Register
}

// Register returns the register this block belongs to.
func (b *Block) Register() *Register {
	return b.register
}

// First returns whether this block has the lowest address of its
// register. Reads snapshot the register value on this block.
func (b *Block) First() bool {
	return b.Index == 0
}

// Last returns whether this block has the highest address of its
// register. Writes commit atomically on this block.
func (b *Block) Last() bool {
	return b.Index == len(b.register.blocks)-1
}

// Word returns which word of the register's logical value this block
// carries, with word 0 holding the least significant bits.
func (b *Block) Word() int {
	if b.register.endianness == BigEndian {
		return len(b.register.blocks) - 1 - b.Index
	}
	return b.Index
}

// A Register is an ordered set of fields mapped onto one or more
// consecutive bus words.
type Register struct {
	name       string
	busWidth   int
	endianness Endianness
	fields     []Field
	blocks     []*Block
	caps       [2]*access.Capabilities
	tags       [2]int
}

// Name returns the register name.
func (r *Register) Name() string {
	return r.name
}

// BusWidth returns the width of one bus word in bits.
func (r *Register) BusWidth() int {
	return r.busWidth
}

// Endianness returns the word order of the register.
func (r *Register) Endianness() Endianness {
	return r.endianness
}

// Width returns the width of the register's logical value in bits,
// always a whole number of bus words.
func (r *Register) Width() int {
	return len(r.blocks) * r.busWidth
}

// Fields returns the register's fields.
func (r *Register) Fields() []Field {
	return r.fields
}

// Blocks returns the register's blocks in ascending address order.
func (r *Register) Blocks() []*Block {
	return r.blocks
}

// Caps returns the combined capabilities for the given direction, or
// nil when no field supports it.
func (r *Register) Caps(direction addr.Direction) *access.Capabilities {
	return r.caps[direction]
}

// DeferTag returns the completion tag reserved for the given
// direction. The second return value is false when the register
// cannot defer in that direction.
func (r *Register) DeferTag(direction addr.Direction) (int, bool) {
	tag := r.tags[direction]
	return tag, tag >= 0
}

// An ArithmeticError reports that a register's block addresses cannot
// be represented within the address width.
type ArithmeticError struct {
	Register string
	Block    int
	Cause    error
}

// Category returns the diagnostic category of this error.
func (e *ArithmeticError) Category() string {
	return "address arithmetic overflow"
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("bank: cannot place block %d of register %s: %v",
		e.Block, e.Register, e.Cause)
}

func (e *ArithmeticError) Unwrap() error {
	return e.Cause
}
