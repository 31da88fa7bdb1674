package bank

import (
	"fmt"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/addr"
)

// RegisterBuilder can build registers.
type RegisterBuilder struct {
	name       string
	base       addr.MaskedAddress
	busWidth   int
	endianness Endianness
	fields     []Field
}

// MakeRegisterBuilder returns a new RegisterBuilder with a 32-bit bus
// word and little endian word order.
func MakeRegisterBuilder() RegisterBuilder {
	return RegisterBuilder{busWidth: 32}
}

// WithName sets the register name.
func (b RegisterBuilder) WithName(name string) RegisterBuilder {
	b.name = name
	return b
}

// WithBase sets the address pattern of the register's first block.
// Subsequent blocks are placed at consecutive word addresses.
func (b RegisterBuilder) WithBase(base addr.MaskedAddress) RegisterBuilder {
	b.base = base
	return b
}

// WithBusWidth sets the width of one bus word in bits.
func (b RegisterBuilder) WithBusWidth(width int) RegisterBuilder {
	b.busWidth = width
	return b
}

// WithEndianness sets the word order of multi-word registers.
func (b RegisterBuilder) WithEndianness(endianness Endianness) RegisterBuilder {
	b.endianness = endianness
	return b
}

// WithField appends a field to the register.
func (b RegisterBuilder) WithField(field Field) RegisterBuilder {
	b.fields = append(b.fields[:len(b.fields):len(b.fields)], field)
	return b
}

// Build validates the register, claims its block addresses in the
// given address spaces, and reserves defer tags from the pool.
func (b RegisterBuilder) Build(
	read, write *addr.Space,
	tags *DeferTagPool,
) (*Register, error) {
	if b.name == "" {
		panic("register must have a name")
	}
	if b.busWidth != 32 && b.busWidth != 64 {
		panic(fmt.Sprintf("invalid bus width %d", b.busWidth))
	}
	if len(b.fields) == 0 {
		return nil, fmt.Errorf("bank: register %s has no fields", b.name)
	}

	if err := b.checkFields(); err != nil {
		return nil, err
	}

	register := &Register{
		name:       b.name,
		busWidth:   b.busWidth,
		endianness: b.endianness,
		fields:     b.fields,
		tags:       [2]int{-1, -1},
	}

	for _, direction := range []addr.Direction{addr.Read, addr.Write} {
		combined, err := b.checkSiblings(direction)
		if err != nil {
			return nil, err
		}
		register.caps[direction] = combined
	}
	if register.caps[addr.Write] != nil && len(b.fields) > 1 {
		for _, field := range b.fields {
			if err := field.Caps.CheckMaskable(field.Name); err != nil {
				return nil, err
			}
		}
	}

	width := 0
	for _, field := range b.fields {
		if field.High >= width {
			width = field.High + 1
		}
	}
	if width > 64 {
		return nil, fmt.Errorf(
			"bank: register %s is %d bits wide, the limit is 64", b.name, width)
	}
	count := (width + b.busWidth - 1) / b.busWidth
	for _, direction := range []addr.Direction{addr.Read, addr.Write} {
		if caps := register.caps[direction]; caps != nil && caps.CanDefer && count > 1 {
			return nil, fmt.Errorf(
				"bank: deferring register %s cannot span multiple words", b.name)
		}
	}

	for i := 0; i < count; i++ {
		pattern, err := b.base.Add(int64(i))
		if err != nil {
			return nil, &ArithmeticError{Register: b.name, Block: i, Cause: err}
		}
		name := b.name
		if count > 1 {
			name = fmt.Sprintf("%s_%d", b.name, i)
		}
		register.blocks = append(register.blocks, &Block{
			Name:     name,
			Index:    i,
			Pattern:  pattern,
			register: register,
		})
	}

	for _, block := range register.blocks {
		if register.caps[addr.Read] != nil {
			if err := read.Claim(block.Pattern, block.Name); err != nil {
				return nil, err
			}
		}
		if register.caps[addr.Write] != nil {
			if err := write.Claim(block.Pattern, block.Name); err != nil {
				return nil, err
			}
		}
	}

	for _, direction := range []addr.Direction{addr.Read, addr.Write} {
		if caps := register.caps[direction]; caps != nil && caps.CanDefer {
			register.tags[direction] = tags.Reserve(direction)
		}
	}

	return register, nil
}

func (b RegisterBuilder) checkFields() error {
	for _, field := range b.fields {
		if field.Low < 0 || field.High < field.Low {
			return fmt.Errorf("bank: field %s has invalid bit range %d..%d",
				field.Name, field.High, field.Low)
		}
		if field.Caps.Read == nil && field.Caps.Write == nil {
			return fmt.Errorf(
				"bank: field %s supports neither read nor write", field.Name)
		}
	}
	for i, a := range b.fields {
		for _, c := range b.fields[i+1:] {
			if a.Low <= c.High && c.Low <= a.High {
				return fmt.Errorf(
					"bank: fields %s (%d..%d) and %s (%d..%d) overlap in register %s",
					a.Name, a.High, a.Low, c.Name, c.High, c.Low, b.name)
			}
		}
	}
	return nil
}

func (b RegisterBuilder) checkSiblings(
	direction addr.Direction,
) (*access.Capabilities, error) {
	siblings := make([]access.Sibling, len(b.fields))
	supported := false
	for i, field := range b.fields {
		caps := field.Caps.Read
		if direction == addr.Write {
			caps = field.Caps.Write
		}
		siblings[i] = access.Sibling{Name: field.Name, Caps: caps}
		supported = supported || caps != nil
	}
	if !supported {
		return nil, nil
	}
	combined, err := access.CheckSiblings(siblings)
	if err != nil {
		return nil, err
	}
	return &combined, nil
}
