package bank

import (
	"math/bits"

	"github.com/abs-tudelft/vhdmmio-sub000/addr"
)

// A DeferTagPool hands out the hardware completion tags of deferring
// registers, per direction, across one register file.
type DeferTagPool struct {
	counts [2]int
}

// Reserve assigns the next tag for the given direction.
func (p *DeferTagPool) Reserve(direction addr.Direction) int {
	tag := p.counts[direction]
	p.counts[direction]++
	return tag
}

// Count returns the number of tags reserved for the given direction.
func (p *DeferTagPool) Count(direction addr.Direction) int {
	return p.counts[direction]
}

// Width returns the number of bits needed to encode the tags of the
// given direction on the completion interface, or zero when nothing
// defers.
func (p *DeferTagPool) Width(direction addr.Direction) int {
	count := p.counts[direction]
	if count == 0 {
		return 0
	}
	if count == 1 {
		return 1
	}
	return bits.Len(uint(count - 1))
}
