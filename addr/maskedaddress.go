// Package addr provides masked bus addresses and the per-direction
// address spaces that register blocks claim their addresses in.
package addr

import (
	"fmt"
	"math/bits"
	"strings"
)

// A MaskedAddress is a bit pattern over {0, 1, don't-care} that concrete
// bus addresses are matched against. It is stored as an address/mask
// pair; a mask bit of 1 means the corresponding address bit takes part
// in the match.
type MaskedAddress struct {
	address uint64
	mask    uint64
}

// All matches every address.
var All = MaskedAddress{}

// New creates a MaskedAddress from an address and a care mask. Address
// bits outside the mask are cleared.
func New(address, mask uint64) MaskedAddress {
	return MaskedAddress{address: address & mask, mask: mask}
}

// FromUint creates a MaskedAddress that matches the given address
// exactly, except for the given number of ignored LSBs, within a
// signal of width bits.
func FromUint(address uint64, ignoreLSBs, width int) MaskedAddress {
	mask := widthMask(width) &^ (uint64(1)<<ignoreLSBs - 1)
	return New(address, mask)
}

func widthMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<width - 1
}

// Address returns the cared-about address bits.
func (a MaskedAddress) Address() uint64 {
	return a.address
}

// Mask returns the care mask.
func (a MaskedAddress) Mask() uint64 {
	return a.mask
}

// Contains reports whether the given concrete address matches this
// pattern.
func (a MaskedAddress) Contains(address uint64) bool {
	return address&a.mask == a.address
}

// ContainsAll reports whether this pattern matches every address.
func (a MaskedAddress) ContainsAll() bool {
	return a.mask == 0
}

// Overlaps reports whether at least one concrete address matches both
// patterns.
func (a MaskedAddress) Overlaps(other MaskedAddress) bool {
	return a.mask&other.mask&(a.address^other.address) == 0
}

// Common returns an address that matches both patterns. The second
// return value is false when no such address exists. When multiple
// addresses qualify, any one of them may be returned; it is primarily
// intended as an example for diagnostics.
func (a MaskedAddress) Common(other MaskedAddress) (uint64, bool) {
	if !a.Overlaps(other) {
		return 0, false
	}
	return a.address | other.address, true
}

// And removes the match conditions for the bits that are not set in the
// given integer mask.
func (a MaskedAddress) And(mask uint64) MaskedAddress {
	return MaskedAddress{address: a.address & mask, mask: a.mask & mask}
}

// ShiftLeft shifts the pattern left by shamt bits, shifting in don't
// cares. An error is returned when a cared-about bit would move beyond
// the given address width.
func (a MaskedAddress) ShiftLeft(shamt, width int) (MaskedAddress, error) {
	if shamt < 0 {
		panic("negative shift amount")
	}
	if bits.Len64(a.mask)+shamt > width {
		return MaskedAddress{}, fmt.Errorf(
			"addr: bit shift by %d moves matched bits beyond the %d-bit address width",
			shamt, width)
	}
	return MaskedAddress{address: a.address << shamt, mask: a.mask << shamt}, nil
}

// Add adds a summand to the cared-about bits of the address, skipping
// over the don't-care positions. Carrying out of the most significant
// cared-about bit is an overflow; borrowing into it is an underflow.
func (a MaskedAddress) Add(summand int64) (MaskedAddress, error) {
	address := a.address
	carry := uint64(0)
	v := summand
	for bit := 0; bit < bits.Len64(a.mask); bit++ {
		bitm := uint64(1) << bit
		if a.mask&bitm == 0 {
			continue
		}
		in := uint64(v) & 1
		v >>= 1
		var cur uint64
		if address&bitm != 0 {
			cur = 1
		}
		sum := in + carry + cur
		if (sum&1)^cur == 1 {
			address ^= bitm
		}
		carry = sum >> 1
	}
	switch {
	case v == 0:
		if carry != 0 {
			return MaskedAddress{}, fmt.Errorf(
				"addr: overflow during address addition")
		}
	case v == -1:
		if carry == 0 {
			return MaskedAddress{}, fmt.Errorf(
				"addr: underflow during address addition")
		}
	default:
		return MaskedAddress{}, fmt.Errorf("addr: address summand out of range")
	}
	return MaskedAddress{address: address, mask: a.mask}, nil
}

// BitString renders the pattern as a string of '0', '1', and '-'
// characters, MSB first, over the given number of bits.
func (a MaskedAddress) BitString(width int) string {
	var sb strings.Builder
	for idx := width - 1; idx >= 0; idx-- {
		bitm := uint64(1) << idx
		switch {
		case a.mask&bitm == 0:
			sb.WriteByte('-')
		case a.address&bitm != 0:
			sb.WriteByte('1')
		default:
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// HexPair renders the pattern as "0x<address>/0x<mask>" with the hex
// digit count appropriate for the given width.
func (a MaskedAddress) HexPair(width int) string {
	digits := (width + 3) / 4
	return fmt.Sprintf("0x%0*X/0x%0*X",
		digits, a.address&widthMask(width), digits, a.mask&widthMask(width))
}

// Render finds the most human-readable representation of the pattern
// for a signal of the given width: plain hex when every bit is matched,
// the "address/n" notation when only n LSBs are ignored, and a binary
// don't-care string otherwise.
func (a MaskedAddress) Render(width int) string {
	wm := widthMask(width)
	address := a.address & wm
	mask := a.mask & wm
	invMask := ^a.mask & wm

	if mask == 0 {
		return "-"
	}

	intFormat := "%d"
	if width > 1 {
		intFormat = fmt.Sprintf("0x%%0%dX", (width+3)/4)
	}

	if mask == wm {
		return fmt.Sprintf(intFormat, address)
	}

	lsbsIgnored := bits.Len64(invMask)
	if invMask == uint64(1)<<lsbsIgnored-1 {
		return fmt.Sprintf(intFormat+"/%d", address, lsbsIgnored)
	}

	return "0b" + a.BitString(width)
}

func (a MaskedAddress) String() string {
	return a.Render(32)
}
