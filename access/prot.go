package access

import (
	"fmt"

	"github.com/abs-tudelft/vhdmmio-sub000/addr"
)

// ProtWidth is the number of protection bits carried per transfer.
// Bit 0 distinguishes user from privileged accesses, bit 1 secure
// from nonsecure, and bit 2 data from instruction.
const ProtWidth = 3

// Permissions lists, per protection axis, which sides of the axis a
// field accepts. The zero value denies everything; use AllowAll for
// the common unrestricted case.
type Permissions struct {
	User       bool
	Privileged bool
	Secure     bool
	Nonsecure  bool
	Data       bool
	Instruction bool
}

// AllowAll returns permissions accepting every protection value.
func AllowAll() Permissions {
	return Permissions{
		User: true, Privileged: true,
		Secure: true, Nonsecure: true,
		Data: true, Instruction: true,
	}
}

// A PermissionError reports an axis of which both sides are denied,
// leaving no protection value the field would ever accept.
type PermissionError struct {
	SideA string
	SideB string
}

// Category returns the diagnostic category of this error.
func (e *PermissionError) Category() string {
	return "permission conflict"
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf(
		"access: cannot deny both %s and %s accesses", e.SideA, e.SideB)
}

// Mask derives the 3-bit protection pattern that a transaction's
// protection bits must match.
func (p Permissions) Mask() (addr.MaskedAddress, error) {
	var value, mask uint64

	axes := []struct {
		bit    int
		low    bool
		high   bool
		lowName, highName string
	}{
		{0, p.User, p.Privileged, "user", "privileged"},
		{1, p.Secure, p.Nonsecure, "secure", "nonsecure"},
		{2, p.Data, p.Instruction, "data", "instruction"},
	}

	for _, axis := range axes {
		switch {
		case axis.low && axis.high:
			// Don't care.
		case axis.high:
			value |= 1 << axis.bit
			mask |= 1 << axis.bit
		case axis.low:
			mask |= 1 << axis.bit
		default:
			return addr.MaskedAddress{}, &PermissionError{
				SideA: axis.lowName,
				SideB: axis.highName,
			}
		}
	}

	return addr.New(value, mask), nil
}
