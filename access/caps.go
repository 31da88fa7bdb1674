// Package access models what a field is allowed to do with a bus
// access in each direction, and whether the demands of fields sharing
// a register can coexist.
package access

import (
	"fmt"
	"strings"

	"github.com/abs-tudelft/vhdmmio-sub000/addr"
)

// NoOpMethod ranks the cheapest way to access the register
// surrounding a field without affecting the field itself.
type NoOpMethod int

const (
	// NoOpAlways means any access is a no-op as long as this field is
	// not addressed by the byte strobes.
	NoOpAlways NoOpMethod = iota

	// NoOpWriteZero means writing zero to this field is a no-op.
	NoOpWriteZero

	// NoOpWriteCurrent means writing the current value back is a
	// no-op.
	NoOpWriteCurrent

	// NoOpWriteCurrentOrMask means writing either the current value or
	// all ones is a no-op.
	NoOpWriteCurrentOrMask

	// NoOpMask means masking the access away with the byte strobes is
	// the only no-op.
	NoOpMask

	// NoOpNever means every access touching this field has an effect.
	NoOpNever
)

func (m NoOpMethod) String() string {
	switch m {
	case NoOpAlways:
		return "always"
	case NoOpWriteZero:
		return "write-zero"
	case NoOpWriteCurrent:
		return "write-current"
	case NoOpWriteCurrentOrMask:
		return "write-current-or-mask"
	case NoOpMask:
		return "mask"
	case NoOpNever:
		return "never"
	}
	panic(fmt.Sprintf("invalid no-op method %d", int(m)))
}

// Capabilities describes what a field does with a bus access in one
// direction. A nil *Capabilities means the direction is unsupported.
// Capabilities are constructed once when a field's behavior is
// elaborated and are read-only thereafter.
type Capabilities struct {
	// Volatile means that performing the same access twice has a
	// different result than performing it once.
	Volatile bool

	// CanBlock means the field may stall the bus until it is ready.
	CanBlock bool

	// CanDefer means the field may consume the request now and
	// produce the response out of order later.
	CanDefer bool

	// NoOpMethod is the cheapest way to access the surrounding
	// register without affecting this field.
	NoOpMethod NoOpMethod

	// CanReadForRMW means the value returned by a read may be written
	// back as part of a read-modify-write without side effects. Only
	// meaningful for read capabilities.
	CanReadForRMW bool

	// Prot restricts the accepted protection bits, matched like an
	// address pattern over 3 bits.
	Prot addr.MaskedAddress
}

// A Sibling is a named capability set taking part in a sibling
// compatibility check.
type Sibling struct {
	Name string
	Caps *Capabilities
}

// A SiblingError reports fields whose capabilities cannot coexist in
// one register for one direction.
type SiblingError struct {
	Fields []string
	Reason string
}

// Category returns the diagnostic category of this error.
func (e *SiblingError) Category() string {
	return "sibling capability conflict"
}

func (e *SiblingError) Error() string {
	return fmt.Sprintf("access: %s: %s",
		e.Reason, strings.Join(e.Fields, ", "))
}

// CheckSiblings validates that the fields sharing one register in one
// direction can coexist, and returns their combined capabilities.
// Siblings without capabilities for the direction are ignored. The
// verdict and the combined capabilities do not depend on sibling
// order.
func CheckSiblings(siblings []Sibling) (Capabilities, error) {
	var present []Sibling
	for _, sibling := range siblings {
		if sibling.Caps != nil {
			present = append(present, sibling)
		}
	}

	var deferring []string
	for _, sibling := range present {
		if sibling.Caps.CanDefer {
			deferring = append(deferring, sibling.Name)
		}
	}
	if len(deferring) > 1 {
		return Capabilities{}, &SiblingError{
			Fields: deferring,
			Reason: "fields that can defer cannot be combined with other fields",
		}
	}
	if len(deferring) == 1 && len(present) > 1 {
		return Capabilities{}, &SiblingError{
			Fields: names(present),
			Reason: "deferring fields cannot share a register with other fields",
		}
	}

	var blocking []string
	for _, sibling := range present {
		if sibling.Caps.CanBlock {
			blocking = append(blocking, sibling.Name)
		}
	}
	if len(blocking) > 1 {
		return Capabilities{}, &SiblingError{
			Fields: blocking,
			Reason: "cannot have more than one blocking field in a single register",
		}
	}
	if len(blocking) == 1 {
		for _, sibling := range present {
			if sibling.Caps.Volatile && !sibling.Caps.CanBlock {
				return Capabilities{}, &SiblingError{
					Fields: []string{blocking[0], sibling.Name},
					Reason: "cannot have both volatile fields and blocking fields",
				}
			}
		}
	}

	var combined Capabilities
	for _, sibling := range present {
		combined.Volatile = combined.Volatile || sibling.Caps.Volatile
		combined.CanBlock = combined.CanBlock || sibling.Caps.CanBlock
		combined.CanDefer = combined.CanDefer || sibling.Caps.CanDefer
	}
	return combined, nil
}

func names(siblings []Sibling) []string {
	result := make([]string, len(siblings))
	for i, sibling := range siblings {
		result[i] = sibling.Name
	}
	return result
}
