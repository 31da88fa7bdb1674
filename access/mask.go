package access

import "fmt"

// Bus pairs the read and write capabilities of one field. Either side
// may be nil when the field does not support that direction, but not
// both.
type Bus struct {
	Read  *Capabilities
	Write *Capabilities
}

// MaskingNeeded returns whether a partial write to the surrounding
// register needs to take special care to leave this field untouched.
func (b Bus) MaskingNeeded() bool {
	return b.Write != nil && b.Write.NoOpMethod != NoOpAlways
}

// CanMaskWithStrobe returns whether deasserting the byte strobes for
// this field's bit range is enough to leave it untouched.
func (b Bus) CanMaskWithStrobe() bool {
	if !b.MaskingNeeded() {
		return true
	}
	switch b.Write.NoOpMethod {
	case NoOpAlways, NoOpWriteZero, NoOpWriteCurrentOrMask, NoOpMask:
		return true
	case NoOpWriteCurrent, NoOpNever:
		return false
	}
	panic(fmt.Sprintf("invalid no-op method %d", int(b.Write.NoOpMethod)))
}

// CanMaskWithZero returns whether writing zeros to this field's bit
// range is enough to leave it untouched.
func (b Bus) CanMaskWithZero() bool {
	if !b.MaskingNeeded() {
		return true
	}
	switch b.Write.NoOpMethod {
	case NoOpAlways, NoOpWriteZero:
		return true
	case NoOpWriteCurrent, NoOpWriteCurrentOrMask, NoOpMask, NoOpNever:
		return false
	}
	panic(fmt.Sprintf("invalid no-op method %d", int(b.Write.NoOpMethod)))
}

// CanMaskWithRMW returns whether reading the current value and
// writing it back is enough to leave this field untouched. This
// additionally requires a side-effect-free read.
func (b Bus) CanMaskWithRMW() bool {
	if b.Read == nil || b.Read.NoOpMethod != NoOpAlways || !b.Read.CanReadForRMW {
		return false
	}
	if !b.MaskingNeeded() {
		return true
	}
	switch b.Write.NoOpMethod {
	case NoOpAlways, NoOpWriteCurrent, NoOpWriteCurrentOrMask:
		return true
	case NoOpWriteZero, NoOpMask, NoOpNever:
		return false
	}
	panic(fmt.Sprintf("invalid no-op method %d", int(b.Write.NoOpMethod)))
}

// A MaskError reports a write-capable field that no partial-write
// masking strategy can leave untouched.
type MaskError struct {
	Field  string
	Method NoOpMethod
}

// Category returns the diagnostic category of this error.
func (e *MaskError) Category() string {
	return "sibling capability conflict"
}

func (e *MaskError) Error() string {
	return fmt.Sprintf(
		"access: writes to the register around field %s cannot be masked away "+
			"from it (write no-op method is %s)", e.Field, e.Method)
}

// CheckMaskable verifies that at least one masking strategy works for
// this field during a partial write of the surrounding register.
func (b Bus) CheckMaskable(field string) error {
	if b.Write == nil {
		return nil
	}
	if b.CanMaskWithStrobe() || b.CanMaskWithZero() || b.CanMaskWithRMW() {
		return nil
	}
	return &MaskError{Field: field, Method: b.Write.NoOpMethod}
}
