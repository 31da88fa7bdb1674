package behavior

import (
	"fmt"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/protocol"
)

// A Flag field holds sticky bits set by hardware and cleared by the
// bus writing ones to them. Writing zeros is a no-op, so flags
// coexist cheaply with siblings.
type Flag struct {
	info  Info
	value uint64
}

// NewFlag elaborates a flag behavior. It takes no configuration.
func NewFlag(info Info, config Config) (Behavior, error) {
	if config != nil {
		return nil, fmt.Errorf(
			"behavior: field %s: flag takes no configuration, got %T",
			info.Name, config)
	}
	return &Flag{info: info}, nil
}

// Set raises flag bits, as driven by hardware.
func (f *Flag) Set(bits uint64) {
	f.value |= f.info.Extract(f.info.Place(bits))
}

// Value returns the current flag bits.
func (f *Flag) Value() uint64 {
	return f.value
}

// Caps implements Behavior.
func (f *Flag) Caps() access.Bus {
	return access.Bus{
		Read: &access.Capabilities{
			NoOpMethod: access.NoOpAlways,
			Prot:       f.info.Prot,
		},
		Write: &access.Capabilities{
			NoOpMethod: access.NoOpWriteZero,
			Prot:       f.info.Prot,
		},
	}
}

// ReadHandler implements Behavior.
func (f *Flag) ReadHandler() protocol.Handler {
	return protocol.HookSet{
		OnNormal: func(acc *protocol.Access) protocol.Outcome {
			return protocol.Outcome{Ack: true, Data: f.info.Place(f.value)}
		},
	}
}

// WriteHandler implements Behavior.
func (f *Flag) WriteHandler() protocol.Handler {
	return protocol.HookSet{
		OnNormal: func(acc *protocol.Access) protocol.Outcome {
			clear := f.info.Extract(acc.Data) & f.info.Extract(acc.Strobe)
			f.value &^= clear
			return protocol.Outcome{Ack: true}
		},
	}
}
