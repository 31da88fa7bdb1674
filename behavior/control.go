package behavior

import (
	"fmt"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/protocol"
)

// ControlConfig configures a control behavior.
type ControlConfig struct {
	// Reset is the field value after reset.
	Reset uint64
}

// A Control field is plain software-owned storage: the bus reads back
// what it last wrote, and the stored value drives hardware.
type Control struct {
	info  Info
	value uint64
}

// NewControl elaborates a control behavior.
func NewControl(info Info, config Config) (Behavior, error) {
	cfg := ControlConfig{}
	switch c := config.(type) {
	case nil:
	case ControlConfig:
		cfg = c
	default:
		return nil, fmt.Errorf(
			"behavior: field %s: control takes a ControlConfig, got %T",
			info.Name, config)
	}
	return &Control{info: info, value: info.Extract(info.Place(cfg.Reset))}, nil
}

// Value returns the stored value, as seen by hardware.
func (c *Control) Value() uint64 {
	return c.value
}

// Caps implements Behavior.
func (c *Control) Caps() access.Bus {
	return access.Bus{
		Read: &access.Capabilities{
			NoOpMethod:    access.NoOpAlways,
			CanReadForRMW: true,
			Prot:          c.info.Prot,
		},
		Write: &access.Capabilities{
			NoOpMethod: access.NoOpMask,
			Prot:       c.info.Prot,
		},
	}
}

// ReadHandler implements Behavior.
func (c *Control) ReadHandler() protocol.Handler {
	return protocol.HookSet{
		OnNormal: func(acc *protocol.Access) protocol.Outcome {
			return protocol.Outcome{Ack: true, Data: c.info.Place(c.value)}
		},
	}
}

// WriteHandler implements Behavior.
func (c *Control) WriteHandler() protocol.Handler {
	return protocol.HookSet{
		OnNormal: func(acc *protocol.Access) protocol.Outcome {
			data := c.info.Extract(acc.Data)
			strobe := c.info.Extract(acc.Strobe)
			c.value = (c.value &^ strobe) | (data & strobe)
			return protocol.Outcome{Ack: true}
		},
	}
}
