package behavior

import (
	"fmt"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/protocol"
)

// A Status field is read-only from the bus and driven by hardware
// through SetValue.
type Status struct {
	info  Info
	value uint64
}

// NewStatus elaborates a status behavior. It takes no configuration.
func NewStatus(info Info, config Config) (Behavior, error) {
	if config != nil {
		return nil, fmt.Errorf(
			"behavior: field %s: status takes no configuration, got %T",
			info.Name, config)
	}
	return &Status{info: info}, nil
}

// SetValue updates the value the bus reads, as driven by hardware.
func (s *Status) SetValue(value uint64) {
	s.value = s.info.Extract(s.info.Place(value))
}

// Caps implements Behavior.
func (s *Status) Caps() access.Bus {
	return access.Bus{
		Read: &access.Capabilities{
			NoOpMethod:    access.NoOpAlways,
			CanReadForRMW: true,
			Prot:          s.info.Prot,
		},
	}
}

// ReadHandler implements Behavior.
func (s *Status) ReadHandler() protocol.Handler {
	return protocol.HookSet{
		OnNormal: func(acc *protocol.Access) protocol.Outcome {
			return protocol.Outcome{Ack: true, Data: s.info.Place(s.value)}
		},
	}
}

// WriteHandler implements Behavior.
func (s *Status) WriteHandler() protocol.Handler {
	return nil
}
