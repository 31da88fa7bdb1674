package behavior

import (
	"fmt"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/protocol"
)

// A Counter field counts hardware events. The bus reads the count and
// writes back the amount it processed, which is subtracted, so no
// events are lost between the read and the write. Reads are volatile
// only in combination: the count may change between two reads, but
// reading itself has no side effect.
type Counter struct {
	info  Info
	value uint64
}

// NewCounter elaborates a counter behavior. It takes no
// configuration.
func NewCounter(info Info, config Config) (Behavior, error) {
	if config != nil {
		return nil, fmt.Errorf(
			"behavior: field %s: counter takes no configuration, got %T",
			info.Name, config)
	}
	return &Counter{info: info}, nil
}

// Increment counts one hardware event.
func (c *Counter) Increment() {
	c.value = c.info.Extract(c.info.Place(c.value + 1))
}

// Value returns the current count.
func (c *Counter) Value() uint64 {
	return c.value
}

// Caps implements Behavior.
func (c *Counter) Caps() access.Bus {
	return access.Bus{
		Read: &access.Capabilities{
			NoOpMethod: access.NoOpAlways,
			Prot:       c.info.Prot,
		},
		Write: &access.Capabilities{
			// Writing the accumulated count back is how software
			// acknowledges it; a plain rewrite of the read value is
			// not a no-op.
			Volatile:   true,
			NoOpMethod: access.NoOpWriteZero,
			Prot:       c.info.Prot,
		},
	}
}

// ReadHandler implements Behavior.
func (c *Counter) ReadHandler() protocol.Handler {
	return protocol.HookSet{
		OnNormal: func(acc *protocol.Access) protocol.Outcome {
			return protocol.Outcome{Ack: true, Data: c.info.Place(c.value)}
		},
	}
}

// WriteHandler implements Behavior.
func (c *Counter) WriteHandler() protocol.Handler {
	return protocol.HookSet{
		OnNormal: func(acc *protocol.Access) protocol.Outcome {
			amount := c.info.Extract(acc.Data) & c.info.Extract(acc.Strobe)
			c.value = c.info.Extract(c.info.Place(c.value - amount))
			return protocol.Outcome{Ack: true}
		},
	}
}
