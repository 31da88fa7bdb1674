// Package behavior implements field behaviors: the logic behind a
// field's bit range that decides what bus reads and writes do, and
// the capabilities it demands from the surrounding register.
package behavior

import (
	"fmt"
	"sort"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/addr"
	"github.com/abs-tudelft/vhdmmio-sub000/protocol"
)

// Info describes the field a behavior is elaborated for.
type Info struct {
	Name string

	// High and Low delimit the field's bit range within the
	// register's logical value.
	High int
	Low  int

	// Prot restricts the protection bits the field accepts.
	Prot addr.MaskedAddress
}

// Width returns the field width in bits.
func (i Info) Width() int {
	return i.High - i.Low + 1
}

// Extract returns the field's bits from a register value.
func (i Info) Extract(data uint64) uint64 {
	return (data >> uint(i.Low)) & i.mask()
}

// Place positions a field value within a register value.
func (i Info) Place(value uint64) uint64 {
	return (value & i.mask()) << uint(i.Low)
}

func (i Info) mask() uint64 {
	if i.Width() >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(i.Width()) - 1
}

// A Behavior is an elaborated field: its capabilities and the
// transaction protocol handlers implementing it. Handlers are nil for
// unsupported directions, matching the capabilities.
type Behavior interface {
	Caps() access.Bus
	ReadHandler() protocol.Handler
	WriteHandler() protocol.Handler
}

// Config carries the behavior-specific configuration. Each behavior
// kind documents the concrete type it expects; nil selects defaults.
type Config interface{}

// A Constructor elaborates a behavior for one field.
type Constructor func(info Info, config Config) (Behavior, error)

// A Registry maps behavior kind names to constructors. Registries
// are explicit values rather than process-wide state, so callers can
// extend or restrict the behavior set per register file.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a behavior kind. Registering the same name twice is a
// programming error.
func (r *Registry) Register(name string, constructor Constructor) {
	if _, ok := r.constructors[name]; ok {
		panic(fmt.Sprintf("behavior %s registered twice", name))
	}
	r.constructors[name] = constructor
}

// Names returns the registered behavior kinds in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New elaborates a behavior of the given kind.
func (r *Registry) New(kind string, info Info, config Config) (Behavior, error) {
	constructor, ok := r.constructors[kind]
	if !ok {
		return nil, fmt.Errorf("behavior: unknown behavior %s for field %s",
			kind, info.Name)
	}
	return constructor(info, config)
}

// DefaultRegistry returns a registry with the built-in behaviors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("control", NewControl)
	r.Register("status", NewStatus)
	r.Register("flag", NewFlag)
	r.Register("counter", NewCounter)
	return r
}
