package regfile

import (
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/addr"
	"github.com/abs-tudelft/vhdmmio-sub000/bank"
	"github.com/abs-tudelft/vhdmmio-sub000/behavior"
	"github.com/abs-tudelft/vhdmmio-sub000/decode"
	"github.com/abs-tudelft/vhdmmio-sub000/protocol"
)

// Compiled is the result of compiling a register file description:
// the validated register model, the elaborated behaviors, and an
// engine executing the transaction protocol for them.
type Compiled struct {
	id        string
	name      string
	width     int
	optimize  bool
	registers []*bank.Register
	behaviors map[string]behavior.Behavior
	spaces    [2]*addr.Space
	tags      *bank.DeferTagPool
	engine    *protocol.Engine
}

// Compile validates and elaborates a register file description. The
// registry decides which field behaviors are available; nil selects
// the built-in set.
func Compile(config Config, registry *behavior.Registry) (*Compiled, error) {
	if registry == nil {
		registry = behavior.DefaultRegistry()
	}
	if config.Name == "" {
		return nil, errors.New("regfile: register file must have a name")
	}

	width := config.AddressWidth
	if width == 0 {
		width = 32
	}
	if width < 1 || width > 64 {
		return nil, fmt.Errorf(
			"regfile: invalid address width %d", width)
	}
	busWidth := config.BusWidth
	if busWidth == 0 {
		busWidth = 32
	}
	if busWidth != 32 && busWidth != 64 {
		return nil, fmt.Errorf("regfile: invalid bus width %d", busWidth)
	}

	c := &Compiled{
		id:        xid.New().String(),
		name:      config.Name,
		width:     width,
		optimize:  config.Optimize,
		behaviors: make(map[string]behavior.Behavior),
		spaces: [2]*addr.Space{
			addr.NewSpace(addr.Read, width),
			addr.NewSpace(addr.Write, width),
		},
		tags: &bank.DeferTagPool{},
	}

	engineBuilder := protocol.MakeEngineBuilder().WithWidth(width)

	for _, regConfig := range config.Registers {
		register, builder, err := c.compileRegister(
			regConfig, busWidth, registry, engineBuilder)
		if err != nil {
			return nil, err
		}
		engineBuilder = builder.WithRegister(register)
		c.registers = append(c.registers, register)
	}

	engine, err := engineBuilder.Build()
	if err != nil {
		return nil, err
	}
	c.engine = engine

	for _, direction := range []addr.Direction{addr.Read, addr.Write} {
		c.spaces[direction].Freeze()
	}
	return c, nil
}

func (c *Compiled) compileRegister(
	config RegisterConfig,
	busWidth int,
	registry *behavior.Registry,
	engineBuilder protocol.EngineBuilder,
) (*bank.Register, protocol.EngineBuilder, error) {
	if config.Name == "" {
		return nil, engineBuilder, errors.New(
			"regfile: register must have a name")
	}

	endianness := bank.LittleEndian
	switch config.Endianness {
	case "", "little":
	case "big":
		endianness = bank.BigEndian
	default:
		return nil, engineBuilder, fmt.Errorf(
			"regfile: register %s: unknown endianness %q",
			config.Name, config.Endianness)
	}

	base, err := addr.Parse(config.Address, 0, c.width)
	if err != nil {
		return nil, engineBuilder, fmt.Errorf(
			"regfile: register %s: %w", config.Name, err)
	}

	fields, err := expandFields(config)
	if err != nil {
		return nil, engineBuilder, err
	}

	builder := bank.MakeRegisterBuilder().
		WithName(config.Name).
		WithBase(base).
		WithBusWidth(busWidth).
		WithEndianness(endianness)

	for _, fieldConfig := range fields {
		if _, ok := c.behaviors[fieldConfig.Name]; ok {
			return nil, engineBuilder, fmt.Errorf(
				"regfile: duplicate field name %s", fieldConfig.Name)
		}

		b, err := elaborate(fieldConfig, registry)
		if err != nil {
			return nil, engineBuilder, err
		}
		c.behaviors[fieldConfig.Name] = b

		caps := b.Caps()
		builder = builder.WithField(bank.Field{
			Name: fieldConfig.Name,
			High: fieldConfig.High,
			Low:  fieldConfig.Low,
			Caps: caps,
		})
		if caps.Read != nil {
			engineBuilder = engineBuilder.WithReadHandler(
				fieldConfig.Name, b.ReadHandler())
		}
		if caps.Write != nil {
			engineBuilder = engineBuilder.WithWriteHandler(
				fieldConfig.Name, b.WriteHandler())
		}
	}

	register, err := builder.Build(
		c.spaces[addr.Read], c.spaces[addr.Write], c.tags)
	if err != nil {
		return nil, engineBuilder, err
	}
	return register, engineBuilder, nil
}

// expandFields resolves field repetition into plain fields.
func expandFields(config RegisterConfig) ([]FieldConfig, error) {
	var fields []FieldConfig
	for _, field := range config.Fields {
		if field.Name == "" {
			return nil, fmt.Errorf(
				"regfile: register %s has an unnamed field", config.Name)
		}
		if field.Repeat == 0 || field.Repeat == 1 {
			fields = append(fields, field)
			continue
		}
		if field.Repeat < 0 {
			return nil, fmt.Errorf(
				"regfile: field %s: invalid repeat count %d",
				field.Name, field.Repeat)
		}

		width := field.High - field.Low + 1
		stride := field.Stride
		if stride == 0 {
			stride = width
		}
		if stride < width {
			return nil, fmt.Errorf(
				"regfile: field %s: stride %d is smaller than the field width %d",
				field.Name, stride, width)
		}

		for i := 0; i < field.Repeat; i++ {
			clone := field
			clone.Name = fmt.Sprintf("%s%d", field.Name, i)
			clone.Low = field.Low + i*stride
			clone.High = field.High + i*stride
			clone.Repeat = 0
			clone.Stride = 0
			fields = append(fields, clone)
		}
	}
	return fields, nil
}

func elaborate(
	config FieldConfig,
	registry *behavior.Registry,
) (behavior.Behavior, error) {
	perms := access.AllowAll()
	for _, deny := range config.Deny {
		switch deny {
		case "user":
			perms.User = false
		case "privileged":
			perms.Privileged = false
		case "secure":
			perms.Secure = false
		case "nonsecure":
			perms.Nonsecure = false
		case "data":
			perms.Data = false
		case "instruction":
			perms.Instruction = false
		default:
			return nil, fmt.Errorf(
				"regfile: field %s: unknown protection side %q",
				config.Name, deny)
		}
	}
	prot, err := perms.Mask()
	if err != nil {
		return nil, fmt.Errorf("regfile: field %s: %w", config.Name, err)
	}

	kind := config.Behavior
	if kind == "" {
		kind = "control"
	}
	var behaviorConfig behavior.Config
	if kind == "control" {
		behaviorConfig = behavior.ControlConfig{Reset: config.Reset}
	} else if config.Reset != 0 {
		return nil, fmt.Errorf(
			"regfile: field %s: behavior %s takes no reset value",
			config.Name, kind)
	}

	return registry.New(kind, behavior.Info{
		Name: config.Name,
		High: config.High,
		Low:  config.Low,
		Prot: prot,
	}, behaviorConfig)
}

// ID returns the unique identifier assigned to this compilation.
func (c *Compiled) ID() string {
	return c.id
}

// Name returns the register file name.
func (c *Compiled) Name() string {
	return c.name
}

// AddressWidth returns the word address width in bits.
func (c *Compiled) AddressWidth() int {
	return c.width
}

// Registers returns the compiled registers in configuration order.
func (c *Compiled) Registers() []*bank.Register {
	return c.registers
}

// Behavior returns the elaborated behavior of the named field.
func (c *Compiled) Behavior(field string) (behavior.Behavior, bool) {
	b, ok := c.behaviors[field]
	return b, ok
}

// Space returns the frozen address space of the given direction.
func (c *Compiled) Space(direction addr.Direction) *addr.Space {
	return c.spaces[direction]
}

// Tags returns the defer tag pool of the register file.
func (c *Compiled) Tags() *bank.DeferTagPool {
	return c.tags
}

// Engine returns the transaction protocol engine serving the
// register file.
func (c *Compiled) Engine() *protocol.Engine {
	return c.engine
}

// RenderDecoder renders the address decoder of the given direction as
// VHDL-style conditionals over the named address signal. The Optimize
// configuration flag controls whether guards for unmapped addresses
// are kept.
func (c *Compiled) RenderDecoder(
	direction addr.Direction,
	signal string,
) ([]string, error) {
	builder := decode.MakeBuilder().WithWidth(c.width)
	if c.optimize {
		builder = builder.WithOptimize()
	}
	s := builder.Build()
	for _, register := range c.registers {
		if register.Caps(direction) == nil {
			continue
		}
		for _, block := range register.Blocks() {
			if err := s.Add(block.Pattern, blockAction(block.Name)); err != nil {
				return nil, err
			}
		}
	}
	tree, err := s.Synthesize()
	if err != nil {
		return nil, err
	}
	return decode.Render(tree, signal), nil
}

// blockAction renders a leaf as the name of the block it dispatches
// to.
type blockAction string

func (a blockAction) String() string {
	return fmt.Sprintf("%s();", string(a))
}

// A categorized error carries a diagnostic category.
type categorized interface {
	Category() string
}

// Category returns the diagnostic category of a compilation error:
// "decode conflict", "sibling capability conflict", "address
// arithmetic overflow", "permission conflict", or "configuration
// error" for everything else.
func Category(err error) string {
	var c categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	return "configuration error"
}
