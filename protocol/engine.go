package protocol

import (
	"fmt"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/addr"
	"github.com/abs-tudelft/vhdmmio-sub000/bank"
	"github.com/abs-tudelft/vhdmmio-sub000/decode"
)

type fieldHandler struct {
	field   bank.Field
	caps    *access.Capabilities
	handler Handler
}

// registerState is the per-register hardware state: the write holding
// buffer, the read snapshot, and whether a multi-word read sequence
// is in progress.
type registerState struct {
	wHold   uint64
	wStrobe uint64
	rHold   uint64
	rMulti  bool
}

func (st *registerState) clearWrite() {
	st.wHold = 0
	st.wStrobe = 0
}

type pending struct {
	access   *Access
	handlers []fieldHandler
}

// An Engine executes the transaction protocol for one register file,
// one bus transfer per direction per cycle. It models exactly what
// the generated register logic does in hardware, so tests and
// software mockups observe the same responses cycle by cycle.
type Engine struct {
	*HookableBase

	width    int
	trees    [2]decode.Node
	handlers map[*bank.Register][2][]fieldHandler
	state    map[*bank.Register]*registerState
	queues   [2][]*pending
}

type namedHandler struct {
	field     string
	direction addr.Direction
	handler   Handler
}

// EngineBuilder can build protocol engines.
type EngineBuilder struct {
	width     int
	registers []*bank.Register
	handlers  []namedHandler
}

// MakeEngineBuilder returns a new EngineBuilder with a 32-bit address
// width.
func MakeEngineBuilder() EngineBuilder {
	return EngineBuilder{width: 32}
}

// WithWidth sets the address width in bits.
func (b EngineBuilder) WithWidth(width int) EngineBuilder {
	b.width = width
	return b
}

// WithRegister adds a register to serve.
func (b EngineBuilder) WithRegister(register *bank.Register) EngineBuilder {
	b.registers = append(
		b.registers[:len(b.registers):len(b.registers)], register)
	return b
}

// WithReadHandler sets the read handler of the named field.
func (b EngineBuilder) WithReadHandler(field string, handler Handler) EngineBuilder {
	b.handlers = append(b.handlers[:len(b.handlers):len(b.handlers)],
		namedHandler{field, addr.Read, handler})
	return b
}

// WithWriteHandler sets the write handler of the named field.
func (b EngineBuilder) WithWriteHandler(field string, handler Handler) EngineBuilder {
	b.handlers = append(b.handlers[:len(b.handlers):len(b.handlers)],
		namedHandler{field, addr.Write, handler})
	return b
}

// Build wires the handlers to the registers' fields and compiles the
// per-direction decoder trees.
func (b EngineBuilder) Build() (*Engine, error) {
	byField := make(map[addr.Direction]map[string]Handler)
	byField[addr.Read] = make(map[string]Handler)
	byField[addr.Write] = make(map[string]Handler)
	for _, entry := range b.handlers {
		if _, ok := byField[entry.direction][entry.field]; ok {
			return nil, fmt.Errorf("protocol: duplicate %s handler for field %s",
				entry.direction, entry.field)
		}
		byField[entry.direction][entry.field] = entry.handler
	}

	e := &Engine{
		HookableBase: NewHookableBase(),
		width:        b.width,
		handlers:     make(map[*bank.Register][2][]fieldHandler),
		state:        make(map[*bank.Register]*registerState),
	}

	claimed := make(map[addr.Direction]map[string]bool)
	claimed[addr.Read] = make(map[string]bool)
	claimed[addr.Write] = make(map[string]bool)

	for _, direction := range []addr.Direction{addr.Read, addr.Write} {
		s := decode.MakeBuilder().WithWidth(b.width).Build()
		for _, register := range b.registers {
			if register.Caps(direction) == nil {
				continue
			}
			for _, block := range register.Blocks() {
				if err := s.Add(block.Pattern, block); err != nil {
					return nil, err
				}
			}
			handlers, err := b.fieldHandlers(
				register, direction, byField[direction], claimed[direction])
			if err != nil {
				return nil, err
			}
			entry := e.handlers[register]
			entry[direction] = handlers
			e.handlers[register] = entry
		}
		tree, err := s.Synthesize()
		if err != nil {
			return nil, err
		}
		e.trees[direction] = tree
	}

	for _, entry := range b.handlers {
		if !claimed[entry.direction][entry.field] {
			return nil, fmt.Errorf("protocol: %s handler for unknown field %s",
				entry.direction, entry.field)
		}
	}

	for _, register := range b.registers {
		e.state[register] = &registerState{}
	}

	return e, nil
}

func (b EngineBuilder) fieldHandlers(
	register *bank.Register,
	direction addr.Direction,
	byField map[string]Handler,
	claimed map[string]bool,
) ([]fieldHandler, error) {
	var handlers []fieldHandler
	for _, field := range register.Fields() {
		caps := field.Caps.Read
		if direction == addr.Write {
			caps = field.Caps.Write
		}
		if caps == nil {
			continue
		}
		handler, ok := byField[field.Name]
		if !ok {
			return nil, fmt.Errorf("protocol: no %s handler for field %s",
				direction, field.Name)
		}
		claimed[field.Name] = true
		handlers = append(handlers, fieldHandler{
			field:   field,
			caps:    caps,
			handler: handler,
		})
	}
	return handlers, nil
}

// Tree returns the synthesized decoder tree for the given direction.
func (e *Engine) Tree(direction addr.Direction) decode.Node {
	return e.trees[direction]
}

// Pending returns the number of outstanding deferred accesses for the
// given direction.
func (e *Engine) Pending(direction addr.Direction) int {
	return len(e.queues[direction])
}

func (e *Engine) match(direction addr.Direction, address uint64) *bank.Block {
	actions := decode.Match(e.trees[direction], address, e.width)
	if len(actions) == 0 {
		return nil
	}
	return actions[0].(*bank.Block)
}

// TickRead advances the read channel by one cycle. req is the transfer
// at the head of the read address channel, nil when there is none;
// ready reports whether the response channel can accept a transfer
// this cycle. TickRead returns the response produced this cycle, if
// any, and whether req was consumed. An unconsumed request must be
// presented again next cycle.
func (e *Engine) TickRead(req *ReadReq, ready bool) (*ReadResp, bool) {
	if len(e.queues[addr.Read]) > 0 {
		var resp *ReadResp
		if ready {
			resp = e.completeRead()
		}
		consumed := false
		if req != nil {
			consumed = e.lookaheadRead(req)
		}
		return resp, consumed
	}

	if req == nil {
		return nil, false
	}

	block := e.match(addr.Read, req.Addr)
	if block == nil {
		if !ready {
			return nil, false
		}
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosDecodeError, Item: req})
		return &ReadResp{Resp: RespDecodeError}, true
	}
	e.InvokeHook(HookCtx{Domain: e, Pos: HookPosDispatch, Item: req, Detail: block})

	if !ready {
		return nil, e.lookaheadRead(req)
	}
	return e.normalRead(block, req)
}

func (e *Engine) normalRead(block *bank.Block, req *ReadReq) (*ReadResp, bool) {
	register := block.Register()
	st := e.state[register]

	if !block.First() {
		if !st.rMulti {
			e.InvokeHook(HookCtx{Domain: e, Pos: HookPosNack, Item: req})
			return &ReadResp{Resp: RespSlaveError}, true
		}
		data := wordOf(st.rHold, block)
		if block.Last() {
			st.rMulti = false
		}
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosAck, Item: req})
		return &ReadResp{Resp: RespOkay, Data: data}, true
	}

	acc := &Access{
		Register:  register,
		Direction: addr.Read,
		Addr:      req.Addr,
		Prot:      req.Prot,
		Tag:       -1,
	}
	out, acted := e.invokeNormal(register, addr.Read, acc)
	switch {
	case !acted:
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosDecodeError, Item: acc})
		return &ReadResp{Resp: RespDecodeError}, true
	case out.Block:
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosBlock, Item: acc})
		return nil, false
	case out.Defer:
		e.push(addr.Read, register, acc)
		return nil, true
	case out.Nack:
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosNack, Item: acc})
		return &ReadResp{Resp: RespSlaveError}, true
	}

	st.rHold = out.Data
	if !block.Last() {
		st.rMulti = true
	}
	e.InvokeHook(HookCtx{Domain: e, Pos: HookPosAck, Item: acc})
	return &ReadResp{Resp: RespOkay, Data: wordOf(out.Data, block)}, true
}

// TickWrite advances the write channel by one cycle, with the same
// contract as TickRead.
func (e *Engine) TickWrite(req *WriteReq, ready bool) (*WriteResp, bool) {
	if len(e.queues[addr.Write]) > 0 {
		var resp *WriteResp
		if ready {
			resp = e.completeWrite()
		}
		consumed := false
		if req != nil {
			consumed = e.lookaheadWrite(req)
		}
		return resp, consumed
	}

	if req == nil {
		return nil, false
	}

	block := e.match(addr.Write, req.Addr)
	if block == nil {
		if !ready {
			return nil, false
		}
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosDecodeError, Item: req})
		return &WriteResp{Resp: RespDecodeError}, true
	}
	e.InvokeHook(HookCtx{Domain: e, Pos: HookPosDispatch, Item: req, Detail: block})

	if !ready {
		return nil, e.lookaheadWrite(req)
	}
	return e.normalWrite(block, req)
}

func (e *Engine) normalWrite(block *bank.Block, req *WriteReq) (*WriteResp, bool) {
	register := block.Register()
	st := e.state[register]
	busWidth := register.BusWidth()
	shift := uint(block.Word() * busWidth)

	data := (req.Data & widthMask(busWidth)) << shift
	strobe := expandStrobe(req.Strobe, busWidth) << shift
	st.wHold = (st.wHold &^ strobe) | (data & strobe)
	st.wStrobe |= strobe

	// Earlier words only stage; the register commits atomically on
	// the write to its last word.
	if !block.Last() {
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosAck, Item: req})
		return &WriteResp{Resp: RespOkay}, true
	}

	acc := &Access{
		Register:  register,
		Direction: addr.Write,
		Addr:      req.Addr,
		Prot:      req.Prot,
		Data:      st.wHold,
		Strobe:    st.wStrobe,
		Tag:       -1,
	}
	out, acted := e.invokeNormal(register, addr.Write, acc)
	switch {
	case !acted:
		st.clearWrite()
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosDecodeError, Item: acc})
		return &WriteResp{Resp: RespDecodeError}, true
	case out.Block:
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosBlock, Item: acc})
		return nil, false
	case out.Defer:
		st.clearWrite()
		e.push(addr.Write, register, acc)
		return nil, true
	case out.Nack:
		st.clearWrite()
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosNack, Item: acc})
		return &WriteResp{Resp: RespSlaveError}, true
	}

	st.clearWrite()
	e.InvokeHook(HookCtx{Domain: e, Pos: HookPosAck, Item: acc})
	return &WriteResp{Resp: RespOkay}, true
}

// lookaheadRead offers a read request whose response cannot be
// delivered yet to the lookahead hooks, which may consume it by
// deferring.
func (e *Engine) lookaheadRead(req *ReadReq) bool {
	block := e.match(addr.Read, req.Addr)
	if block == nil || !block.First() {
		return false
	}
	register := block.Register()
	acc := &Access{
		Register:  register,
		Direction: addr.Read,
		Addr:      req.Addr,
		Prot:      req.Prot,
		Tag:       -1,
	}
	return e.lookahead(register, addr.Read, acc)
}

func (e *Engine) lookaheadWrite(req *WriteReq) bool {
	block := e.match(addr.Write, req.Addr)
	if block == nil || !block.Last() || !block.First() {
		return false
	}
	register := block.Register()
	busWidth := register.BusWidth()
	acc := &Access{
		Register:  register,
		Direction: addr.Write,
		Addr:      req.Addr,
		Prot:      req.Prot,
		Data:      req.Data & widthMask(busWidth),
		Strobe:    expandStrobe(req.Strobe, busWidth),
		Tag:       -1,
	}
	return e.lookahead(register, addr.Write, acc)
}

func (e *Engine) lookahead(
	register *bank.Register,
	direction addr.Direction,
	acc *Access,
) bool {
	deferred := false
	for _, fh := range e.handlers[register][direction] {
		if !fh.caps.Prot.Contains(acc.Prot) {
			continue
		}
		out := fh.handler.Lookahead(acc)
		if out.Ack || out.Nack || out.Block {
			panic(fmt.Sprintf(
				"lookahead hook of field %s may only defer", fh.field.Name))
		}
		if out.Defer {
			if !fh.caps.CanDefer {
				panic(fmt.Sprintf(
					"field %s deferred without the can-defer capability",
					fh.field.Name))
			}
			deferred = true
		}
	}
	if !deferred {
		return false
	}
	e.push(direction, register, acc)
	return true
}

func (e *Engine) push(
	direction addr.Direction,
	register *bank.Register,
	acc *Access,
) {
	tag, ok := register.DeferTag(direction)
	if !ok {
		panic(fmt.Sprintf(
			"register %s has no %s defer tag", register.Name(), direction))
	}
	acc.Tag = tag
	e.queues[direction] = append(e.queues[direction], &pending{
		access:   acc,
		handlers: e.handlers[register][direction],
	})
	e.InvokeHook(HookCtx{Domain: e, Pos: HookPosDefer, Item: acc})
}

// completeRead asks the oldest deferred read for its completion.
func (e *Engine) completeRead() *ReadResp {
	out, done := e.complete(addr.Read)
	if !done {
		return nil
	}
	if out.Nack {
		return &ReadResp{Resp: RespSlaveError}
	}
	return &ReadResp{Resp: RespOkay, Data: out.Data}
}

func (e *Engine) completeWrite() *WriteResp {
	out, done := e.complete(addr.Write)
	if !done {
		return nil
	}
	if out.Nack {
		return &WriteResp{Resp: RespSlaveError}
	}
	return &WriteResp{Resp: RespOkay}
}

func (e *Engine) complete(direction addr.Direction) (Outcome, bool) {
	p := e.queues[direction][0]

	var combined Outcome
	for _, fh := range p.handlers {
		out := fh.handler.Deferred(p.access)
		if out.Defer {
			panic(fmt.Sprintf(
				"deferred hook of field %s cannot defer again", fh.field.Name))
		}
		if out.Block && !fh.caps.CanBlock {
			panic(fmt.Sprintf(
				"field %s blocked without the can-block capability",
				fh.field.Name))
		}
		combined.Ack = combined.Ack || out.Ack
		combined.Nack = combined.Nack || out.Nack
		combined.Block = combined.Block || out.Block
		combined.Data |= out.Data
	}

	// Not acting means the completion is not ready yet; it is
	// delivered on a later cycle, in issue order.
	if combined.Block || !combined.acted() {
		if combined.Block {
			e.InvokeHook(HookCtx{Domain: e, Pos: HookPosBlock, Item: p.access})
		}
		return Outcome{}, false
	}

	e.queues[direction] = e.queues[direction][1:]
	e.InvokeHook(HookCtx{Domain: e, Pos: HookPosComplete, Item: p.access})
	return combined, true
}

// invokeNormal runs the normal hooks of every field of the register
// that supports the direction and accepts the protection bits, and
// combines their outcomes. The second return value is false when no
// field acted at all.
func (e *Engine) invokeNormal(
	register *bank.Register,
	direction addr.Direction,
	acc *Access,
) (Outcome, bool) {
	var combined Outcome
	acted := false
	for _, fh := range e.handlers[register][direction] {
		if !fh.caps.Prot.Contains(acc.Prot) {
			continue
		}
		out := fh.handler.Normal(acc)
		if out.Block && !fh.caps.CanBlock {
			panic(fmt.Sprintf(
				"field %s blocked without the can-block capability",
				fh.field.Name))
		}
		if out.Defer && !fh.caps.CanDefer {
			panic(fmt.Sprintf(
				"field %s deferred without the can-defer capability",
				fh.field.Name))
		}
		acted = acted || out.acted()
		combined.Ack = combined.Ack || out.Ack
		combined.Nack = combined.Nack || out.Nack
		combined.Block = combined.Block || out.Block
		combined.Defer = combined.Defer || out.Defer
		combined.Data |= out.Data
	}
	return combined, acted
}

func wordOf(data uint64, block *bank.Block) uint64 {
	busWidth := block.Register().BusWidth()
	return (data >> (uint(block.Word() * busWidth))) & widthMask(busWidth)
}

func widthMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<width - 1
}

// expandStrobe widens per-byte write strobes to one bit per data bit.
func expandStrobe(strobe uint64, busWidth int) uint64 {
	var expanded uint64
	for i := 0; i < busWidth/8; i++ {
		if strobe&(uint64(1)<<i) != 0 {
			expanded |= uint64(0xFF) << (8 * i)
		}
	}
	return expanded
}
