// Package protocol implements the per-block bus transaction state
// machine that the generated register logic follows: normal and
// lookahead dispatch, blocking retries, FIFO-ordered deferred
// completions, and atomic multi-word register access.
package protocol

import (
	"fmt"

	"github.com/abs-tudelft/vhdmmio-sub000/addr"
	"github.com/abs-tudelft/vhdmmio-sub000/bank"
)

// Resp is a 2-bit bus response code.
type Resp uint8

const (
	// RespOkay acknowledges an access.
	RespOkay Resp = 0x0

	// RespReserved is never produced on this bus.
	RespReserved Resp = 0x1

	// RespSlaveError rejects an access that did decode.
	RespSlaveError Resp = 0x2

	// RespDecodeError rejects an access no block claimed.
	RespDecodeError Resp = 0x3
)

func (r Resp) String() string {
	switch r {
	case RespOkay:
		return "OKAY"
	case RespReserved:
		return "RESERVED"
	case RespSlaveError:
		return "SLAVEERROR"
	case RespDecodeError:
		return "DECODEERROR"
	}
	return fmt.Sprintf("Resp(%d)", uint8(r))
}

// A ReadReq is one transfer on the read address channel.
type ReadReq struct {
	Addr uint64
	Prot uint64
}

// A WriteReq is one transfer on the write channel. Strobe carries one
// bit per byte of the bus word.
type WriteReq struct {
	Addr   uint64
	Prot   uint64
	Data   uint64
	Strobe uint64
}

// A ReadResp is one transfer on the read response channel.
type ReadResp struct {
	Resp Resp
	Data uint64
}

// A WriteResp is one transfer on the write response channel.
type WriteResp struct {
	Resp Resp
}

// An Access is one register access as seen by field handlers. For
// writes, Data and Strobe cover the register's full logical value,
// with the strobe expanded to one bit per data bit.
type Access struct {
	Register  *bank.Register
	Direction addr.Direction
	Addr      uint64
	Prot      uint64
	Data      uint64
	Strobe    uint64

	// Tag is the completion tag of a deferred access, or -1 while the
	// access has not been deferred.
	Tag int
}

// An Outcome is what a field handler decided to do with an access. At
// most one of the flags may be set; all clear means the handler did
// not act.
type Outcome struct {
	// Ack acknowledges the access. For reads, Data holds the bits of
	// the register's logical value the field is responsible for.
	Ack  bool
	Data uint64

	// Nack rejects the access with a slave error.
	Nack bool

	// Block stalls the access; the same request is retried next
	// cycle. Requires the can-block capability.
	Block bool

	// Defer consumes the request now and completes it later through
	// the deferred hook. Requires the can-defer capability.
	Defer bool
}

func (o Outcome) acted() bool {
	return o.Ack || o.Nack || o.Block || o.Defer
}

// A Handler implements the per-field hooks of the transaction
// protocol.
type Handler interface {
	// Normal handles an access whose response can be delivered this
	// cycle.
	Normal(access *Access) Outcome

	// Lookahead sees an access whose response cannot be delivered
	// yet. It may defer the access or do nothing; the access falls
	// through to Normal once the response channel drains.
	Lookahead(access *Access) Outcome

	// Deferred produces the completion of the oldest deferred access.
	// It may ack, nack, or, with the can-block capability, block.
	Deferred(access *Access) Outcome
}

// A HookSet adapts plain functions to the Handler interface. OnBoth,
// when set, serves as both the normal and the lookahead hook for
// fields that make their decision the same way in either phase.
// Unset hooks do not act.
type HookSet struct {
	OnNormal    func(access *Access) Outcome
	OnLookahead func(access *Access) Outcome
	OnBoth      func(access *Access) Outcome
	OnDeferred  func(access *Access) Outcome
}

// Normal implements Handler.
func (h HookSet) Normal(access *Access) Outcome {
	if h.OnNormal != nil {
		return h.OnNormal(access)
	}
	if h.OnBoth != nil {
		return h.OnBoth(access)
	}
	return Outcome{}
}

// Lookahead implements Handler.
func (h HookSet) Lookahead(access *Access) Outcome {
	if h.OnLookahead != nil {
		return h.OnLookahead(access)
	}
	if h.OnBoth != nil {
		return h.OnBoth(access)
	}
	return Outcome{}
}

// Deferred implements Handler.
func (h HookSet) Deferred(access *Access) Outcome {
	if h.OnDeferred != nil {
		return h.OnDeferred(access)
	}
	return Outcome{}
}
