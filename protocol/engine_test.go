package protocol

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/addr"
	"github.com/abs-tudelft/vhdmmio-sub000/bank"
)

// hookRecorder keeps the positions and items of every hook invocation.
type hookRecorder struct {
	sequence []*HookPos
	items    []interface{}
}

func (h *hookRecorder) Func(ctx HookCtx) {
	h.sequence = append(h.sequence, ctx.Pos)
	h.items = append(h.items, ctx.Item)
}

var _ = Describe("Engine", func() {
	var (
		mockCtrl *gomock.Controller
		read     *addr.Space
		write    *addr.Space
		tags     *bank.DeferTagPool
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		read = addr.NewSpace(addr.Read, 32)
		write = addr.NewSpace(addr.Write, 32)
		tags = &bank.DeferTagPool{}
	})

	newRegister := func(name, at string, fields ...bank.Field) *bank.Register {
		pattern, err := addr.Parse(at, 0, 32)
		Expect(err).ToNot(HaveOccurred())
		builder := bank.MakeRegisterBuilder().WithName(name).WithBase(pattern)
		for _, field := range fields {
			builder = builder.WithField(field)
		}
		register, err := builder.Build(read, write, tags)
		Expect(err).ToNot(HaveOccurred())
		return register
	}

	newEngine := func(builder EngineBuilder) *Engine {
		engine, err := builder.Build()
		Expect(err).ToNot(HaveOccurred())
		return engine
	}

	Context("with a simple storage register", func() {
		var (
			engine *Engine
			value  uint64
		)

		BeforeEach(func() {
			value = 0
			register := newRegister("ctrl", "0x10", bank.Field{
				Name: "value", High: 31, Low: 0,
				Caps: access.Bus{
					Read:  &access.Capabilities{},
					Write: &access.Capabilities{},
				},
			})
			engine = newEngine(MakeEngineBuilder().
				WithRegister(register).
				WithReadHandler("value", HookSet{
					OnNormal: func(acc *Access) Outcome {
						return Outcome{Ack: true, Data: value}
					},
				}).
				WithWriteHandler("value", HookSet{
					OnNormal: func(acc *Access) Outcome {
						value = (value &^ acc.Strobe) | (acc.Data & acc.Strobe)
						return Outcome{Ack: true}
					},
				}))
		})

		It("should ack a write and read the value back", func() {
			resp, consumed := engine.TickWrite(&WriteReq{
				Addr: 0x10, Data: 0xDEADBEEF, Strobe: 0xF,
			}, true)
			Expect(consumed).To(BeTrue())
			Expect(resp).To(Equal(&WriteResp{Resp: RespOkay}))

			rresp, consumed := engine.TickRead(&ReadReq{Addr: 0x10}, true)
			Expect(consumed).To(BeTrue())
			Expect(rresp).To(Equal(&ReadResp{Resp: RespOkay, Data: 0xDEADBEEF}))
		})

		It("should honor byte strobes", func() {
			engine.TickWrite(&WriteReq{
				Addr: 0x10, Data: 0xDEADBEEF, Strobe: 0xF,
			}, true)
			engine.TickWrite(&WriteReq{
				Addr: 0x10, Data: 0x00000042, Strobe: 0x1,
			}, true)

			resp, _ := engine.TickRead(&ReadReq{Addr: 0x10}, true)
			Expect(resp.Data).To(Equal(uint64(0xDEADBE42)))
		})

		It("should produce a decode error for an unclaimed address", func() {
			resp, consumed := engine.TickRead(&ReadReq{Addr: 0x99}, true)
			Expect(consumed).To(BeTrue())
			Expect(resp).To(Equal(&ReadResp{Resp: RespDecodeError}))

			wresp, consumed := engine.TickWrite(&WriteReq{Addr: 0x99}, true)
			Expect(consumed).To(BeTrue())
			Expect(wresp).To(Equal(&WriteResp{Resp: RespDecodeError}))
		})

		It("should not consume a request while the consumer is not ready", func() {
			resp, consumed := engine.TickRead(&ReadReq{Addr: 0x10}, false)
			Expect(resp).To(BeNil())
			Expect(consumed).To(BeFalse())

			resp, consumed = engine.TickRead(&ReadReq{Addr: 0x10}, true)
			Expect(consumed).To(BeTrue())
			Expect(resp.Resp).To(Equal(RespOkay))
		})
	})

	Context("with a privileged-only register", func() {
		var engine *Engine

		BeforeEach(func() {
			perms := access.AllowAll()
			perms.User = false
			prot, err := perms.Mask()
			Expect(err).ToNot(HaveOccurred())

			register := newRegister("secret", "0x10", bank.Field{
				Name: "secret", High: 31, Low: 0,
				Caps: access.Bus{Read: &access.Capabilities{Prot: prot}},
			})
			engine = newEngine(MakeEngineBuilder().
				WithRegister(register).
				WithReadHandler("secret", HookSet{
					OnNormal: func(acc *Access) Outcome {
						return Outcome{Ack: true, Data: 0x5EC2E7}
					},
				}))
		})

		It("should serve privileged reads", func() {
			resp, _ := engine.TickRead(&ReadReq{Addr: 0x10, Prot: 0b001}, true)
			Expect(resp).To(Equal(&ReadResp{Resp: RespOkay, Data: 0x5EC2E7}))
		})

		It("should decode-error user reads", func() {
			resp, consumed := engine.TickRead(&ReadReq{Addr: 0x10, Prot: 0b000}, true)
			Expect(consumed).To(BeTrue())
			Expect(resp).To(Equal(&ReadResp{Resp: RespDecodeError}))
		})
	})

	Context("with a blocking field", func() {
		var (
			engine  *Engine
			handler *MockHandler
		)

		BeforeEach(func() {
			handler = NewMockHandler(mockCtrl)
			register := newRegister("slow", "0x20", bank.Field{
				Name: "slow", High: 31, Low: 0,
				Caps: access.Bus{Read: &access.Capabilities{CanBlock: true}},
			})
			engine = newEngine(MakeEngineBuilder().
				WithRegister(register).
				WithReadHandler("slow", handler))
		})

		It("should retry a blocked request until it completes", func() {
			gomock.InOrder(
				handler.EXPECT().Normal(gomock.Any()).
					Return(Outcome{Block: true}).Times(2),
				handler.EXPECT().Normal(gomock.Any()).
					Return(Outcome{Ack: true, Data: 7}),
			)

			req := &ReadReq{Addr: 0x20}

			resp, consumed := engine.TickRead(req, true)
			Expect(resp).To(BeNil())
			Expect(consumed).To(BeFalse())

			resp, consumed = engine.TickRead(req, true)
			Expect(resp).To(BeNil())
			Expect(consumed).To(BeFalse())

			resp, consumed = engine.TickRead(req, true)
			Expect(consumed).To(BeTrue())
			Expect(resp).To(Equal(&ReadResp{Resp: RespOkay, Data: 7}))
		})

		It("should deliver a slave error", func() {
			handler.EXPECT().Normal(gomock.Any()).Return(Outcome{Nack: true})

			resp, consumed := engine.TickRead(&ReadReq{Addr: 0x20}, true)
			Expect(consumed).To(BeTrue())
			Expect(resp).To(Equal(&ReadResp{Resp: RespSlaveError}))
		})
	})

	It("should panic when a field blocks without the capability", func() {
		register := newRegister("bad", "0x20", bank.Field{
			Name: "bad", High: 0, Low: 0,
			Caps: access.Bus{Read: &access.Capabilities{}},
		})
		engine := newEngine(MakeEngineBuilder().
			WithRegister(register).
			WithReadHandler("bad", HookSet{
				OnNormal: func(acc *Access) Outcome {
					return Outcome{Block: true}
				},
			}))

		Expect(func() {
			engine.TickRead(&ReadReq{Addr: 0x20}, true)
		}).To(Panic())
	})

	Context("with a deferring field", func() {
		var (
			engine    *Engine
			issued    []*Access
			completed int
		)

		BeforeEach(func() {
			issued = nil
			completed = 0

			register := newRegister("fifo", "0x30", bank.Field{
				Name: "fifo", High: 31, Low: 0,
				Caps: access.Bus{Read: &access.Capabilities{CanDefer: true}},
			})
			engine = newEngine(MakeEngineBuilder().
				WithRegister(register).
				WithReadHandler("fifo", HookSet{
					OnBoth: func(acc *Access) Outcome {
						issued = append(issued, acc)
						return Outcome{Defer: true}
					},
					OnDeferred: func(acc *Access) Outcome {
						Expect(acc).To(BeIdenticalTo(issued[completed]))
						completed++
						return Outcome{Ack: true, Data: uint64(100 + completed)}
					},
				}))
		})

		It("should complete deferred reads in issue order", func() {
			req := &ReadReq{Addr: 0x30}

			// Consumed via the normal hook; no response yet.
			resp, consumed := engine.TickRead(req, true)
			Expect(resp).To(BeNil())
			Expect(consumed).To(BeTrue())
			Expect(engine.Pending(addr.Read)).To(Equal(1))

			// Consumed via lookahead while a completion is outstanding.
			resp, consumed = engine.TickRead(req, false)
			Expect(resp).To(BeNil())
			Expect(consumed).To(BeTrue())
			Expect(engine.Pending(addr.Read)).To(Equal(2))

			// First completion delivered while a third request arrives.
			resp, consumed = engine.TickRead(req, true)
			Expect(consumed).To(BeTrue())
			Expect(resp).To(Equal(&ReadResp{Resp: RespOkay, Data: 101}))
			Expect(engine.Pending(addr.Read)).To(Equal(2))

			resp, _ = engine.TickRead(nil, true)
			Expect(resp).To(Equal(&ReadResp{Resp: RespOkay, Data: 102}))

			resp, _ = engine.TickRead(nil, true)
			Expect(resp).To(Equal(&ReadResp{Resp: RespOkay, Data: 103}))
			Expect(engine.Pending(addr.Read)).To(Equal(0))

			Expect(issued[0].Tag).To(Equal(0))
		})

		It("should deliver no completion while the consumer is not ready", func() {
			engine.TickRead(&ReadReq{Addr: 0x30}, true)

			resp, _ := engine.TickRead(nil, false)
			Expect(resp).To(BeNil())
			Expect(engine.Pending(addr.Read)).To(Equal(1))
		})
	})

	Context("with a multi-word register", func() {
		var (
			engine  *Engine
			value   uint64
			commits int
		)

		BeforeEach(func() {
			value = 0
			commits = 0

			register := newRegister("wide", "0x20", bank.Field{
				Name: "wide", High: 47, Low: 0,
				Caps: access.Bus{
					Read:  &access.Capabilities{},
					Write: &access.Capabilities{},
				},
			})
			engine = newEngine(MakeEngineBuilder().
				WithRegister(register).
				WithReadHandler("wide", HookSet{
					OnNormal: func(acc *Access) Outcome {
						return Outcome{Ack: true, Data: value}
					},
				}).
				WithWriteHandler("wide", HookSet{
					OnNormal: func(acc *Access) Outcome {
						commits++
						value = (value &^ acc.Strobe) | (acc.Data & acc.Strobe)
						return Outcome{Ack: true}
					},
				}))
		})

		It("should commit a write atomically on the last word", func() {
			resp, consumed := engine.TickWrite(&WriteReq{
				Addr: 0x20, Data: 0x55667788, Strobe: 0xF,
			}, true)
			Expect(consumed).To(BeTrue())
			Expect(resp.Resp).To(Equal(RespOkay))
			Expect(commits).To(Equal(0))
			Expect(value).To(Equal(uint64(0)))

			resp, consumed = engine.TickWrite(&WriteReq{
				Addr: 0x21, Data: 0x1122, Strobe: 0xF,
			}, true)
			Expect(consumed).To(BeTrue())
			Expect(resp.Resp).To(Equal(RespOkay))
			Expect(commits).To(Equal(1))
			Expect(value).To(Equal(uint64(0x112255667788)))
		})

		It("should serve multi-word reads from one snapshot", func() {
			value = 0x112255667788

			resp, _ := engine.TickRead(&ReadReq{Addr: 0x20}, true)
			Expect(resp).To(Equal(&ReadResp{Resp: RespOkay, Data: 0x55667788}))

			// A concurrent update must not tear the read sequence.
			value = 0xFFFFFFFFFFFF

			resp, _ = engine.TickRead(&ReadReq{Addr: 0x21}, true)
			Expect(resp).To(Equal(&ReadResp{Resp: RespOkay, Data: 0x1122}))

			// The next sequence observes the new value.
			resp, _ = engine.TickRead(&ReadReq{Addr: 0x20}, true)
			Expect(resp.Data).To(Equal(uint64(0xFFFFFFFF)))
		})

		It("should reject reads that skip the first word", func() {
			resp, consumed := engine.TickRead(&ReadReq{Addr: 0x21}, true)
			Expect(consumed).To(BeTrue())
			Expect(resp).To(Equal(&ReadResp{Resp: RespSlaveError}))
		})

		It("should retake the snapshot after the sequence completes", func() {
			value = 0x112255667788

			engine.TickRead(&ReadReq{Addr: 0x20}, true)
			engine.TickRead(&ReadReq{Addr: 0x21}, true)

			resp, _ := engine.TickRead(&ReadReq{Addr: 0x21}, true)
			Expect(resp).To(Equal(&ReadResp{Resp: RespSlaveError}))
		})
	})

	Context("with a big endian multi-word register", func() {
		var (
			engine *Engine
			value  uint64
		)

		BeforeEach(func() {
			value = 0

			pattern, err := addr.Parse("0x20", 0, 32)
			Expect(err).ToNot(HaveOccurred())
			register, err := bank.MakeRegisterBuilder().
				WithName("wide").
				WithBase(pattern).
				WithEndianness(bank.BigEndian).
				WithField(bank.Field{
					Name: "wide", High: 47, Low: 0,
					Caps: access.Bus{
						Read:  &access.Capabilities{},
						Write: &access.Capabilities{},
					},
				}).
				Build(read, write, tags)
			Expect(err).ToNot(HaveOccurred())

			engine = newEngine(MakeEngineBuilder().
				WithRegister(register).
				WithReadHandler("wide", HookSet{
					OnNormal: func(acc *Access) Outcome {
						return Outcome{Ack: true, Data: value}
					},
				}).
				WithWriteHandler("wide", HookSet{
					OnNormal: func(acc *Access) Outcome {
						value = (value &^ acc.Strobe) | (acc.Data & acc.Strobe)
						return Outcome{Ack: true}
					},
				}))
		})

		It("should stage the high word first and commit on the low word", func() {
			resp, consumed := engine.TickWrite(&WriteReq{
				Addr: 0x20, Data: 0x1122, Strobe: 0xF,
			}, true)
			Expect(consumed).To(BeTrue())
			Expect(resp.Resp).To(Equal(RespOkay))
			Expect(value).To(Equal(uint64(0)))

			resp, consumed = engine.TickWrite(&WriteReq{
				Addr: 0x21, Data: 0x55667788, Strobe: 0xF,
			}, true)
			Expect(consumed).To(BeTrue())
			Expect(resp.Resp).To(Equal(RespOkay))
			Expect(value).To(Equal(uint64(0x112255667788)))
		})

		It("should read the high word first", func() {
			value = 0x112255667788

			resp, _ := engine.TickRead(&ReadReq{Addr: 0x20}, true)
			Expect(resp).To(Equal(&ReadResp{Resp: RespOkay, Data: 0x1122}))

			resp, _ = engine.TickRead(&ReadReq{Addr: 0x21}, true)
			Expect(resp).To(Equal(&ReadResp{Resp: RespOkay, Data: 0x55667788}))
		})
	})

	Context("with an instrumentation hook attached", func() {
		var (
			engine   *Engine
			recorder *hookRecorder
			outcomes []Outcome
		)

		BeforeEach(func() {
			recorder = &hookRecorder{}
			outcomes = nil

			register := newRegister("ctrl", "0x10", bank.Field{
				Name: "value", High: 31, Low: 0,
				Caps: access.Bus{
					Read: &access.Capabilities{CanBlock: true, CanDefer: true},
				},
			})
			engine = newEngine(MakeEngineBuilder().
				WithRegister(register).
				WithReadHandler("value", HookSet{
					OnNormal: func(acc *Access) Outcome {
						out := outcomes[0]
						outcomes = outcomes[1:]
						return out
					},
					OnDeferred: func(acc *Access) Outcome {
						return Outcome{Ack: true, Data: 9}
					},
				}))
			engine.AcceptHook(recorder)
		})

		It("should report dispatch and ack", func() {
			outcomes = []Outcome{{Ack: true, Data: 1}}

			engine.TickRead(&ReadReq{Addr: 0x10}, true)

			Expect(recorder.sequence).To(Equal([]*HookPos{
				HookPosDispatch, HookPosAck,
			}))
		})

		It("should report dispatch and nack", func() {
			outcomes = []Outcome{{Nack: true}}

			engine.TickRead(&ReadReq{Addr: 0x10}, true)

			Expect(recorder.sequence).To(Equal([]*HookPos{
				HookPosDispatch, HookPosNack,
			}))
		})

		It("should report a decode error without a dispatch", func() {
			engine.TickRead(&ReadReq{Addr: 0x99}, true)

			Expect(recorder.sequence).To(Equal([]*HookPos{
				HookPosDecodeError,
			}))
		})

		It("should report each blocked retry", func() {
			outcomes = []Outcome{{Block: true}, {Ack: true, Data: 1}}

			req := &ReadReq{Addr: 0x10}
			engine.TickRead(req, true)
			engine.TickRead(req, true)

			Expect(recorder.sequence).To(Equal([]*HookPos{
				HookPosDispatch, HookPosBlock,
				HookPosDispatch, HookPosAck,
			}))
		})

		It("should report a defer followed by its completion", func() {
			outcomes = []Outcome{{Defer: true}}

			engine.TickRead(&ReadReq{Addr: 0x10}, true)
			engine.TickRead(nil, true)

			Expect(recorder.sequence).To(Equal([]*HookPos{
				HookPosDispatch, HookPosDefer, HookPosComplete,
			}))
		})

		It("should pass the access as the hooked item", func() {
			outcomes = []Outcome{{Ack: true, Data: 1}}

			engine.TickRead(&ReadReq{Addr: 0x10, Prot: 0b001}, true)

			acc, ok := recorder.items[1].(*Access)
			Expect(ok).To(BeTrue())
			Expect(acc.Addr).To(Equal(uint64(0x10)))
			Expect(acc.Prot).To(Equal(uint64(0b001)))
		})
	})

	Context("when building", func() {
		It("should require a handler for every capable field", func() {
			register := newRegister("ctrl", "0x10", bank.Field{
				Name: "value", High: 0, Low: 0,
				Caps: access.Bus{Read: &access.Capabilities{}},
			})
			_, err := MakeEngineBuilder().WithRegister(register).Build()
			Expect(err).To(MatchError(ContainSubstring(
				"no read handler for field value")))
		})

		It("should reject handlers for unknown fields", func() {
			register := newRegister("ctrl", "0x10", bank.Field{
				Name: "value", High: 0, Low: 0,
				Caps: access.Bus{Read: &access.Capabilities{}},
			})
			_, err := MakeEngineBuilder().
				WithRegister(register).
				WithReadHandler("value", HookSet{}).
				WithWriteHandler("value", HookSet{}).
				Build()
			Expect(err).To(MatchError(ContainSubstring(
				"write handler for unknown field value")))
		})

		It("should reject duplicate handlers", func() {
			register := newRegister("ctrl", "0x10", bank.Field{
				Name: "value", High: 0, Low: 0,
				Caps: access.Bus{Read: &access.Capabilities{}},
			})
			_, err := MakeEngineBuilder().
				WithRegister(register).
				WithReadHandler("value", HookSet{}).
				WithReadHandler("value", HookSet{}).
				Build()
			Expect(err).To(MatchError(ContainSubstring(
				"duplicate read handler for field value")))
		})
	})
})
