package bank_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abs-tudelft/vhdmmio-sub000/access"
	"github.com/abs-tudelft/vhdmmio-sub000/addr"
	"github.com/abs-tudelft/vhdmmio-sub000/bank"
)

func spaces() (*addr.Space, *addr.Space, *bank.DeferTagPool) {
	return addr.NewSpace(addr.Read, 32),
		addr.NewSpace(addr.Write, 32),
		&bank.DeferTagPool{}
}

func at(t *testing.T, spec string) addr.MaskedAddress {
	t.Helper()
	pattern, err := addr.Parse(spec, 0, 32)
	require.NoError(t, err)
	return pattern
}

func rwField(name string, high, low int) bank.Field {
	return bank.Field{
		Name: name,
		High: high,
		Low:  low,
		Caps: access.Bus{
			Read:  &access.Capabilities{},
			Write: &access.Capabilities{},
		},
	}
}

func TestBuildSingleBlock(t *testing.T) {
	read, write, tags := spaces()

	register, err := bank.MakeRegisterBuilder().
		WithName("ctrl").
		WithBase(at(t, "0x10")).
		WithField(rwField("enable", 0, 0)).
		WithField(rwField("mode", 7, 4)).
		Build(read, write, tags)
	require.NoError(t, err)

	assert.Equal(t, "ctrl", register.Name())
	assert.Equal(t, 32, register.Width())
	require.Len(t, register.Blocks(), 1)

	block := register.Blocks()[0]
	assert.Equal(t, "ctrl", block.Name)
	assert.True(t, block.First())
	assert.True(t, block.Last())
	assert.Equal(t, 0, block.Word())
	assert.Same(t, register, block.Register())

	require.Len(t, read.Claims(), 1)
	require.Len(t, write.Claims(), 1)
	assert.True(t, read.Claims()[0].Pattern.Contains(0x10))

	require.NotNil(t, register.Caps(addr.Read))
	require.NotNil(t, register.Caps(addr.Write))
	_, ok := register.DeferTag(addr.Read)
	assert.False(t, ok)
}

func TestBuildMultiWord(t *testing.T) {
	read, write, tags := spaces()

	register, err := bank.MakeRegisterBuilder().
		WithName("counter").
		WithBase(at(t, "0x20")).
		WithField(rwField("value", 47, 0)).
		Build(read, write, tags)
	require.NoError(t, err)

	assert.Equal(t, 64, register.Width())
	require.Len(t, register.Blocks(), 2)

	low, high := register.Blocks()[0], register.Blocks()[1]
	assert.Equal(t, "counter_0", low.Name)
	assert.Equal(t, "counter_1", high.Name)
	assert.True(t, low.Pattern.Contains(0x20))
	assert.True(t, high.Pattern.Contains(0x21))
	assert.True(t, low.First())
	assert.False(t, low.Last())
	assert.False(t, high.First())
	assert.True(t, high.Last())
	assert.Equal(t, 0, low.Word())
	assert.Equal(t, 1, high.Word())
}

func TestBuildBigEndianWordOrder(t *testing.T) {
	read, write, tags := spaces()

	register, err := bank.MakeRegisterBuilder().
		WithName("counter").
		WithBase(at(t, "0x20")).
		WithEndianness(bank.BigEndian).
		WithField(rwField("value", 47, 0)).
		Build(read, write, tags)
	require.NoError(t, err)

	assert.Equal(t, 1, register.Blocks()[0].Word())
	assert.Equal(t, 0, register.Blocks()[1].Word())
}

func TestBuildFieldOverlap(t *testing.T) {
	read, write, tags := spaces()

	_, err := bank.MakeRegisterBuilder().
		WithName("bad").
		WithBase(at(t, "0")).
		WithField(rwField("a", 7, 0)).
		WithField(rwField("b", 12, 7)).
		Build(read, write, tags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap in register bad")
}

func TestBuildDirectionless(t *testing.T) {
	read, write, tags := spaces()

	_, err := bank.MakeRegisterBuilder().
		WithName("bad").
		WithBase(at(t, "0")).
		WithField(bank.Field{Name: "a", High: 0, Low: 0}).
		Build(read, write, tags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither read nor write")
}

func TestBuildWriteOnly(t *testing.T) {
	read, write, tags := spaces()

	register, err := bank.MakeRegisterBuilder().
		WithName("strobe").
		WithBase(at(t, "4")).
		WithField(bank.Field{
			Name: "go", High: 0, Low: 0,
			Caps: access.Bus{Write: &access.Capabilities{
				NoOpMethod: access.NoOpWriteZero,
			}},
		}).
		Build(read, write, tags)
	require.NoError(t, err)

	assert.Nil(t, register.Caps(addr.Read))
	require.NotNil(t, register.Caps(addr.Write))
	assert.Empty(t, read.Claims())
	assert.Len(t, write.Claims(), 1)
}

func TestBuildSiblingConflict(t *testing.T) {
	read, write, tags := spaces()

	blocking := func(name string, bit int) bank.Field {
		return bank.Field{
			Name: name, High: bit, Low: bit,
			Caps: access.Bus{Write: &access.Capabilities{CanBlock: true}},
		}
	}

	_, err := bank.MakeRegisterBuilder().
		WithName("bad").
		WithBase(at(t, "0")).
		WithField(blocking("a", 0)).
		WithField(blocking("b", 1)).
		Build(read, write, tags)
	require.Error(t, err)

	var siblingErr *access.SiblingError
	require.ErrorAs(t, err, &siblingErr)
}

func TestBuildUnmaskableSibling(t *testing.T) {
	read, write, tags := spaces()

	_, err := bank.MakeRegisterBuilder().
		WithName("bad").
		WithBase(at(t, "0")).
		WithField(rwField("a", 0, 0)).
		WithField(bank.Field{
			Name: "b", High: 1, Low: 1,
			Caps: access.Bus{Write: &access.Capabilities{
				NoOpMethod: access.NoOpNever,
			}},
		}).
		Build(read, write, tags)
	require.Error(t, err)

	var maskErr *access.MaskError
	require.ErrorAs(t, err, &maskErr)
	assert.Equal(t, "b", maskErr.Field)
}

func TestBuildAddressConflict(t *testing.T) {
	read, write, tags := spaces()

	_, err := bank.MakeRegisterBuilder().
		WithName("x").
		WithBase(at(t, "0x10")).
		WithField(rwField("a", 0, 0)).
		Build(read, write, tags)
	require.NoError(t, err)

	_, err = bank.MakeRegisterBuilder().
		WithName("y").
		WithBase(at(t, "0x10")).
		WithField(rwField("b", 0, 0)).
		Build(read, write, tags)
	require.Error(t, err)

	var conflictErr *addr.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "decode conflict", conflictErr.Category())
}

func TestBuildArithmeticOverflow(t *testing.T) {
	tags := &bank.DeferTagPool{}
	read := addr.NewSpace(addr.Read, 4)
	write := addr.NewSpace(addr.Write, 4)

	base, err := addr.Parse("15", 0, 4)
	require.NoError(t, err)

	_, err = bank.MakeRegisterBuilder().
		WithName("top").
		WithBase(base).
		WithField(rwField("wide", 63, 0)).
		Build(read, write, tags)
	require.Error(t, err)

	var arithErr *bank.ArithmeticError
	require.ErrorAs(t, err, &arithErr)
	assert.Equal(t, "address arithmetic overflow", arithErr.Category())
	assert.Equal(t, "top", arithErr.Register)
	assert.Equal(t, 1, arithErr.Block)
}

func TestDeferTags(t *testing.T) {
	read, write, tags := spaces()

	deferred := func(name, base string) *bank.Register {
		register, err := bank.MakeRegisterBuilder().
			WithName(name).
			WithBase(at(t, base)).
			WithField(bank.Field{
				Name: name, High: 0, Low: 0,
				Caps: access.Bus{Read: &access.Capabilities{CanDefer: true}},
			}).
			Build(read, write, tags)
		require.NoError(t, err)
		return register
	}

	first := deferred("a", "0")
	second := deferred("b", "1")

	tag, ok := first.DeferTag(addr.Read)
	require.True(t, ok)
	assert.Equal(t, 0, tag)

	tag, ok = second.DeferTag(addr.Read)
	require.True(t, ok)
	assert.Equal(t, 1, tag)

	_, ok = first.DeferTag(addr.Write)
	assert.False(t, ok)

	assert.Equal(t, 2, tags.Count(addr.Read))
	assert.Equal(t, 1, tags.Width(addr.Read))
	assert.Equal(t, 0, tags.Width(addr.Write))
}
