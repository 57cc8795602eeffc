package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookupAndReplace(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewSessionCommand("помощь", "первая версия", func(context.Context, *Session) error { return nil }))
	reg.Register(NewSessionCommand("помощь", "вторая версия", func(context.Context, *Session) error { return nil }))

	cmd, ok := reg.Lookup("помощь")
	require.True(t, ok)
	assert.Equal(t, "вторая версия", cmd.Description)

	_, ok = reg.Lookup("нет такой")
	assert.False(t, ok)
}

func TestRegistryIsInternal(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewSessionCommand("помощь", "", func(context.Context, *Session) error { return nil }))
	reg.Register(NewTextCommand("step", "", func(context.Context, *Session, string) error { return nil }, AsInternal()))

	assert.False(t, reg.IsInternal("помощь"))
	assert.True(t, reg.IsInternal("step"))
	// Unregistered names count as public.
	assert.False(t, reg.IsInternal("призрак"))
}

func TestRegistryPublicSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"яблоко", "арбуз", "слива"} {
		reg.Register(NewSessionCommand(name, "", func(context.Context, *Session) error { return nil }))
	}
	reg.Register(NewTextCommand("hidden-step", "", func(context.Context, *Session, string) error { return nil }, AsInternal()))

	public := reg.Public()
	require.Len(t, public, 3)
	assert.Equal(t, "арбуз", public[0].Name)
	assert.Equal(t, "слива", public[1].Name)
	assert.Equal(t, "яблоко", public[2].Name)
}

func TestCommandArity(t *testing.T) {
	none := NewCommand("a", "", func(context.Context) error { return nil })
	sess := NewSessionCommand("b", "", func(context.Context, *Session) error { return nil })
	text := NewTextCommand("c", "", func(context.Context, *Session, string) error { return nil })

	assert.Equal(t, ArityNone, none.Arity())
	assert.Equal(t, AritySession, sess.Arity())
	assert.Equal(t, AritySessionText, text.Arity())
}

func TestSessionsCreateOnDemand(t *testing.T) {
	table := NewSessions("меню")
	a := table.Get(1)
	assert.Same(t, a, table.Get(1))
	assert.NotSame(t, a, table.Get(2))
	assert.Equal(t, "меню", a.State.Current)

	table.Reset(1)
	assert.NotSame(t, a, table.Get(1))
}
