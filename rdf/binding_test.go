package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingAddOnce(t *testing.T) {
	b := NewBinding(nil)
	require.NoError(t, b.Add("s", NewIRI("x")))

	err := b.Add("s", NewIRI("y"))
	assert.ErrorIs(t, err, ErrAlreadyBound)

	got, ok := b.Get("s")
	require.True(t, ok)
	assert.Equal(t, NewIRI("x"), got, "failed rebind must not change the value")
}

func TestBindingParentChain(t *testing.T) {
	parent := NewBinding(nil)
	require.NoError(t, parent.Add("a", NewLiteral("1")))

	child := NewBinding(parent)
	require.NoError(t, child.Add("b", NewLiteral("2")))

	assert.True(t, child.Contains("a"))
	assert.ErrorIs(t, child.Add("a", NewLiteral("3")), ErrAlreadyBound)
	assert.Equal(t, []Var{"a", "b"}, child.Vars())
	assert.Equal(t, 2, child.Len())
	assert.False(t, parent.Contains("b"))
	assert.Equal(t, `{?a="1", ?b="2"}`, child.String())
	assert.Equal(t, map[Var]Term{"a": NewLiteral("1"), "b": NewLiteral("2")}, child.Map())
}

func TestBindingEmpty(t *testing.T) {
	assert.True(t, NewBinding(nil).IsEmpty())

	parent := NewBinding(nil)
	require.NoError(t, parent.Add("a", NewLiteral("1")))
	assert.False(t, NewBinding(parent).IsEmpty(), "parent values count")
}

func TestBindingInsertionOrder(t *testing.T) {
	b := NewBinding(nil)
	for _, v := range []Var{"z", "a", "m"} {
		require.NoError(t, b.Add(v, NewLiteral(string(v))))
	}
	assert.Equal(t, []Var{"z", "a", "m"}, b.Vars())
}
