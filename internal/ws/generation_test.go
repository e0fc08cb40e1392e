package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBeginSupersedesPrevious(t *testing.T) {
	g := NewGenerations()
	first := g.Begin(context.Background(), "k")
	second := g.Begin(context.Background(), "k")

	assert.Equal(t, uint64(1), first.Gen)
	assert.Equal(t, uint64(2), second.Gen)
	assert.False(t, first.Current())
	assert.True(t, second.Current())
	assert.ErrorIs(t, first.Ctx.Err(), context.Canceled)
	assert.NoError(t, second.Ctx.Err())
}

func TestKeysAreIndependent(t *testing.T) {
	g := NewGenerations()
	a := g.Begin(context.Background(), "a")
	b := g.Begin(context.Background(), "b")
	assert.True(t, a.Current())
	assert.True(t, b.Current())
}

func TestDoneKeepsCounting(t *testing.T) {
	g := NewGenerations()
	first := g.Begin(context.Background(), "k")
	first.Done()
	assert.True(t, first.Current())

	next := g.Begin(context.Background(), "k")
	assert.Equal(t, uint64(2), next.Gen)
	assert.False(t, first.Current())
}

func TestCancelAll(t *testing.T) {
	g := NewGenerations()
	a := g.Begin(context.Background(), "a")
	b := g.Begin(context.Background(), "b")
	g.CancelAll()
	assert.Error(t, a.Ctx.Err())
	assert.Error(t, b.Ctx.Err())
}
