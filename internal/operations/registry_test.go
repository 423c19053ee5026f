package operations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedStep struct{ id string }

func (s namedStep) ID() string                                     { return s.id }
func (s namedStep) Name() string                                   { return "step " + s.id }
func (s namedStep) Execute(context.Context, *OperationState) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(namedStep{"b"}))
	require.NoError(t, r.Register(namedStep{"a"}))

	assert.Error(t, r.Register(namedStep{"a"}), "duplicate id")
	assert.Error(t, r.Register(namedStep{""}), "empty id")
	assert.Error(t, r.Register(nil))

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"b", "a"}, r.ListIDs())
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))

	step, err := r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "step b", step.Name())

	_, err = r.Get("c")
	assert.Error(t, err)

	steps := r.List()
	require.Len(t, steps, 2)
	assert.Equal(t, "b", steps[0].ID())
}
