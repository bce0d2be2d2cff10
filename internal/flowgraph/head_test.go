package flowgraph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/stepflow/internal/flowgraph"
	"github.com/specialistvlad/stepflow/internal/memstore"
)

func TestHeadAdvancesOnAppend(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	head := flowgraph.NewHead(store)
	assert.Empty(t, head.ID())

	start := flowgraph.NewStepStartNode("retry", head.ID(), flowgraph.BodyInvocationAction{})
	require.NoError(t, head.SetNewHead(ctx, start))
	assert.Equal(t, start.ID, head.ID())

	got, err := head.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, start, got)
	assert.True(t, got.HasBodyInvocation())
}

func TestSetNewHeadRejectsAliasedNode(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	head := flowgraph.NewHead(store)

	start := flowgraph.NewStepStartNode("retry", head.ID())
	require.NoError(t, head.SetNewHead(ctx, start))

	// A node built against the old frontier must be rejected.
	stale := flowgraph.NewStepStartNode("retry", "")
	err := head.SetNewHead(ctx, stale)
	require.Error(t, err)

	// The store and the head are untouched.
	assert.Equal(t, start.ID, head.ID())
	_, err = store.Node(ctx, stale.ID)
	assert.ErrorIs(t, err, flowgraph.ErrNotFound)
}

func TestForkDivergesIndependently(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	head := flowgraph.NewHead(store)

	start := flowgraph.NewStepStartNode("parallel", head.ID())
	require.NoError(t, head.SetNewHead(ctx, start))

	fork := head.Fork()
	require.Equal(t, head.ID(), fork.ID())

	a := flowgraph.NewStepStartNode("branch", head.ID())
	require.NoError(t, head.SetNewHead(ctx, a))

	b := flowgraph.NewStepStartNode("branch", fork.ID())
	require.NoError(t, fork.SetNewHead(ctx, b))

	assert.Equal(t, a.ID, head.ID())
	assert.Equal(t, b.ID, fork.ID())
	assert.NotEqual(t, head.ID(), fork.ID())
}

func TestRestoreHead(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	head := flowgraph.NewHead(store)

	start := flowgraph.NewStepStartNode("retry", head.ID())
	require.NoError(t, head.SetNewHead(ctx, start))

	restored := flowgraph.RestoreHead(store, start.ID)
	end := flowgraph.NewStepEndNode(start.ID, restored.ID())
	require.NoError(t, restored.SetNewHead(ctx, end))
	assert.Equal(t, end.ID, restored.ID())
}

func TestWellFormed(t *testing.T) {
	t.Run("balanced graph", func(t *testing.T) {
		ctx := context.Background()
		store := memstore.New()
		head := flowgraph.NewHead(store)

		start := flowgraph.NewStepStartNode("retry", head.ID())
		require.NoError(t, head.SetNewHead(ctx, start))
		end := flowgraph.NewStepEndNode(start.ID, head.ID())
		require.NoError(t, head.SetNewHead(ctx, end))

		assert.NoError(t, flowgraph.WellFormed(ctx, store))
	})

	t.Run("end without start", func(t *testing.T) {
		ctx := context.Background()
		store := memstore.New()
		end := flowgraph.NewStepEndNode("ghost", "")
		require.NoError(t, store.Append(ctx, end))

		err := flowgraph.WellFormed(ctx, store)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown start")
	})

	t.Run("start closed twice", func(t *testing.T) {
		ctx := context.Background()
		store := memstore.New()
		head := flowgraph.NewHead(store)

		start := flowgraph.NewStepStartNode("retry", head.ID())
		require.NoError(t, head.SetNewHead(ctx, start))
		end1 := flowgraph.NewStepEndNode(start.ID, head.ID())
		require.NoError(t, head.SetNewHead(ctx, end1))
		end2 := flowgraph.NewStepEndNode(start.ID, head.ID())
		require.NoError(t, head.SetNewHead(ctx, end2))

		err := flowgraph.WellFormed(ctx, store)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closed more than once")
	})
}

func TestErrorCause(t *testing.T) {
	cause := errors.New("step exploded")
	n := flowgraph.NewStepEndNode("start", "", &flowgraph.ErrorAction{Cause: cause})
	assert.Equal(t, cause, n.ErrorCause())

	clean := flowgraph.NewStepEndNode("start", "")
	assert.NoError(t, clean.ErrorCause())
}
