package cps_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/stepflow/internal/cps"
	"github.com/specialistvlad/stepflow/internal/outcome"
)

func drive(t *testing.T, p cps.Program) *cps.Continuable {
	t.Helper()
	env := cps.NewCallEnv(cps.HaltCont{}).WithHandler(cps.HaltCont{})
	return cps.NewContinuable(p.Entry(env, cps.HaltCont{}))
}

func TestReturnCompletesSynchronously(t *testing.T) {
	c := drive(t, cps.Return{Value: cty.NumberIntVal(7)})

	o, done, err := c.Run(context.Background(), outcome.Empty())
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, cty.NumberIntVal(7), o.Val())
	assert.True(t, c.Done())
	assert.Equal(t, o, c.Result())
}

func TestFailRoutesToHandler(t *testing.T) {
	c := drive(t, cps.Fail{Message: "bad input"})

	o, done, err := c.Run(context.Background(), outcome.Empty())
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, o.Failed())
	assert.EqualError(t, o.Cause(), "bad input")
}

func TestFailWithoutHandlerHaltsAbnormally(t *testing.T) {
	env := cps.NewCallEnv(cps.HaltCont{})
	c := cps.NewContinuable(cps.Fail{Message: "unhandled"}.Entry(env, cps.HaltCont{}))

	o, done, err := c.Run(context.Background(), outcome.Empty())
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, o.Failed())
	assert.EqualError(t, o.Cause(), "unhandled")
}

func TestAwaitSuspendsUntilResumed(t *testing.T) {
	c := drive(t, cps.Await{})

	_, done, err := c.Run(context.Background(), outcome.Empty())
	require.NoError(t, err)
	require.False(t, done)
	assert.False(t, c.Done())

	o, done, err := c.Run(context.Background(), outcome.Value(cty.StringVal("resumed")))
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, cty.StringVal("resumed"), o.Val())
}

func TestAwaitRaisesFailedResumption(t *testing.T) {
	c := drive(t, cps.Await{})

	_, done, err := c.Run(context.Background(), outcome.Empty())
	require.NoError(t, err)
	require.False(t, done)

	o, done, err := c.Run(context.Background(), outcome.Failure(assert.AnError))
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, o.Failed())
	assert.ErrorIs(t, o.Cause(), assert.AnError)
}

func TestSeqLastOutcomeWins(t *testing.T) {
	c := drive(t, cps.Seq{Items: []cps.Program{
		cps.Return{Value: cty.NumberIntVal(1)},
		cps.Await{},
		cps.Return{Value: cty.NumberIntVal(3)},
	}})

	_, done, err := c.Run(context.Background(), outcome.Empty())
	require.NoError(t, err)
	require.False(t, done)

	o, done, err := c.Run(context.Background(), outcome.Value(cty.NumberIntVal(2)))
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, cty.NumberIntVal(3), o.Val())
}

func TestResumeAfterDoneIsAnError(t *testing.T) {
	c := drive(t, cps.Return{Value: cty.True})

	_, done, err := c.Run(context.Background(), outcome.Empty())
	require.NoError(t, err)
	require.True(t, done)

	_, _, err = c.Run(context.Background(), outcome.Empty())
	assert.Error(t, err)
}

func TestSnapshotRestoreMidSuspension(t *testing.T) {
	c := drive(t, cps.Await{})

	_, done, err := c.Run(context.Background(), outcome.Empty())
	require.NoError(t, err)
	require.False(t, done)

	b, err := c.Snapshot()
	require.NoError(t, err)

	restored, err := cps.Restore(b)
	require.NoError(t, err)

	o, done, err := restored.Run(context.Background(), outcome.Value(cty.NumberIntVal(42)))
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, cty.NumberIntVal(42), o.Val())
}

func TestSnapshotRestorePreservesFailureHandling(t *testing.T) {
	c := drive(t, cps.Await{})

	_, done, err := c.Run(context.Background(), outcome.Empty())
	require.NoError(t, err)
	require.False(t, done)

	b, err := c.Snapshot()
	require.NoError(t, err)

	restored, err := cps.Restore(b)
	require.NoError(t, err)

	o, done, err := restored.Run(context.Background(), outcome.Failure(assert.AnError))
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, o.Failed())
	assert.EqualError(t, o.Cause(), assert.AnError.Error())
}

func TestSnapshotOfCompletedComputationFails(t *testing.T) {
	c := drive(t, cps.Return{Value: cty.True})
	_, _, err := c.Run(context.Background(), outcome.Empty())
	require.NoError(t, err)

	_, err = c.Snapshot()
	assert.Error(t, err)
}
