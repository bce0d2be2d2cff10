package outcome

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestValue(t *testing.T) {
	o := Value(cty.NumberIntVal(42))
	assert.False(t, o.Failed())
	assert.Equal(t, cty.NumberIntVal(42), o.Val())
	assert.NoError(t, o.Cause())
}

func TestFailure(t *testing.T) {
	cause := errors.New("boom")
	o := Failure(cause)
	assert.True(t, o.Failed())
	assert.Equal(t, cause, o.Cause())
	assert.Equal(t, cty.NilVal, o.Val())
}

func TestFailureNilCause(t *testing.T) {
	o := Failure(nil)
	require.True(t, o.Failed())
	assert.Error(t, o.Cause())
}

func TestEmpty(t *testing.T) {
	o := Empty()
	assert.False(t, o.Failed())
	assert.Equal(t, cty.NilVal, o.Val())
	assert.Equal(t, "empty", o.String())
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		b, err := Marshal(Value(cty.StringVal("done")))
		require.NoError(t, err)

		got, err := Unmarshal(b)
		require.NoError(t, err)
		assert.False(t, got.Failed())
		assert.Equal(t, cty.StringVal("done"), got.Val())
	})

	t.Run("empty", func(t *testing.T) {
		b, err := Marshal(Empty())
		require.NoError(t, err)

		got, err := Unmarshal(b)
		require.NoError(t, err)
		assert.False(t, got.Failed())
		assert.Equal(t, cty.NilVal, got.Val())
	})

	t.Run("failure keeps only the message", func(t *testing.T) {
		b, err := Marshal(Failure(errors.New("socket timeout")))
		require.NoError(t, err)

		got, err := Unmarshal(b)
		require.NoError(t, err)
		require.True(t, got.Failed())

		var restored *RestoredError
		require.ErrorAs(t, got.Cause(), &restored)
		assert.Equal(t, "socket timeout", restored.Message)
	})
}
