package durable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zclconf/go-cty/cty"
)

type fixture struct {
	Name  string `msgpack:"name"`
	Count int    `msgpack:"count"`
}

func (fixture) DurableKind() string { return "test.fixture" }

func init() {
	RegisterSelf[fixture]("test.fixture")
}

func TestMarshalRoundTrip(t *testing.T) {
	b, err := Marshal(fixture{Name: "retry", Count: 3})
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, fixture{Name: "retry", Count: 3}, got)
}

func TestMarshalUnregisteredKind(t *testing.T) {
	_, err := Marshal(unregistered{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no registered codec")
}

type unregistered struct{}

func (unregistered) DurableKind() string { return "test.unregistered" }

func TestUnmarshalUnknownKind(t *testing.T) {
	b, err := msgpack.Marshal(envelope{Kind: "test.nope"})
	require.NoError(t, err)

	_, err = Unmarshal(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.nope")
}

func TestUnmarshalMalformedEnvelope(t *testing.T) {
	_, err := Unmarshal([]byte{0xc1})
	assert.Error(t, err)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		RegisterSelf[fixture]("test.fixture")
	})
}

func TestRegisterIncompleteCodecPanics(t *testing.T) {
	assert.Panics(t, func() {
		Register("test.incomplete", Codec{})
	})
}

func TestIsDurable(t *testing.T) {
	assert.True(t, IsDurable(fixture{}))
	assert.False(t, IsDurable(42))
	// A kind with no registered codec is not persistable.
	assert.False(t, IsDurable(unregistered{}))
}

func TestValueRoundTrip(t *testing.T) {
	t.Run("typed value", func(t *testing.T) {
		b, err := MarshalValue(cty.ObjectVal(map[string]cty.Value{
			"host":  cty.StringVal("localhost"),
			"count": cty.NumberIntVal(2),
		}))
		require.NoError(t, err)

		got, err := UnmarshalValue(b)
		require.NoError(t, err)
		assert.True(t, got.Type().IsObjectType())
		assert.Equal(t, cty.StringVal("localhost"), got.GetAttr("host"))
	})

	t.Run("nil value", func(t *testing.T) {
		b, err := MarshalValue(cty.NilVal)
		require.NoError(t, err)
		assert.Nil(t, b)

		got, err := UnmarshalValue(nil)
		require.NoError(t, err)
		assert.Equal(t, cty.NilVal, got)
	})
}
