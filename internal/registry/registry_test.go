package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/stepflow/internal/manifest"
)

func descriptor(stepType string) *manifest.Descriptor {
	return &manifest.Descriptor{
		Type:      stepType,
		TakesBody: true,
		Params:    map[string]*manifest.Param{},
	}
}

func TestAddAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(descriptor("retry")))

	d, ok := r.Lookup("retry")
	require.True(t, ok)
	assert.Equal(t, "retry", d.Type)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestAddRejectsDuplicates(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(descriptor("retry")))

	err := r.Add(descriptor("retry"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered twice")
}

func TestAddRejectsEmptyType(t *testing.T) {
	r := New()
	assert.Error(t, r.Add(nil))
	assert.Error(t, r.Add(&manifest.Descriptor{}))
}

func TestAddAllAndTypes(t *testing.T) {
	r := New()
	err := r.AddAll(map[string]*manifest.Descriptor{
		"zeta":  descriptor("zeta"),
		"alpha": descriptor("alpha"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, r.Types())
}

func TestValidate(t *testing.T) {
	t.Run("passes for a consistent registry", func(t *testing.T) {
		r := New()
		d := descriptor("retry")
		def := cty.NumberIntVal(3)
		d.Params["count"] = &manifest.Param{Name: "count", Type: cty.Number, Optional: true, Default: &def}
		require.NoError(t, r.Add(d))

		assert.NoError(t, r.Validate())
	})

	t.Run("rejects default on a required param", func(t *testing.T) {
		r := New()
		d := descriptor("retry")
		def := cty.NumberIntVal(3)
		d.Params["count"] = &manifest.Param{Name: "count", Type: cty.Number, Default: &def}
		require.NoError(t, r.Add(d))

		err := r.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not optional")
	})

	t.Run("rejects default that does not convert", func(t *testing.T) {
		r := New()
		d := descriptor("retry")
		def := cty.StringVal("never")
		d.Params["count"] = &manifest.Param{Name: "count", Type: cty.Number, Optional: true, Default: &def}
		require.NoError(t, r.Add(d))

		err := r.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match type")
	})

	t.Run("collects every violation", func(t *testing.T) {
		r := New()
		d := descriptor("retry")
		bad := cty.StringVal("never")
		d.Params["count"] = &manifest.Param{Name: "count", Type: cty.Number, Default: &bad}
		require.NoError(t, r.Add(d))

		err := r.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not optional")
		assert.Contains(t, err.Error(), "does not match type")
	})
}
