package manifest_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/stepflow/internal/ctxlog"
	"github.com/specialistvlad/stepflow/internal/manifest"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

const retryManifest = `
step "retry" {
  description = "Re-runs its body until it succeeds."
  takes_body  = true

  param "count" {
    type        = number
    description = "Maximum number of attempts."
    optional    = true
    default     = 3
  }

  param "delays" {
    type = list(number)
  }
}
`

func TestParse(t *testing.T) {
	descriptors, err := manifest.Parse(testContext(), "retry.hcl", []byte(retryManifest))
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors["retry"]
	require.NotNil(t, d)
	assert.Equal(t, "retry", d.Type)
	assert.Equal(t, "Re-runs its body until it succeeds.", d.Description)
	assert.True(t, d.TakesBody)
	require.Len(t, d.Params, 2)

	count := d.Params["count"]
	require.NotNil(t, count)
	assert.Equal(t, cty.Number, count.Type)
	assert.True(t, count.Optional)
	require.NotNil(t, count.Default)
	assert.True(t, cty.NumberIntVal(3).RawEquals(*count.Default))

	delays := d.Params["delays"]
	require.NotNil(t, delays)
	assert.Equal(t, cty.List(cty.Number), delays.Type)
	assert.False(t, delays.Optional)
	assert.Nil(t, delays.Default)
}

func TestParseDescriptorShape(t *testing.T) {
	descriptors, err := manifest.Parse(testContext(), "retry.hcl", []byte(retryManifest))
	require.NoError(t, err)

	def := cty.NumberIntVal(3)
	want := map[string]*manifest.Descriptor{
		"retry": {
			Type:        "retry",
			Description: "Re-runs its body until it succeeds.",
			TakesBody:   true,
			Params: map[string]*manifest.Param{
				"count": {
					Name:        "count",
					Type:        cty.Number,
					Description: "Maximum number of attempts.",
					Optional:    true,
					Default:     &def,
				},
				"delays": {
					Name: "delays",
					Type: cty.List(cty.Number),
				},
			},
		},
	}

	opts := []cmp.Option{
		cmp.Comparer(func(a, b cty.Value) bool { return a.RawEquals(b) }),
		cmp.Comparer(func(a, b cty.Type) bool { return a.Equals(b) }),
	}
	if diff := cmp.Diff(want, descriptors, opts...); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDuplicateStep(t *testing.T) {
	src := `
step "echo" {}
step "echo" {}
`
	_, err := manifest.Parse(testContext(), "dup.hcl", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared more than once")
}

func TestParseBadType(t *testing.T) {
	src := `
step "echo" {
  param "value" {
    type = banana
  }
}
`
	_, err := manifest.Parse(testContext(), "bad.hcl", []byte(src))
	assert.Error(t, err)
}

func TestParseDefaultTypeMismatch(t *testing.T) {
	src := `
step "echo" {
  param "count" {
    type    = number
    default = "not a number"
  }
}
`
	_, err := manifest.Parse(testContext(), "mismatch.hcl", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default")
}

func TestParseDefaultConverts(t *testing.T) {
	src := `
step "echo" {
  param "label" {
    type    = string
    default = 42
  }
}
`
	descriptors, err := manifest.Parse(testContext(), "convert.hcl", []byte(src))
	require.NoError(t, err)
	p := descriptors["echo"].Params["label"]
	require.NotNil(t, p.Default)
	assert.Equal(t, cty.StringVal("42"), *p.Default)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "retry.hcl"), []byte(retryManifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "echo.hcl"), []byte(`step "echo" {}`), 0644))

	descriptors, err := manifest.LoadDir(testContext(), dir)
	require.NoError(t, err)
	assert.Len(t, descriptors, 2)
	assert.Contains(t, descriptors, "retry")
	assert.Contains(t, descriptors, "echo")
}
