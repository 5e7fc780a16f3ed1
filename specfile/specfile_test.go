package specfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/flowgraph/element"
	"github.com/hedisam/flowgraph/pipeline"
)

const sampleTOML = `
name = "av-pipeline"

[[children]]
name = "src"
kind = "file-source"
options = { path = "in.raw" }

[[children]]
name = "sink"
kind = "null-sink"

[[links]]
from = "src"
from_pad = "out"
to = "sink"
to_pad = "in"

[crash_group]
id = "io"
policy = "temporary"
`

type sourceConfig struct {
	element.Base
	path string
}

func testRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("file-source", func(options map[string]interface{}) (element.Config, error) {
		path, _ := options["path"].(string)
		return &sourceConfig{path: path}, nil
	})
	reg.Register("null-sink", func(options map[string]interface{}) (element.Config, error) {
		return &element.Base{}, nil
	})
	return reg
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, "av-pipeline", f.Name)
	require.Len(t, f.Children, 2)
	assert.Equal(t, "src", f.Children[0].Name)
	assert.Equal(t, "file-source", f.Children[0].Kind)
	assert.Equal(t, "in.raw", f.Children[0].Options["path"])
	require.Len(t, f.Links, 1)
	assert.Equal(t, LinkDef{From: "src", FromPad: "out", To: "sink", ToPad: "in"}, f.Links[0])
	require.NotNil(t, f.CrashGroup)
	assert.Equal(t, "io", f.CrashGroup.ID)

	_, err = Parse([]byte("name = ["))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "av-pipeline", f.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestBuild(t *testing.T) {
	t.Run("resolves kinds into an applicable spec", func(t *testing.T) {
		f, err := Parse([]byte(sampleTOML))
		require.NoError(t, err)

		spec, err := f.Build(testRegistry())
		require.NoError(t, err)

		require.Len(t, spec.Children, 2)
		assert.Equal(t, "src", spec.Children[0].Name)
		src, ok := spec.Children[0].Config.(*sourceConfig)
		require.True(t, ok)
		assert.Equal(t, "in.raw", src.path)

		require.Len(t, spec.Links, 1)
		assert.Equal(t, pipeline.Pad{Child: "src", Pad: "out"}, spec.Links[0].From)
		assert.Equal(t, pipeline.Pad{Child: "sink", Pad: "in"}, spec.Links[0].To)

		require.NotNil(t, spec.CrashGroup)
		assert.Equal(t, pipeline.PolicyTemporary, spec.CrashGroup.Policy)
	})

	t.Run("unregistered kind fails the build", func(t *testing.T) {
		f := &File{Children: []ChildDef{{Name: "x", Kind: "mystery"}}}
		_, err := f.Build(NewRegistry())
		require.ErrorContains(t, err, "not registered")
	})

	t.Run("unknown crash-group policy fails the build", func(t *testing.T) {
		f := &File{CrashGroup: &GroupDef{ID: "g", Policy: "forever"}}
		_, err := f.Build(NewRegistry())
		require.Error(t, err)
	})
}

func TestRegistry(t *testing.T) {
	reg := testRegistry()

	b, ok := reg.Get("file-source")
	require.True(t, ok)
	require.NotNil(t, b)

	_, ok = reg.Get("mystery")
	assert.False(t, ok)
	assert.Panics(t, func() { reg.MustGet("mystery") })

	assert.ElementsMatch(t, []string{"file-source", "null-sink"}, reg.Kinds())
}
