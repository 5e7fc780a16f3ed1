package specfile

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/hedisam/flowgraph/pipeline"
)

// File is the decoded form of a TOML topology file:
//
//	name = "av-pipeline"
//
//	[[children]]
//	name = "src"
//	kind = "file-source"
//	options = { path = "in.raw" }
//
//	[[links]]
//	from = "src"
//	from_pad = "out"
//	to = "sink"
//	to_pad = "in"
//
//	[crash_group]
//	id = "decoders"
//	policy = "temporary"
type File struct {
	Name       string     `toml:"name"`
	Children   []ChildDef `toml:"children"`
	Links      []LinkDef  `toml:"links"`
	CrashGroup *GroupDef  `toml:"crash_group"`
}

// ChildDef declares one child: its name and the registered kind that
// builds its element config.
type ChildDef struct {
	Name    string                 `toml:"name"`
	Kind    string                 `toml:"kind"`
	Options map[string]interface{} `toml:"options"`
}

// LinkDef declares one pad-to-pad edge.
type LinkDef struct {
	From    string `toml:"from"`
	FromPad string `toml:"from_pad"`
	To      string `toml:"to"`
	ToPad   string `toml:"to_pad"`
}

// GroupDef declares crash-group membership for the file's children.
type GroupDef struct {
	ID     string `toml:"id"`
	Policy string `toml:"policy"`
}

// Parse decodes a TOML topology document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("specfile: %w", err)
	}
	return &f, nil
}

// Load reads and decodes a topology file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("specfile: %w", err)
	}
	return Parse(data)
}

// Build resolves the file against a builder registry into an applicable
// pipeline spec.
func (f *File) Build(reg *Registry) (pipeline.Spec, error) {
	var spec pipeline.Spec
	for _, c := range f.Children {
		builder, ok := reg.Get(c.Kind)
		if !ok {
			return pipeline.Spec{}, fmt.Errorf("specfile: child %q: kind %q not registered", c.Name, c.Kind)
		}
		cfg, err := builder(c.Options)
		if err != nil {
			return pipeline.Spec{}, fmt.Errorf("specfile: child %q: %w", c.Name, err)
		}
		spec.Children = append(spec.Children, pipeline.ChildSpec{Name: c.Name, Config: cfg})
	}
	for _, l := range f.Links {
		spec.Links = append(spec.Links, pipeline.Link{
			From: pipeline.Pad{Child: l.From, Pad: l.FromPad},
			To:   pipeline.Pad{Child: l.To, Pad: l.ToPad},
		})
	}
	if f.CrashGroup != nil {
		policy, err := pipeline.ParseGroupPolicy(f.CrashGroup.Policy)
		if err != nil {
			return pipeline.Spec{}, fmt.Errorf("specfile: crash group %q: %w", f.CrashGroup.ID, err)
		}
		spec.CrashGroup = &pipeline.CrashGroupSpec{ID: f.CrashGroup.ID, Policy: policy}
	}
	return spec, nil
}
