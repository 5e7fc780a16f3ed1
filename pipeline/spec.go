package pipeline

import (
	"fmt"

	"github.com/hedisam/flowgraph/element"
)

// ChildSpec declares one child to spawn: a unique name within the
// pipeline and the element behavior to run under it.
type ChildSpec struct {
	Name   string
	Config element.Config
}

// Pad is one endpoint of an edge: a named, directional connection point
// on a child.
type Pad struct {
	Child string
	Pad   string
}

func (p Pad) String() string {
	return fmt.Sprintf("(%s, %s)", p.Child, p.Pad)
}

// Link is a directed edge between two pads.
type Link struct {
	From Pad
	To   Pad
}

func (l Link) String() string {
	return fmt.Sprintf("%s -> %s", l.From, l.To)
}

// CrashGroupSpec assigns the spec's children to a crash group,
// creating the group on first use.
type CrashGroupSpec struct {
	ID     string
	Policy GroupPolicy
}

// Spec is a declarative batch of graph mutations: children to spawn,
// edges to add and an optional crash-group membership. A Spec is
// consumed entirely by one Apply call and never retained.
type Spec struct {
	Children   []ChildSpec
	Links      []Link
	CrashGroup *CrashGroupSpec
}

// duplicateNames returns the names declared more than once within the
// spec itself, each listed once.
func (s Spec) duplicateNames() []string {
	seen := make(map[string]int, len(s.Children))
	var dups []string
	for _, c := range s.Children {
		seen[c.Name]++
		if seen[c.Name] == 2 {
			dups = append(dups, c.Name)
		}
	}
	return dups
}

func (s Spec) validate() error {
	for _, c := range s.Children {
		if c.Name == "" {
			return fmt.Errorf("pipeline: child with empty name")
		}
		if c.Config == nil {
			return fmt.Errorf("pipeline: child %q has nil config", c.Name)
		}
	}
	for _, l := range s.Links {
		if l.From.Child == "" || l.From.Pad == "" || l.To.Child == "" || l.To.Pad == "" {
			return fmt.Errorf("pipeline: link %s has an empty endpoint", l)
		}
	}
	if s.CrashGroup != nil {
		if s.CrashGroup.ID == "" {
			return fmt.Errorf("pipeline: crash group with empty id")
		}
		if !s.CrashGroup.Policy.valid() {
			return fmt.Errorf("pipeline: invalid crash group policy %d", s.CrashGroup.Policy)
		}
	}
	return nil
}
