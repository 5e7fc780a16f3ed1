package pipeline

import "fmt"

// LinkTable records the directed pad-to-pad edges of one pipeline.
// Each pad endpoint participates in at most one edge. Owned and mutated
// only by the pipeline goroutine.
type LinkTable struct {
	edges map[Pad]Pad
	used  map[Pad]struct{}
}

// NewLinkTable returns an empty link table.
func NewLinkTable() *LinkTable {
	return &LinkTable{
		edges: make(map[Pad]Pad),
		used:  make(map[Pad]struct{}),
	}
}

// Merge validates the batch against the table and within itself, then
// commits. On error nothing is added: a failed merge leaves every
// declared edge out of the table.
func (t *LinkTable) Merge(links []Link) error {
	batch := make(map[Pad]struct{}, len(links)*2)
	for _, l := range links {
		for _, endpoint := range []Pad{l.From, l.To} {
			if _, taken := t.used[endpoint]; taken {
				return &LinkError{Link: l, Err: fmt.Errorf("%w: %s", ErrPadAlreadyLinked, endpoint)}
			}
			if _, taken := batch[endpoint]; taken {
				return &LinkError{Link: l, Err: fmt.Errorf("%w: %s", ErrPadAlreadyLinked, endpoint)}
			}
			batch[endpoint] = struct{}{}
		}
	}
	for _, l := range links {
		t.edges[l.From] = l.To
		t.used[l.From] = struct{}{}
		t.used[l.To] = struct{}{}
	}
	return nil
}

// Resolve returns the destination pad linked to from.
func (t *LinkTable) Resolve(from Pad) (Pad, bool) {
	to, ok := t.edges[from]
	return to, ok
}

// Links returns all edges (unordered).
func (t *LinkTable) Links() []Link {
	links := make([]Link, 0, len(t.edges))
	for from, to := range t.edges {
		links = append(links, Link{From: from, To: to})
	}
	return links
}

// RemoveChild drops every edge touching the named child and frees its
// endpoints.
func (t *LinkTable) RemoveChild(name string) {
	for from, to := range t.edges {
		if from.Child != name && to.Child != name {
			continue
		}
		delete(t.edges, from)
		delete(t.used, from)
		delete(t.used, to)
	}
}

// Len returns the number of edges.
func (t *LinkTable) Len() int {
	return len(t.edges)
}
