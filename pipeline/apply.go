package pipeline

import (
	"sort"

	"go.uber.org/zap"

	"github.com/hedisam/flowgraph/element"
	"github.com/hedisam/flowgraph/monitoring"
)

// Spawner is the process-spawn collaborator: the applier composes it,
// it never reimplements it.
type Spawner interface {
	Spawn(name string, cfg element.Config) (*element.Handle, error)
}

// specApplier validates and applies one spec against the pipeline's
// registry, link table and crash groups.
type specApplier struct {
	spawner  Spawner
	registry *NameRegistry
	links    *LinkTable
	groups   *CrashGroupManager
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// apply runs the five apply steps. Validation failures (duplicate
// names, malformed specs) happen before any side effect. Failures
// after spawning leave the spawned children alive — and registered —
// for caller cleanup; there is no automatic rollback.
func (a *specApplier) apply(spec Spec) ([]*Child, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	// duplicates within the spec and against live children are
	// reported together, before anything is spawned
	dups := spec.duplicateNames()
	for _, c := range spec.Children {
		if a.registry.Contains(c.Name) {
			dups = append(dups, c.Name)
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return nil, &DuplicateNamesError{Names: dedup(dups)}
	}

	var groupID string
	if spec.CrashGroup != nil {
		groupID = spec.CrashGroup.ID
	}

	children := make([]*Child, 0, len(spec.Children))
	spawned := make([]string, 0, len(spec.Children))
	for _, cs := range spec.Children {
		handle, err := a.spawner.Spawn(cs.Name, cs.Config)
		if err != nil {
			a.metrics.ObserveSpawnFailure()
			return children, &SpawnError{Name: cs.Name, Spawned: spawned, Err: err}
		}
		// names are free at this point, Register cannot fail
		_ = a.registry.Register(cs.Name)
		children = append(children, &Child{
			name:   cs.Name,
			handle: handle,
			state:  element.Stopped,
		})
		spawned = append(spawned, cs.Name)
		a.logger.Debug("child spawned", zap.String("child", cs.Name))
	}

	if err := a.links.Merge(spec.Links); err != nil {
		return children, err
	}

	if spec.CrashGroup != nil {
		for _, c := range children {
			if err := a.groups.RegisterMember(groupID, spec.CrashGroup.Policy, c.name); err != nil {
				return children, err
			}
			c.groupID = groupID
		}
	}

	a.metrics.ObserveSpawn(len(children))
	return children, nil
}

func dedup(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
