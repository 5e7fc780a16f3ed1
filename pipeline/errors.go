package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hedisam/flowgraph/element"
)

var (
	// ErrPadAlreadyLinked marks a link whose endpoint is already in use.
	ErrPadAlreadyLinked = errors.New("pad already linked")
	// ErrUnknownChild marks an operation against a name with no live
	// child behind it.
	ErrUnknownChild = errors.New("unknown child")
	// ErrPipelineClosed is returned once the pipeline has shut down.
	ErrPipelineClosed = errors.New("pipeline closed")
	// ErrGroupPolicyMismatch marks a crash-group registration whose
	// policy disagrees with the existing group.
	ErrGroupPolicyMismatch = errors.New("crash group policy mismatch")

	// errStickyMiss is the router-internal miss marker for sticky
	// queries.
	errStickyMiss = errors.New("no sticky payload")
)

// DuplicateNamesError reports every name that collided, whether the
// collision was within the spec itself or against live children.
type DuplicateNamesError struct {
	Names []string
}

func (e *DuplicateNamesError) Error() string {
	return fmt.Sprintf("duplicate child name(s): %s", strings.Join(e.Names, ", "))
}

// LinkError reports the offending link for a failed edge merge.
type LinkError struct {
	Link Link
	Err  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s: %v", e.Link, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// SpawnError reports a failed spawn together with the children the same
// Apply call had already spawned; those are left alive for caller
// cleanup.
type SpawnError struct {
	Name    string
	Spawned []string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q failed (already spawned: [%s]): %v",
		e.Name, strings.Join(e.Spawned, ", "), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// StepError reports a playback step that failed to gather every
// acknowledgment. The pipeline stays at the last fully-acknowledged
// state.
type StepError struct {
	From element.State
	To   element.State
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("playback step %s -> %s failed: %v", e.From, e.To, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
