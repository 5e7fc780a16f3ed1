package pipeline

import "github.com/hedisam/flowgraph/element"

// Child is the pipeline's bookkeeping record for one live element:
// name, worker handle, last acknowledged playback state and optional
// crash-group membership. Exclusively owned by the pipeline goroutine.
type Child struct {
	name    string
	handle  *element.Handle
	state   element.State
	groupID string
}

// Name returns the child's name within the pipeline.
func (c *Child) Name() string { return c.name }

// State returns the child's last acknowledged playback state.
func (c *Child) State() element.State { return c.state }
