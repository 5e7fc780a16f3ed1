package sysmsg

// Exit is delivered to every subscriber monitoring a terminated unit.
// Who is the unit's name within its parent scope.
type Exit struct {
	Who    string
	Reason Reason
}

func (e Exit) systemMessage() {}

// Shutdown commands an element to terminate. Parent names the unit that
// issued the command, for diagnostics only.
type Shutdown struct {
	Parent string
}

func (s Shutdown) systemMessage() {}
