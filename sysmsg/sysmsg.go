package sysmsg

// SystemMessage marks messages that belong to the framework itself, as
// opposed to user payloads flowing through an element's mailbox.
type SystemMessage interface {
	systemMessage()
}

// Reason describes why a unit terminated.
type Reason struct {
	Type    string
	Details interface{}
}

const (
	// Normal is a clean return from the element loop.
	Normal = "normal"
	// Panic means the element's own code panicked or returned an error.
	Panic = "panic"
	// Kill means termination was commanded from above: an explicit
	// shutdown, a crash-group cascade or pipeline teardown.
	Kill = "kill"
)

// Abnormal reports whether a reason counts as a crash. Commanded
// shutdown is not a crash: group cascades and pipeline teardown arrive
// as Kill and must never re-trigger fault handling.
func Abnormal(r Reason) bool {
	return r.Type != Normal && r.Type != Kill
}
