package schema

import "strings"

// Task states reported by the workflow engine.
const (
	StatusSuccess    = "SUCCESS"
	StatusStopped    = "STOPPED"
	StatusAborted    = "ABORTED"
	StatusError      = "ERROR"
	StatusNotRunning = "NOT-RUNNING"

	// DefaultEngine prefixes the "<engine>-STARTED" state.
	DefaultEngine = "LIGHTFLOW"
)

// StartedStatus returns the "<engine>-STARTED" state name for engine.
func StartedStatus(engine string) string {
	return strings.ToUpper(engine) + "-STARTED"
}
