package pipeline

import "fmt"

// SchemaError reports input that is structurally valid TOML but violates a
// generation precondition: a missing stage or run, a malformed rules or
// artifacts shape, an emitted-key collision. It always names the offending
// task and field so the message is actionable without re-reading the file.
type SchemaError struct {
	Task    string
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("task %q: %s: %s", e.Task, e.Field, e.Message)
}

// NoCITasksError is raised when the input carries zero CI-annotated tasks.
// The document may otherwise be perfectly well-formed, so this is kept
// distinct from SchemaError (and maps to its own exit code).
type NoCITasksError struct {
	Message string
}

func (e *NoCITasksError) Error() string { return e.Message }
