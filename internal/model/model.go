// Package model defines the data structures for parsed mise configuration
// and the generated GitLab CI document.
package model

// Task is one named unit of work from the `tasks` table, joined with its CI
// annotation (if any). Run keeps the raw decoded value (string or []any);
// the pipeline normalizes it into a script.
type Task struct {
	Name       string
	Run        any
	Dir        string
	Annotation *Table // nil when the task carries no CI annotation
}

// Annotated reports whether the task will appear in the generated document.
// An empty annotation table counts as unannotated.
func (t Task) Annotated() bool {
	return t.Annotation.Len() > 0
}

// Spec is one parsed input document, held immutably for the duration of a
// generation run. Tasks keep their declaration order.
type Spec struct {
	Tasks    []Task
	Defaults *Table // nil when no defaults table is present
}

// Job is the canonical, fully-normalized representation of one emitted
// pipeline job. Known GitLab fields are explicit; everything else rides in
// Extra, in pass-through order.
type Job struct {
	Key       string
	Stage     string
	Image     any // GitLab accepts a string or a table; absent when nil
	Script    []string
	Rules     []*Table // nil when absent
	Artifacts *Table   // nil when absent
	Needs     []string // nil when absent; non-nil empty means declared empty
	Extra     *Table
}

// Document is the assembled output: distinct stage names in first-occurrence
// order, and jobs in source task order.
type Document struct {
	Stages []string
	Jobs   []*Job
}
