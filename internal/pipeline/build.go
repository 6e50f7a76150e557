// Package pipeline implements the core transformation: validating annotated
// tasks, normalizing union-typed fields into GitLab's canonical shapes, and
// assembling the output document with stage and key order preserved.
package pipeline

import (
	"fmt"

	"github.com/mise-tools/mise-en-gitlab/internal/model"
)

// StagesKey is the one top-level output key that is not a job.
const StagesKey = "stages"

// Build walks the tasks in declaration order, assembles a job for every
// CI-annotated one, and collects stage names the first time each is seen.
// Tasks without an annotation are invisible to the document and to the
// stage list. The first assembly error aborts the run.
func Build(spec model.Spec) (*model.Document, error) {
	doc := &model.Document{}
	seenStages := make(map[string]bool)
	emitted := make(map[string]string) // job key -> task that claimed it

	annotated := 0
	for _, task := range spec.Tasks {
		if !task.Annotated() {
			continue
		}
		annotated++

		job, err := Assemble(task, spec.Defaults)
		if err != nil {
			return nil, err
		}

		if job.Key == StagesKey {
			return nil, &SchemaError{Task: task.Name, Field: "name", Message: fmt.Sprintf("job key %q is reserved for the stage list", StagesKey)}
		}
		if prev, ok := emitted[job.Key]; ok {
			return nil, &SchemaError{Task: task.Name, Field: "name", Message: fmt.Sprintf("emitted job key %q collides with task %q", job.Key, prev)}
		}
		emitted[job.Key] = task.Name

		if !seenStages[job.Stage] {
			seenStages[job.Stage] = true
			doc.Stages = append(doc.Stages, job.Stage)
		}
		doc.Jobs = append(doc.Jobs, job)
	}

	if annotated == 0 {
		return nil, &NoCITasksError{Message: "no CI-annotated tasks found (no [gitlab-ci.jobs.<name>] or [tasks.<name>.ci] tables)"}
	}
	return doc, nil
}
