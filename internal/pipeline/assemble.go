package pipeline

import (
	"fmt"

	"github.com/mise-tools/mise-en-gitlab/internal/model"
)

// Keys the assembler resolves itself. Everything else in the annotation (or
// the defaults table) is pass-through.
var reservedKeys = map[string]bool{
	"stage":     true,
	"image":     true,
	"script":    true,
	"rules":     true,
	"artifacts": true,
	"needs":     true,
	"name":      true,
}

// Assemble produces the canonical job record for one annotated task.
// Defaults apply as a simple two-level override: the annotation's own value
// always wins, and stage and needs are never defaulted. Pass-through keys
// keep their source order, defaults first.
func Assemble(task model.Task, defaults *model.Table) (*model.Job, error) {
	ann := task.Annotation

	stageVal, ok := ann.Get("stage")
	if !ok {
		return nil, &SchemaError{Task: task.Name, Field: "stage", Message: "required field is missing"}
	}
	stage, isStr := stageVal.(string)
	if !isStr || stage == "" {
		return nil, &SchemaError{Task: task.Name, Field: "stage", Message: fmt.Sprintf("must be a non-empty string, got %v", stageVal)}
	}

	job := &model.Job{Stage: stage, Extra: model.NewTable()}

	if v, ok := firstPresent(ann, defaults, "image"); ok {
		job.Image = v
	}

	script, err := NormalizeScript(task.Run, task.Dir)
	if err != nil {
		return nil, &SchemaError{Task: task.Name, Field: "run", Message: err.Error()}
	}
	job.Script = script

	if v, ok := firstPresent(ann, defaults, "rules"); ok {
		rules, err := NormalizeRules(v)
		if err != nil {
			return nil, &SchemaError{Task: task.Name, Field: "rules", Message: err.Error()}
		}
		if len(rules) > 0 {
			job.Rules = rules
		}
	}

	if v, ok := firstPresent(ann, defaults, "artifacts"); ok {
		artifacts, err := NormalizeArtifacts(v)
		if err != nil {
			return nil, &SchemaError{Task: task.Name, Field: "artifacts", Message: err.Error()}
		}
		if artifacts.Len() > 0 {
			job.Artifacts = artifacts
		}
	}

	// needs comes from the annotation alone, copied verbatim.
	if v, ok := ann.Get("needs"); ok {
		needs, err := toStringList(v)
		if err != nil {
			return nil, &SchemaError{Task: task.Name, Field: "needs", Message: err.Error()}
		}
		job.Needs = needs
	}

	job.Key = task.Name
	if v, ok := ann.Get("name"); ok {
		s, isStr := v.(string)
		if !isStr {
			return nil, &SchemaError{Task: task.Name, Field: "name", Message: fmt.Sprintf("must be a string, got %T", v)}
		}
		if s != "" {
			job.Key = s
		}
	}

	for _, k := range defaults.Keys() {
		if reservedKeys[k] {
			continue
		}
		v, _ := defaults.Get(k)
		job.Extra.Set(k, v)
	}
	for _, k := range ann.Keys() {
		if reservedKeys[k] {
			continue
		}
		v, _ := ann.Get(k)
		job.Extra.Set(k, v)
	}

	return job, nil
}

// firstPresent resolves the two-level override: the annotation's value when
// the key is present there, else the defaults'. Never used for stage or
// needs, which do not default.
func firstPresent(ann, defaults *model.Table, key string) (any, bool) {
	if v, ok := ann.Get(key); ok {
		return v, true
	}
	return defaults.Get(key)
}
