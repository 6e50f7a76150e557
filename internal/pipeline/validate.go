package pipeline

import (
	"fmt"

	"github.com/mise-tools/mise-en-gitlab/internal/model"
)

// Validate checks structural preconditions over every annotated task before
// any assembly happens: stage present and non-empty, run present and
// normalizable into at least one command, needs a sequence of strings, the
// name override a string. The first violation aborts the whole run; no
// partial pipeline file is ever written.
//
// No dependency-graph checks are performed; needs entries are trusted as
// authored and are not required to reference real task names.
func Validate(spec model.Spec) error {
	for _, task := range spec.Tasks {
		if !task.Annotated() {
			continue
		}
		ann := task.Annotation

		stage, ok := ann.Get("stage")
		if !ok {
			return &SchemaError{Task: task.Name, Field: "stage", Message: "required field is missing"}
		}
		if s, isStr := stage.(string); !isStr || s == "" {
			return &SchemaError{Task: task.Name, Field: "stage", Message: fmt.Sprintf("must be a non-empty string, got %v", stage)}
		}

		if _, err := NormalizeScript(task.Run, task.Dir); err != nil {
			return &SchemaError{Task: task.Name, Field: "run", Message: err.Error()}
		}

		if v, ok := ann.Get("needs"); ok {
			if _, err := toStringList(v); err != nil {
				return &SchemaError{Task: task.Name, Field: "needs", Message: err.Error()}
			}
		}

		if v, ok := ann.Get("name"); ok {
			if _, isStr := v.(string); !isStr {
				return &SchemaError{Task: task.Name, Field: "name", Message: fmt.Sprintf("must be a string, got %T", v)}
			}
		}
	}
	return nil
}

// toStringList converts a decoded sequence into []string, rejecting anything
// that is not a sequence of strings. The result is non-nil even when empty,
// so a declared-but-empty list survives into the output.
func toStringList(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out, nil
	case []any:
		out := make([]string, 0, len(list))
		for i, el := range list {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("element %d must be a string, got %T", i, el)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be a list of strings, got %T", v)
	}
}
