package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mise-tools/mise-en-gitlab/internal/model"
)

// Pure normalizers for the union-typed fields. Each converts the flexible
// input shape into the single canonical shape GitLab expects; downstream
// code never sees the union. Errors come back bare; the assembler wraps
// them with the task and field names.

// NormalizeScript turns a task's run value into the job script. A single
// string becomes a one-element sequence; a sequence is kept as-is but every
// element must be a string. A non-empty dir prepends `cd <dir>` as the very
// first line. The result must contain at least one real command.
func NormalizeScript(run any, dir string) ([]string, error) {
	var script []string
	switch v := run.(type) {
	case nil:
		return nil, errors.New("required field is missing")
	case string:
		script = []string{v}
	case []string:
		script = append(script, v...)
	case []any:
		script = make([]string, 0, len(v))
		for i, el := range v {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("element %d must be a string, got %T", i, el)
			}
			script = append(script, s)
		}
	default:
		return nil, fmt.Errorf("must be a string or a list of strings, got %T", run)
	}

	commands := len(script)
	if dir != "" {
		script = append([]string{"cd " + dir}, script...)
	}
	if commands == 0 {
		return nil, errors.New("script is empty; a job must run at least one command")
	}
	return script, nil
}

// NormalizeRules turns a rules value into a sequence of rule tables, order
// preserved. A string element of the form "key: value" splits on the first
// colon into {key: value} with authored quoting kept; a string without a
// colon is treated as a bare if-expression. Table elements pass through
// unchanged, unknown keys included. Idempotent on canonical input.
func NormalizeRules(v any) ([]*model.Table, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("must be a list of strings or tables, got %T", v)
	}
	out := make([]*model.Table, 0, len(list))
	for i, el := range list {
		switch rule := el.(type) {
		case *model.Table:
			out = append(out, rule)
		case map[string]any:
			out = append(out, sortedTable(rule))
		case string:
			t := model.NewTable()
			if key, val, found := strings.Cut(rule, ":"); found {
				t.Set(strings.TrimSpace(key), strings.TrimSpace(val))
			} else {
				t.Set("if", rule)
			}
			out = append(out, t)
		default:
			return nil, fmt.Errorf("element %d must be a string or a table, got %T", i, el)
		}
	}
	return out, nil
}

// NormalizeArtifacts turns an artifacts value into one artifact table. A
// bare sequence of path strings becomes {paths: <sequence>}; a table passes
// through unchanged, nested keys (when, expire_in, reports, ...) included.
// Idempotent on canonical input.
func NormalizeArtifacts(v any) (*model.Table, error) {
	switch art := v.(type) {
	case *model.Table:
		return art, nil
	case map[string]any:
		return sortedTable(art), nil
	case []any:
		for i, el := range art {
			if _, ok := el.(string); !ok {
				return nil, fmt.Errorf("path %d must be a string, got %T", i, el)
			}
		}
		t := model.NewTable()
		t.Set("paths", art)
		return t, nil
	default:
		return nil, fmt.Errorf("must be a table or a list of path strings, got %T", v)
	}
}

// sortedTable converts a plain map into a Table with sorted keys. The loader
// always hands the pipeline ordered Tables; this path exists for callers
// (tests, library use) that pass raw maps, where sorting is the only
// deterministic order available.
func sortedTable(m map[string]any) *model.Table {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	t := model.NewTable()
	for _, k := range keys {
		t.Set(k, m[k])
	}
	return t
}
