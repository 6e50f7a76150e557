// Package mise loads a mise.toml document into the ordered in-memory form
// the pipeline consumes. Decoding is done with BurntSushi/toml because its
// MetaData keeps every key in declaration order; Go maps alone would lose
// the task order, the pass-through key order, and with them the output's
// determinism.
package mise

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/mise-tools/mise-en-gitlab/internal/model"
)

// Annotation table locations. The canonical convention is
// [gitlab-ci.jobs.<task>] with global defaults in [gitlab-ci.defaults];
// [tasks.<task>.ci] is honored as a per-task fallback.
const (
	ciTableKey       = "gitlab-ci"
	jobsTableKey     = "jobs"
	defaultsTableKey = "defaults"
	taskCIKey        = "ci"
	tasksTableKey    = "tasks"
)

// ParseError reports input that is not well-formed for generation: invalid
// TOML syntax or a top-level shape the generator cannot work with.
type ParseError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads and decodes one mise.toml. The returned Spec preserves task
// declaration order and the key order of every table it carries.
func Load(path string) (model.Spec, error) {
	var raw map[string]any
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return model.Spec{}, &ParseError{Path: path, Msg: "decode toml", Err: err}
	}
	return fromRaw(path, raw, buildOrder(meta.Keys()))
}

// LoadBytes decodes an in-memory document; used by tests and the watch loop.
func LoadBytes(path string, data []byte) (model.Spec, error) {
	var raw map[string]any
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return model.Spec{}, &ParseError{Path: path, Msg: "decode toml", Err: err}
	}
	return fromRaw(path, raw, buildOrder(meta.Keys()))
}

func fromRaw(path string, raw map[string]any, root *orderNode) (model.Spec, error) {
	var defaults *model.Table
	var jobs map[string]any

	ciNode := root.lookup(ciTableKey)
	if v, ok := raw[ciTableKey]; ok {
		ci, ok := v.(map[string]any)
		if !ok {
			return model.Spec{}, &ParseError{Path: path, Msg: fmt.Sprintf("[%s] must be a table", ciTableKey)}
		}
		if d, ok := ci[defaultsTableKey]; ok {
			dt, ok := d.(map[string]any)
			if !ok {
				return model.Spec{}, &ParseError{Path: path, Msg: fmt.Sprintf("[%s.%s] must be a table", ciTableKey, defaultsTableKey)}
			}
			defaults = toTable(dt, ciNode.lookup(defaultsTableKey))
		}
		if j, ok := ci[jobsTableKey]; ok {
			jt, ok := j.(map[string]any)
			if !ok {
				return model.Spec{}, &ParseError{Path: path, Msg: fmt.Sprintf("[%s.%s] must be a table", ciTableKey, jobsTableKey)}
			}
			jobs = jt
		}
	}

	var tasks []model.Task
	if v, ok := raw[tasksTableKey]; ok {
		tt, ok := v.(map[string]any)
		if !ok {
			return model.Spec{}, &ParseError{Path: path, Msg: fmt.Sprintf("[%s] must be a table", tasksTableKey)}
		}
		tasksNode := root.lookup(tasksTableKey)
		jobsNode := ciNode.lookup(jobsTableKey)
		for _, name := range orderedKeys(tt, tasksNode) {
			body, ok := tt[name].(map[string]any)
			if !ok {
				return model.Spec{}, &ParseError{Path: path, Msg: fmt.Sprintf("[%s.%s] must be a table", tasksTableKey, name)}
			}
			task := model.Task{Name: name, Run: body["run"]}
			if d, ok := body["dir"]; ok {
				s, ok := d.(string)
				if !ok {
					return model.Spec{}, &ParseError{Path: path, Msg: fmt.Sprintf("[%s.%s] dir must be a string", tasksTableKey, name)}
				}
				task.Dir = s
			}

			// The gitlab-ci.jobs entry wins over a nested [tasks.<name>.ci].
			if ann, ok := jobs[name]; ok {
				at, ok := ann.(map[string]any)
				if !ok {
					return model.Spec{}, &ParseError{Path: path, Msg: fmt.Sprintf("[%s.%s.%s] must be a table", ciTableKey, jobsTableKey, name)}
				}
				task.Annotation = toTable(at, jobsNode.lookup(name))
			} else if ann, ok := body[taskCIKey]; ok {
				at, ok := ann.(map[string]any)
				if !ok {
					return model.Spec{}, &ParseError{Path: path, Msg: fmt.Sprintf("[%s.%s.%s] must be a table", tasksTableKey, name, taskCIKey)}
				}
				task.Annotation = toTable(at, tasksNode.lookup(name).lookup(taskCIKey))
			}

			tasks = append(tasks, task)
		}
	}

	return model.Spec{Tasks: tasks, Defaults: defaults}, nil
}

// orderNode mirrors the key hierarchy of the decoded document, with children
// in declaration order as reported by toml.MetaData.
type orderNode struct {
	order    []string
	children map[string]*orderNode
}

func buildOrder(keys []toml.Key) *orderNode {
	root := &orderNode{}
	for _, key := range keys {
		node := root
		for _, part := range key {
			if node.children == nil {
				node.children = make(map[string]*orderNode)
			}
			child, ok := node.children[part]
			if !ok {
				child = &orderNode{}
				node.children[part] = child
				node.order = append(node.order, part)
			}
			node = child
		}
	}
	return root
}

func (n *orderNode) lookup(key string) *orderNode {
	if n == nil {
		return nil
	}
	return n.children[key]
}

// orderedKeys returns m's keys in declaration order. Keys the metadata does
// not know about (inner keys of inline tables inside arrays, for instance)
// come last, sorted, so the result stays deterministic.
func orderedKeys(m map[string]any, node *orderNode) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	if node != nil {
		for _, k := range node.order {
			if _, ok := m[k]; ok && !seen[k] {
				keys = append(keys, k)
				seen[k] = true
			}
		}
	}
	rest := make([]string, 0, len(m)-len(keys))
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// toTable converts a decoded map into an ordered Table, recursively
// converting nested maps and the maps inside arrays.
func toTable(m map[string]any, node *orderNode) *model.Table {
	t := model.NewTable()
	for _, k := range orderedKeys(m, node) {
		t.Set(k, convertValue(m[k], node.lookup(k)))
	}
	return t
}

func convertValue(v any, node *orderNode) any {
	switch val := v.(type) {
	case map[string]any:
		return toTable(val, node)
	case []any:
		out := make([]any, len(val))
		for i, el := range val {
			// Array-of-tables occurrences share one metadata path, so
			// elements reuse the same node.
			out[i] = convertValue(el, node)
		}
		return out
	default:
		return v
	}
}
