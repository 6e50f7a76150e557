// Package ciyaml serializes the assembled document to GitLab CI YAML and
// writes it atomically. Encoding goes through a hand-built yaml.Node tree:
// Go maps are unordered, and the output's key order (stages first, jobs in
// task order, fixed field order inside each job) is part of the contract.
package ciyaml

import (
	"bytes"
	"fmt"
	"sort"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/mise-tools/mise-en-gitlab/internal/model"
	"github.com/mise-tools/mise-en-gitlab/internal/pipeline"
)

// Marshal renders the document. Top level: `stages`, then one key per job.
// Job keys come out as stage, image, script, rules, artifacts, needs, then
// pass-through keys in their source order.
func Marshal(doc *model.Document) ([]byte, error) {
	root := newMapping()

	stages := newSequence()
	for _, s := range doc.Stages {
		n, err := scalarNode(s)
		if err != nil {
			return nil, err
		}
		stages.Content = append(stages.Content, n)
	}
	if err := appendPair(root, pipeline.StagesKey, stages); err != nil {
		return nil, err
	}

	for _, job := range doc.Jobs {
		jn, err := jobNode(job)
		if err != nil {
			return nil, fmt.Errorf("encode job %q: %w", job.Key, err)
		}
		if err := appendPair(root, job.Key, jn); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	enc := yamlv3.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("yaml encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml encode: %w", err)
	}
	return buf.Bytes(), nil
}

func jobNode(job *model.Job) (*yamlv3.Node, error) {
	n := newMapping()

	stage, err := scalarNode(job.Stage)
	if err != nil {
		return nil, err
	}
	if err := appendPair(n, "stage", stage); err != nil {
		return nil, err
	}

	if job.Image != nil {
		img, err := valueNode(job.Image)
		if err != nil {
			return nil, err
		}
		if err := appendPair(n, "image", img); err != nil {
			return nil, err
		}
	}

	script := newSequence()
	for _, line := range job.Script {
		ln, err := scalarNode(line)
		if err != nil {
			return nil, err
		}
		script.Content = append(script.Content, ln)
	}
	if err := appendPair(n, "script", script); err != nil {
		return nil, err
	}

	if len(job.Rules) > 0 {
		rules := newSequence()
		for _, rule := range job.Rules {
			rn, err := tableNode(rule)
			if err != nil {
				return nil, err
			}
			rules.Content = append(rules.Content, rn)
		}
		if err := appendPair(n, "rules", rules); err != nil {
			return nil, err
		}
	}

	if job.Artifacts != nil {
		an, err := tableNode(job.Artifacts)
		if err != nil {
			return nil, err
		}
		if err := appendPair(n, "artifacts", an); err != nil {
			return nil, err
		}
	}

	if job.Needs != nil {
		needs, err := valueNode(job.Needs)
		if err != nil {
			return nil, err
		}
		if err := appendPair(n, "needs", needs); err != nil {
			return nil, err
		}
	}

	for _, k := range job.Extra.Keys() {
		v, _ := job.Extra.Get(k)
		vn, err := valueNode(v)
		if err != nil {
			return nil, err
		}
		if err := appendPair(n, k, vn); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func valueNode(v any) (*yamlv3.Node, error) {
	switch val := v.(type) {
	case *model.Table:
		return tableNode(val)
	case map[string]any:
		// Plain maps only appear when callers bypass the loader; sorted
		// keys keep the output deterministic.
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := newMapping()
		for _, k := range keys {
			vn, err := valueNode(val[k])
			if err != nil {
				return nil, err
			}
			if err := appendPair(n, k, vn); err != nil {
				return nil, err
			}
		}
		return n, nil
	case []any:
		n := newSequence()
		for _, el := range val {
			en, err := valueNode(el)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, en)
		}
		return n, nil
	case []string:
		n := newSequence()
		for _, el := range val {
			en, err := scalarNode(el)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, en)
		}
		return n, nil
	default:
		return scalarNode(v)
	}
}

func tableNode(t *model.Table) (*yamlv3.Node, error) {
	n := newMapping()
	for _, k := range t.Keys() {
		v, _ := t.Get(k)
		vn, err := valueNode(v)
		if err != nil {
			return nil, err
		}
		if err := appendPair(n, k, vn); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func appendPair(mapping *yamlv3.Node, key string, value *yamlv3.Node) error {
	kn, err := scalarNode(key)
	if err != nil {
		return err
	}
	mapping.Content = append(mapping.Content, kn, value)
	return nil
}

func scalarNode(v any) (*yamlv3.Node, error) {
	n := &yamlv3.Node{}
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("yaml encode %v: %w", v, err)
	}
	return n, nil
}

func newMapping() *yamlv3.Node {
	return &yamlv3.Node{Kind: yamlv3.MappingNode, Tag: "!!map"}
}

func newSequence() *yamlv3.Node {
	return &yamlv3.Node{Kind: yamlv3.SequenceNode, Tag: "!!seq"}
}
