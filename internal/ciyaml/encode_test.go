package ciyaml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/mise-tools/mise-en-gitlab/internal/model"
)

func sampleDocument() *model.Document {
	rule := model.NewTable()
	rule.Set("if", "'$CI_COMMIT_BRANCH' == 'main'")

	artifacts := model.NewTable()
	artifacts.Set("paths", []any{"dist/"})
	artifacts.Set("when", "always")

	extra := model.NewTable()
	extra.Set("tags", []any{"docker"})
	extra.Set("timeout", "30m")

	build := &model.Job{
		Key:       "build",
		Stage:     "build",
		Image:     "node:20",
		Script:    []string{"cd frontend", "pnpm build"},
		Rules:     []*model.Table{rule},
		Artifacts: artifacts,
		Extra:     extra,
	}
	deploy := &model.Job{
		Key:    "deploy",
		Stage:  "deploy",
		Script: []string{"./deploy.sh"},
		Needs:  []string{"build"},
		Extra:  model.NewTable(),
	}
	return &model.Document{
		Stages: []string{"build", "deploy"},
		Jobs:   []*model.Job{build, deploy},
	}
}

// mappingKeys decodes YAML and returns the top-level (or nested) mapping key
// order as the document actually serializes it.
func mappingKeys(t *testing.T, n *yamlv3.Node) []string {
	t.Helper()
	require.Equal(t, yamlv3.MappingNode, n.Kind)
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

func decodeRoot(t *testing.T, data []byte) *yamlv3.Node {
	t.Helper()
	var doc yamlv3.Node
	require.NoError(t, yamlv3.Unmarshal(data, &doc))
	require.Len(t, doc.Content, 1)
	return doc.Content[0]
}

func TestMarshal_TopLevelOrder(t *testing.T) {
	data, err := Marshal(sampleDocument())
	require.NoError(t, err)

	root := decodeRoot(t, data)
	assert.Equal(t, []string{"stages", "build", "deploy"}, mappingKeys(t, root))
}

func TestMarshal_JobKeyOrder(t *testing.T) {
	data, err := Marshal(sampleDocument())
	require.NoError(t, err)

	root := decodeRoot(t, data)
	var buildNode *yamlv3.Node
	for i := 0; i < len(root.Content); i += 2 {
		if root.Content[i].Value == "build" {
			buildNode = root.Content[i+1]
		}
	}
	require.NotNil(t, buildNode)
	assert.Equal(t,
		[]string{"stage", "image", "script", "rules", "artifacts", "tags", "timeout"},
		mappingKeys(t, buildNode))
}

func TestMarshal_Values(t *testing.T) {
	data, err := Marshal(sampleDocument())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yamlv3.Unmarshal(data, &out))

	assert.Equal(t, []any{"build", "deploy"}, out["stages"])

	build := out["build"].(map[string]any)
	assert.Equal(t, "node:20", build["image"])
	assert.Equal(t, []any{"cd frontend", "pnpm build"}, build["script"])
	assert.Equal(t, []any{map[string]any{"if": "'$CI_COMMIT_BRANCH' == 'main'"}}, build["rules"])
	assert.Equal(t, map[string]any{"paths": []any{"dist/"}, "when": "always"}, build["artifacts"])

	deploy := out["deploy"].(map[string]any)
	assert.Equal(t, []any{"build"}, deploy["needs"])
	_, hasImage := deploy["image"]
	assert.False(t, hasImage, "absent image must stay absent")
}

func TestMarshal_NestedPassThroughOrder(t *testing.T) {
	vars := model.NewTable()
	vars.Set("TZ", "UTC")
	vars.Set("CI_DEBUG", "1")
	vars.Set("APP_ENV", "prod")

	extra := model.NewTable()
	extra.Set("variables", vars)

	doc := &model.Document{
		Stages: []string{"build"},
		Jobs: []*model.Job{{
			Key:    "build",
			Stage:  "build",
			Script: []string{"make"},
			Extra:  extra,
		}},
	}

	data, err := Marshal(doc)
	require.NoError(t, err)

	root := decodeRoot(t, data)
	job := root.Content[3] // stages pair, then build pair
	var varsNode *yamlv3.Node
	for i := 0; i < len(job.Content); i += 2 {
		if job.Content[i].Value == "variables" {
			varsNode = job.Content[i+1]
		}
	}
	require.NotNil(t, varsNode)
	assert.Equal(t, []string{"TZ", "CI_DEBUG", "APP_ENV"}, mappingKeys(t, varsNode))
}

func TestMarshal_Deterministic(t *testing.T) {
	first, err := Marshal(sampleDocument())
	require.NoError(t, err)
	second, err := Marshal(sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "generated-ci.yml")

	require.NoError(t, AtomicWrite(path, []byte("stages:\n  - build\n")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "stages:\n  - build\n", string(content))

	// Overwrite goes through the same path.
	require.NoError(t, AtomicWrite(path, []byte("stages:\n  - test\n")))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "test")

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasPrefix(entries[0].Name(), ".mise-en-gitlab-"))
}

func TestAtomicWrite_RejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "generated-ci.yml")

	err := AtomicWrite(path, []byte("stages: [unclosed\n"))
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed validation must not produce output")
}
