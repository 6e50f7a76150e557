package setup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mise-tools/mise-en-gitlab/internal/mise"
)

func TestRun_WritesStarterConfig(t *testing.T) {
	dir := t.TempDir()

	path, err := Run(dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if filepath.Base(path) != "mise.toml" {
		t.Errorf("wrote %q, want mise.toml", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	if !strings.Contains(string(data), "[gitlab-ci.defaults]") {
		t.Errorf("starter config missing defaults table")
	}

	// The template must itself be a valid, generatable config.
	spec, err := mise.LoadBytes(path, data)
	if err != nil {
		t.Fatalf("starter config does not parse: %v", err)
	}
	annotated := 0
	for _, task := range spec.Tasks {
		if task.Annotated() {
			annotated++
		}
	}
	if annotated == 0 {
		t.Errorf("starter config has no annotated tasks")
	}
}

func TestRun_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "mise.toml")
	if err := os.WriteFile(existing, []byte("# mine\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Run(dir); err == nil {
		t.Fatalf("Run overwrote an existing mise.toml")
	}

	data, _ := os.ReadFile(existing)
	if string(data) != "# mine\n" {
		t.Errorf("existing file was modified")
	}
}
