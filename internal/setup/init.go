// Package setup scaffolds a starter mise.toml in a project directory.
package setup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mise-tools/mise-en-gitlab/templates"
)

const templateName = "mise.toml"

// Run writes the embedded starter mise.toml into projectDir. It refuses to
// overwrite an existing file. Returns the path it wrote.
func Run(projectDir string) (string, error) {
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}

	target := filepath.Join(absDir, templateName)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("%s already exists", target)
	}

	content, err := templates.FS.ReadFile(templateName)
	if err != nil {
		return "", fmt.Errorf("read embedded template: %w", err)
	}
	if err := os.WriteFile(target, content, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, nil
}
