// Package generate runs one complete generation: load the mise.toml,
// validate, build the document, encode, and write the output atomically.
package generate

import (
	"errors"
	"fmt"

	"github.com/mise-tools/mise-en-gitlab/internal/ciyaml"
	"github.com/mise-tools/mise-en-gitlab/internal/logging"
	"github.com/mise-tools/mise-en-gitlab/internal/mise"
	"github.com/mise-tools/mise-en-gitlab/internal/pipeline"
)

// Process exit codes, part of the CLI contract.
const (
	ExitOK        = 0
	ExitNoCITasks = 1
	ExitBadInput  = 2
)

type Options struct {
	Input  string
	Output string
	Logger *logging.Logger
}

// Run performs one generation. Any error means no output file was touched;
// there is no partial-success mode.
func Run(opts Options) error {
	spec, err := mise.Load(opts.Input)
	if err != nil {
		return err
	}
	opts.Logger.Debugf("loaded %s: %d tasks", opts.Input, len(spec.Tasks))

	if err := pipeline.Validate(spec); err != nil {
		return err
	}

	doc, err := pipeline.Build(spec)
	if err != nil {
		return err
	}
	opts.Logger.Debugf("assembled %d jobs across %d stages", len(doc.Jobs), len(doc.Stages))

	data, err := ciyaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err := ciyaml.AtomicWrite(opts.Output, data); err != nil {
		return fmt.Errorf("write %s: %w", opts.Output, err)
	}

	opts.Logger.Infof("generated %s (%d stages, %d jobs)", opts.Output, len(doc.Stages), len(doc.Jobs))
	return nil
}

// ExitCode maps a Run error to the process exit code: 1 when no task
// carries a CI annotation, 2 for everything else that went wrong.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var noCI *pipeline.NoCITasksError
	if errors.As(err, &noCI) {
		return ExitNoCITasks
	}
	return ExitBadInput
}
