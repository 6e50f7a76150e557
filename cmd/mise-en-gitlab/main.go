package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mise-tools/mise-en-gitlab/internal/generate"
	"github.com/mise-tools/mise-en-gitlab/internal/logging"
	"github.com/mise-tools/mise-en-gitlab/internal/setup"
	"github.com/mise-tools/mise-en-gitlab/internal/watch"
)

const version = "0.2.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(generate.ExitBadInput)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "init":
		runInit(os.Args[2:])
	case "version":
		fmt.Printf("mise-en-gitlab %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(generate.ExitBadInput)
	}
}

func runGenerate(args []string) {
	inPath := "mise.toml"
	outPath := "generated-ci.yml"
	verbose := false
	watchMode := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--in":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--in requires a value")
				os.Exit(generate.ExitBadInput)
			}
			i++
			inPath = args[i]
		case "--out":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--out requires a value")
				os.Exit(generate.ExitBadInput)
			}
			i++
			outPath = args[i]
		case "-v", "--verbose":
			verbose = true
		case "--watch":
			watchMode = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: mise-en-gitlab generate [--in <path>] [--out <path>] [--watch] [-v]\n", args[i])
			os.Exit(generate.ExitBadInput)
		}
	}

	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	// Environment override wins over the flag, matching the documented
	// MISE_EN_GITLAB_LOG_LEVEL contract.
	if env := os.Getenv("MISE_EN_GITLAB_LOG_LEVEL"); env != "" {
		level = logging.ParseLevel(env)
	}
	logger := logging.New(os.Stderr, level)

	if _, err := os.Stat(inPath); err != nil {
		fmt.Fprintf(os.Stderr, "input file not found: %s\n", inPath)
		os.Exit(generate.ExitBadInput)
	}

	opts := generate.Options{Input: inPath, Output: outPath, Logger: logger}

	err := generate.Run(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
	}
	if !watchMode {
		os.Exit(generate.ExitCode(err))
	}

	// Watch mode keeps going after a failed run; the next edit may fix it.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("watching %s (ctrl-c to stop)", inPath)
	if err := watch.Run(ctx, watch.Options{
		Input:  inPath,
		Logger: logger,
		Regenerate: func() error {
			return generate.Run(opts)
		},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		os.Exit(generate.ExitBadInput)
	}
}

func runInit(args []string) {
	dir := "."
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "usage: mise-en-gitlab init [dir]")
		os.Exit(generate.ExitBadInput)
	}
	if len(args) == 1 {
		dir = args[0]
	}

	path, err := setup.Run(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(generate.ExitBadInput)
	}
	fmt.Printf("Wrote starter %s\n", path)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `mise-en-gitlab %s: generate GitLab CI YAML from mise.toml

Usage: mise-en-gitlab <command> [options]

Commands:
  generate [--in <path>] [--out <path>] [--watch] [-v|--verbose]
            Generate GitLab CI YAML (defaults: mise.toml -> generated-ci.yml)
  init [dir]
            Write a starter mise.toml into dir (default: .)
  version   Show version
  help      Show this help

Exit codes for generate:
  0  success
  1  no CI-annotated tasks found
  2  malformed TOML, schema error, or write failure

Annotations live in [gitlab-ci.jobs.<task>] (canonical) or [tasks.<task>.ci]
(fallback); global defaults in [gitlab-ci.defaults].

`, version)
}
