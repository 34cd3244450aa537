// Package cargo runs the cargo toolchain and decodes its output.
//
// Two queries are used by the resolver:
//
//	cargo metadata --format-version 1 --color never
//	cargo tree -e normal -f {p} --prefix none --color never --no-dedupe
//
// Both are executed through an [Executor], which retries the query under
// each configured [Directive] (e.g. --locked, then a plain run) and returns
// the first successful output.
package cargo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/shell"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

// Runner executes a command and returns its standard output.
//
//go:generate mockgen -source=exec.go -destination=mocks/mock_runner.go -package=mocks
type Runner interface {
	// Run executes argv in dir. A non-zero exit status is returned as
	// an error that includes the captured standard error.
	Run(ctx context.Context, dir string, argv []string) ([]byte, error)
}

// ExitError reports a cargo process that ran but failed.
type ExitError struct {
	Argv     []string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", strings.Join(e.Argv, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Env is appended to the inherited environment.
	Env []string
	// Stderr, when set, additionally receives the child's standard error.
	Stderr io.Writer
}

// Run implements [Runner].
func (r ExecRunner) Run(ctx context.Context, dir string, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // cargo path comes from configuration
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.Stderr)
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("start %s: %w", argv[0], err)
		}
		return nil, &ExitError{Argv: argv, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return stdout.Bytes(), nil
}

// SplitCommand splits a configured cargo command line, such as
// "cargo +nightly" or "$HOME/.cargo/bin/cargo", into argv using shell word
// rules. Variables are expanded from the process environment.
func SplitCommand(line string) ([]string, error) {
	fields, err := shell.Fields(line, os.Getenv)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse cargo command %q", line)
	}
	if len(fields) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "cargo command is empty")
	}
	return fields, nil
}

// DirectiveError is the failure of a single directive attempt.
type DirectiveError struct {
	Directive Directive
	Err       error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("%s: %v", e.Directive, e.Err)
}

func (e *DirectiveError) Unwrap() error { return e.Err }

// Executor runs cargo subcommands with directive fallback.
type Executor struct {
	runner     Runner
	cargo      []string
	dir        string
	directives DirectiveList
	logger     *log.Logger
}

// NewExecutor creates an Executor running cargo (argv prefix) in dir.
// An empty directive list behaves like [DefaultDirectives]. A nil logger
// discards output.
func NewExecutor(runner Runner, cargo []string, dir string, directives DirectiveList, logger *log.Logger) *Executor {
	if len(cargo) == 0 {
		cargo = []string{"cargo"}
	}
	if len(directives) == 0 {
		directives = DefaultDirectives()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Executor{
		runner:     runner,
		cargo:      cargo,
		dir:        dir,
		directives: directives,
		logger:     logger,
	}
}

// Directives returns the directive order used by the executor.
func (e *Executor) Directives() DirectiveList { return e.directives }

// Exec runs cargo with args once per directive, in order, and returns the
// output of the first run that succeeds. If every directive fails, the
// returned error has code ErrCodeExec and wraps one [DirectiveError] per
// attempt. Cancellation of ctx stops the loop immediately.
func (e *Executor) Exec(ctx context.Context, args ...string) ([]byte, error) {
	var failures []error
	for _, d := range e.directives {
		argv := append(append([]string(nil), e.cargo...), d.apply(args)...)
		e.logger.Debug("running cargo", "directive", d, "argv", strings.Join(argv, " "))

		out, err := e.runner.Run(ctx, e.dir, argv)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Debug("cargo directive failed", "directive", d, "err", err)
		failures = append(failures, &DirectiveError{Directive: d, Err: err})
	}
	sub := "cargo"
	if len(args) > 0 {
		sub = "cargo " + args[0]
	}
	return nil, errors.Join(errors.ErrCodeExec, fmt.Sprintf("%s failed under every directive (%s)", sub, e.directives), failures...)
}

// MetadataArgs are the arguments for the full dependency metadata query.
var MetadataArgs = []string{"metadata", "--format-version", "1", "--color", "never"}

// TreeArgs are the arguments for the compiled (normal edges only) crate
// listing. One crate name per line, duplicates included.
var TreeArgs = []string{"tree", "-e", "normal", "-f", "{p}", "--prefix", "none", "--color", "never", "--no-dedupe"}

// Metadata runs the metadata query and parses its output.
func (e *Executor) Metadata(ctx context.Context) (*Metadata, error) {
	out, err := e.Exec(ctx, MetadataArgs...)
	if err != nil {
		return nil, err
	}
	return ParseMetadata(out)
}

// Tree runs the compiled-set query and parses its output.
func (e *Executor) Tree(ctx context.Context) (NameSet, error) {
	out, err := e.Exec(ctx, TreeArgs...)
	if err != nil {
		return nil, err
	}
	return ParseTree(out)
}
