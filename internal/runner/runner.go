// Package runner executes external commands under the clean environment.
//
// Every invocation is echoed in green before it starts, prefixed with "#" when
// running as root and "$" otherwise. A non-zero exit is returned as *CommandError
// and callers abort the run on it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"mvdan.cc/sh/v3/syntax"

	"setup-host/internal/execenv"
	"setup-host/internal/logger"
)

// CommandError reports a command that could not be started or exited non-zero.
type CommandError struct {
	Args     []string
	ExitCode int // -1 when the process never ran
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("command %q failed to start: %v", e.Args, e.Err)
	}
	return fmt.Sprintf("command %q exited with status %d", e.Args, e.ExitCode)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Runner runs commands with inherited stdio.
type Runner struct {
	Echo   io.Writer // where the command line is printed
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Euid reports the effective user id; it selects the echo prefix.
	Euid func() int

	echoColor *color.Color
}

// New returns a Runner wired to the process's standard streams.
func New() *Runner {
	return &Runner{
		Echo:      os.Stdout,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Euid:      os.Geteuid,
		echoColor: color.New(color.FgGreen),
	}
}

// Run echoes and executes args under env, waiting for it to finish.
// args[0] is resolved against env's PATH, not the caller's.
func (r *Runner) Run(ctx context.Context, env execenv.Env, args ...string) error {
	if len(args) == 0 {
		return errors.New("runner: empty command")
	}

	r.echo(args)

	path, err := env.LookPath(args[0])
	if err != nil {
		return &CommandError{Args: args, ExitCode: -1, Err: err}
	}

	cmd := exec.CommandContext(ctx, path, args[1:]...)
	cmd.Args[0] = args[0]
	cmd.Env = env.Environ()
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	logger.Debug("[DEBUG] Resolved %s to %s\n", args[0], path)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CommandError{Args: args, ExitCode: exitErr.ExitCode(), Err: err}
		}
		return &CommandError{Args: args, ExitCode: -1, Err: err}
	}
	return nil
}

// CommandLine renders args the way Run echoes them.
func (r *Runner) CommandLine(args []string) string {
	prefix := "$"
	if r.Euid != nil && r.Euid() == 0 {
		prefix = "#"
	}
	return prefix + " " + shellJoin(args)
}

func (r *Runner) echo(args []string) {
	line := r.CommandLine(args)
	if r.echoColor == nil {
		fmt.Fprintln(r.Echo, line)
		return
	}
	r.echoColor.Fprintln(r.Echo, line)
}

// shellJoin quotes each word so the echoed line can be pasted into a POSIX shell.
func shellJoin(args []string) string {
	words := make([]string, len(args))
	for i, arg := range args {
		quoted, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			// POSIX has no escape for some control bytes; Go quoting is still unambiguous.
			quoted = fmt.Sprintf("%q", arg)
		}
		words[i] = quoted
	}
	return strings.Join(words, " ")
}
