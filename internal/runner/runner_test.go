package runner_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"setup-host/internal/execenv"
	"setup-host/internal/runner"
)

func newRunner(euid int) (*runner.Runner, *bytes.Buffer, *bytes.Buffer) {
	var echo, out bytes.Buffer
	r := &runner.Runner{
		Echo:   &echo,
		Stdout: &out,
		Stderr: &out,
		Euid:   func() int { return euid },
	}
	return r, &echo, &out
}

func TestRunSuccess(t *testing.T) {
	c := qt.New(t)
	r, echo, _ := newRunner(1000)

	err := r.Run(context.Background(), execenv.Build(t.TempDir()), "sh", "-c", "exit 0")
	c.Assert(err, qt.IsNil)
	c.Assert(echo.String(), qt.Equals, "$ sh -c 'exit 0'\n")
}

func TestRunNonZeroExit(t *testing.T) {
	c := qt.New(t)
	r, _, _ := newRunner(1000)

	err := r.Run(context.Background(), execenv.Build(t.TempDir()), "sh", "-c", "exit 3")

	var cmdErr *runner.CommandError
	c.Assert(errors.As(err, &cmdErr), qt.IsTrue)
	c.Assert(cmdErr.ExitCode, qt.Equals, 3)
	c.Assert(cmdErr.Args, qt.DeepEquals, []string{"sh", "-c", "exit 3"})
	c.Assert(err, qt.ErrorMatches, `command .* exited with status 3`)
}

func TestRunMissingExecutable(t *testing.T) {
	c := qt.New(t)
	r, echo, _ := newRunner(1000)

	err := r.Run(context.Background(), execenv.Build(t.TempDir()), "no-such-tool-anywhere", "--version")

	var cmdErr *runner.CommandError
	c.Assert(errors.As(err, &cmdErr), qt.IsTrue)
	c.Assert(cmdErr.ExitCode, qt.Equals, -1)
	c.Assert(errors.Is(err, execenv.ErrNotFound), qt.IsTrue)
	c.Assert(echo.String(), qt.Equals, "$ no-such-tool-anywhere --version\n")
}

func TestRunEmptyCommand(t *testing.T) {
	c := qt.New(t)
	r, _, _ := newRunner(1000)

	err := r.Run(context.Background(), execenv.Build(t.TempDir()))
	c.Assert(err, qt.ErrorMatches, "runner: empty command")
}

func TestRunUsesCleanEnvironment(t *testing.T) {
	c := qt.New(t)
	t.Setenv("LEAKY_VARIABLE", "leaked")
	home := t.TempDir()
	r, _, out := newRunner(1000)

	err := r.Run(context.Background(), execenv.Build(home), "sh", "-c", `echo "$HOME|$LEAKY_VARIABLE"`)
	c.Assert(err, qt.IsNil)
	c.Assert(out.String(), qt.Equals, home+"|\n")
}

func TestRunCancelledContext(t *testing.T) {
	c := qt.New(t)
	r, _, _ := newRunner(1000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx, execenv.Build(t.TempDir()), "sh", "-c", "sleep 5")

	var cmdErr *runner.CommandError
	c.Assert(errors.As(err, &cmdErr), qt.IsTrue)
}

func TestCommandLinePrefix(t *testing.T) {
	c := qt.New(t)

	root, _, _ := newRunner(0)
	c.Assert(root.CommandLine([]string{"apt-get", "-y", "install", "--", "git"}), qt.Equals, "# apt-get -y install -- git")

	user, _, _ := newRunner(1000)
	c.Assert(user.CommandLine([]string{"/bin/sh", "-c", "echo hi > /tmp/x"}), qt.Equals, "$ /bin/sh -c 'echo hi > /tmp/x'")
	c.Assert(user.CommandLine([]string{"printf", ""}), qt.Equals, "$ printf ''")
}
