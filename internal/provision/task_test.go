package provision_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"setup-host/internal/provision"
)

func TestParseTask(t *testing.T) {
	c := qt.New(t)

	for input, want := range map[string]provision.Task{
		"":                 provision.TaskMain,
		"main":             provision.TaskMain,
		"prepare_dotfiles": provision.TaskPrepareDotfiles,
		"prepare_docker":   provision.TaskPrepareDocker,
		"install_mise":     provision.TaskInstallMise,
	} {
		got, err := provision.ParseTask(input)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, want)
	}

	_, err := provision.ParseTask("install_docker")
	c.Assert(err, qt.ErrorMatches, `unknown task "install_docker" \(valid: main, prepare_dotfiles, prepare_docker, install_mise\)`)
}

func TestSelfInvocation(t *testing.T) {
	c := qt.New(t)
	self := provision.Self{Executable: "/opt/bin/setup-host", ConfigPath: "/etc/setup/config.toml", Debug: true}

	c.Assert(self.Invocation(provision.TaskPrepareDotfiles, false), qt.DeepEquals,
		[]string{"/opt/bin/setup-host", "prepare_dotfiles", "--config", "/etc/setup/config.toml", "--debug"})
	c.Assert(self.Invocation(provision.TaskPrepareDocker, true), qt.DeepEquals,
		[]string{"sudo", "/opt/bin/setup-host", "prepare_docker", "--config", "/etc/setup/config.toml", "--debug"})

	bare := provision.Self{Executable: "/opt/bin/setup-host"}
	c.Assert(bare.Invocation(provision.TaskInstallMise, false), qt.DeepEquals,
		[]string{"/opt/bin/setup-host", "install_mise"})
}

func TestOptionsDotfilesDir(t *testing.T) {
	c := qt.New(t)
	opts := provision.Options{ConfigPath: "/srv/setup/config.toml"}
	c.Assert(opts.DotfilesDir(), qt.Equals, "/srv/setup/dotfiles")
}

func TestDispatch(t *testing.T) {
	c := qt.New(t)
	var ran []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			ran = append(ran, name)
			return nil
		}
	}
	d := &provision.Dispatcher{
		Main:            record("main"),
		PrepareDotfiles: record("dotfiles"),
		PrepareDocker:   record("docker"),
		InstallMise:     record("mise"),
	}

	for _, task := range provision.Tasks {
		c.Assert(d.Dispatch(context.Background(), task), qt.IsNil)
	}
	c.Assert(ran, qt.DeepEquals, []string{"main", "dotfiles", "docker", "mise"})

	c.Assert(d.Dispatch(context.Background(), provision.Task("bogus")), qt.ErrorMatches, `unknown task "bogus"`)
}

func TestDispatchUnwiredTask(t *testing.T) {
	c := qt.New(t)
	d := &provision.Dispatcher{}
	c.Assert(d.Dispatch(context.Background(), provision.TaskMain), qt.ErrorMatches, `task "main" is not wired`)
}

func TestNewDispatcherMainReportsConfigErrors(t *testing.T) {
	c := qt.New(t)
	d := provision.NewDispatcher(provision.Options{ConfigPath: c.TempDir() + "/missing.toml"})

	err := d.Dispatch(context.Background(), provision.TaskMain)
	c.Assert(err, qt.ErrorMatches, `config .*missing.toml: .*`)
}
