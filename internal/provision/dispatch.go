package provision

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"setup-host/internal/config"
	"setup-host/internal/dockerrepo"
	"setup-host/internal/dotfiles"
	"setup-host/internal/execenv"
	"setup-host/internal/installer"
	"setup-host/internal/logger"
	"setup-host/internal/runner"
)

// Options carry what the CLI resolved before dispatching.
type Options struct {
	ConfigPath string
	Debug      bool
}

// DotfilesDir is the dotfiles tree that sits next to the config file.
func (o Options) DotfilesDir() string {
	return filepath.Join(filepath.Dir(o.ConfigPath), "dotfiles")
}

// Dispatcher maps a Task to the code that performs it. Each field is one
// isolated responsibility; NewDispatcher wires the real implementations.
type Dispatcher struct {
	Main            func(ctx context.Context) error
	PrepareDotfiles func(ctx context.Context) error
	PrepareDocker   func(ctx context.Context) error
	InstallMise     func(ctx context.Context) error
}

// Dispatch runs task.
func (d *Dispatcher) Dispatch(ctx context.Context, task Task) error {
	var fn func(context.Context) error
	switch task {
	case TaskMain:
		fn = d.Main
	case TaskPrepareDotfiles:
		fn = d.PrepareDotfiles
	case TaskPrepareDocker:
		fn = d.PrepareDocker
	case TaskInstallMise:
		fn = d.InstallMise
	default:
		return fmt.Errorf("unknown task %q", task)
	}
	if fn == nil {
		return fmt.Errorf("task %q is not wired", task)
	}

	logger.Debug("[DEBUG] Dispatching task %s\n", task)
	return fn(ctx)
}

// NewDispatcher wires every task to its production implementation.
func NewDispatcher(opts Options) *Dispatcher {
	return &Dispatcher{
		Main: func(ctx context.Context) error {
			return runMain(ctx, opts)
		},
		PrepareDotfiles: func(ctx context.Context) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve home directory: %w", err)
			}
			return dotfiles.New(home, opts.DotfilesDir()).Prepare()
		},
		PrepareDocker: func(ctx context.Context) error {
			return dockerrepo.New().Prepare(ctx)
		},
		InstallMise: func(ctx context.Context) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve home directory: %w", err)
			}
			return installer.New(home).InstallLatest(ctx, installer.Mise)
		},
	}
}

// runMain loads the config and runs the full sequence. Configuration problems
// surface here, before any command is started.
func runMain(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	env, err := execenv.Current()
	if err != nil {
		return err
	}

	current, err := user.Current()
	if err != nil {
		return fmt.Errorf("resolve current user: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own executable: %w", err)
	}

	seq := &Sequencer{
		Runner: runner.New(),
		Env:    env,
		User:   current.Username,
		Self: Self{
			Executable: exe,
			ConfigPath: opts.ConfigPath,
			Debug:      opts.Debug,
		},
	}
	return seq.Run(ctx, cfg)
}
