package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"setup-host/internal/logger"
	"setup-host/internal/provision"
)

// defaultConfigName is looked up next to the executable when --config is unset.
const defaultConfigName = "config.toml"

// dispatchFunc runs a parsed task; tests replace it to observe routing.
type dispatchFunc func(ctx context.Context, opts provision.Options, task provision.Task) error

func dispatch(ctx context.Context, opts provision.Options, task provision.Task) error {
	return provision.NewDispatcher(opts).Dispatch(ctx, task)
}

// newRootCommand builds the `setup-host [task]` command. With no argument it
// provisions the machine; the other tasks are run by the main task in child
// processes.
func newRootCommand(run dispatchFunc) *cobra.Command {
	var (
		debug      bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "setup-host [task]",
		Short: "Bootstrap a Linux personal machine",
		Long: "Provision the current machine from config.toml: APT, snap, mise, uv and Docker\n" +
			"packages plus arbitrary setup commands. Run without arguments.",
		Args:          cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs:     provision.TaskNames(),
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(debug)
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			var selector string
			if len(args) == 1 {
				selector = args[0]
			}
			task, err := provision.ParseTask(selector)
			if err != nil {
				return err
			}

			path, err := resolveConfigPath(configPath)
			if err != nil {
				return err
			}
			logger.Debug("[DEBUG] Using config %s\n", path)

			return run(cmd.Context(), provision.Options{ConfigPath: path, Debug: debug}, task)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: config.toml next to the executable)")
	return cmd
}

// resolveConfigPath returns an absolute config path so child processes find
// the same file regardless of their working directory.
func resolveConfigPath(flag string) (string, error) {
	if flag == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve own executable: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Join(filepath.Dir(exe), defaultConfigName), nil
	}
	path, err := filepath.Abs(flag)
	if err != nil {
		return "", fmt.Errorf("resolve config path %s: %w", flag, err)
	}
	return path, nil
}

// Execute runs the CLI and exits non-zero on any failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(dispatch).ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("[ERROR] %v\n", err)
		os.Exit(1)
	}
}
