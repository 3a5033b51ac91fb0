// Package provision sequences the provisioning steps and dispatches the
// single-purpose tasks that the main run delegates to child processes.
package provision

import (
	"fmt"
	"strings"
)

// Task selects what one invocation of the program does.
type Task string

const (
	TaskMain            Task = "main"
	TaskPrepareDotfiles Task = "prepare_dotfiles"
	TaskPrepareDocker   Task = "prepare_docker"
	TaskInstallMise     Task = "install_mise"
)

// Tasks lists every valid selector; TaskMain is the default.
var Tasks = []Task{TaskMain, TaskPrepareDotfiles, TaskPrepareDocker, TaskInstallMise}

// TaskNames returns the selectors as strings, for CLI validation and help.
func TaskNames() []string {
	names := make([]string, len(Tasks))
	for i, t := range Tasks {
		names[i] = string(t)
	}
	return names
}

// ParseTask validates a selector. An empty string means TaskMain.
func ParseTask(s string) (Task, error) {
	if s == "" {
		return TaskMain, nil
	}
	for _, t := range Tasks {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown task %q (valid: %s)", s, strings.Join(TaskNames(), ", "))
}

// Self re-invokes this program to run one task in a separate process.
type Self struct {
	Executable string // absolute path of this binary
	ConfigPath string // forwarded so the child finds the dotfiles tree
	Debug      bool
}

// Invocation returns the command line that runs task in a child process,
// prefixed with sudo when privileged.
func (s Self) Invocation(task Task, privileged bool) []string {
	var args []string
	if privileged {
		args = append(args, "sudo")
	}
	args = append(args, s.Executable, string(task))
	if s.ConfigPath != "" {
		args = append(args, "--config", s.ConfigPath)
	}
	if s.Debug {
		args = append(args, "--debug")
	}
	return args
}
