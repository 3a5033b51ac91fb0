// Package execenv builds the minimal environment every external command runs under.
//
// The environment holds exactly PATH and HOME. Nothing from the invoking shell
// leaks through, so command resolution is the same no matter how the tool was started.
package execenv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath is the system search path appended after the user directories.
const DefaultPath = "/bin:/usr/bin"

// Env is the clean execution environment.
type Env struct {
	Home string
	Path string
}

// Build returns the environment for the given home directory. PATH is, in order,
// the mise shim directory, the user's local bin directory and DefaultPath.
func Build(home string) Env {
	path := strings.Join([]string{
		filepath.Join(home, ".local", "share", "mise", "shims"),
		filepath.Join(home, ".local", "bin"),
		DefaultPath,
	}, string(os.PathListSeparator))

	return Env{Home: home, Path: path}
}

// Current builds the environment for the invoking user.
func Current() (Env, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Env{}, fmt.Errorf("resolve home directory: %w", err)
	}
	return Build(home), nil
}

// Environ renders the environment in the KEY=value form expected by os/exec.
func (e Env) Environ() []string {
	return []string{"PATH=" + e.Path, "HOME=" + e.Home}
}

// Dirs returns the PATH entries in search order.
func (e Env) Dirs() []string {
	return filepath.SplitList(e.Path)
}

// ErrNotFound is returned by LookPath when no executable matches.
var ErrNotFound = errors.New("executable file not found in clean PATH")

// LookPath searches the environment's PATH for an executable named file.
// Names containing a slash are checked directly, like a shell would.
func (e Env) LookPath(file string) (string, error) {
	if strings.Contains(file, "/") {
		if err := findExecutable(file); err != nil {
			return "", fmt.Errorf("%s: %w", file, err)
		}
		return file, nil
	}

	for _, dir := range e.Dirs() {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s: %w", file, ErrNotFound)
}

func findExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode(); !mode.IsDir() && mode&0o111 != 0 {
		return nil
	}
	return fs.ErrPermission
}
