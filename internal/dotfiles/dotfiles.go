// Package dotfiles merges the system skeleton and the user's dotfiles tree
// into the home directory.
package dotfiles

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"setup-host/internal/fsutil"
	"setup-host/internal/logger"
)

// DefaultSkel is the system skeleton copied into every new home directory.
const DefaultSkel = "/etc/skel"

// dirs are created before copying so tools can rely on them existing.
var dirs = []string{
	".bashrc.d",
	".config",
	".local/bin",
	".local/share/bash-completion/completions",
}

// Preparer copies Skel and then Source into Home, overwriting existing files.
type Preparer struct {
	Fs     afero.Fs
	Home   string
	Skel   string
	Source string
}

// New returns a Preparer on the real filesystem.
func New(home, source string) *Preparer {
	return &Preparer{Fs: afero.NewOsFs(), Home: home, Skel: DefaultSkel, Source: source}
}

// Prepare creates the standard directories and merges both trees.
func (p *Preparer) Prepare() error {
	for _, dir := range dirs {
		path := filepath.Join(p.Home, filepath.FromSlash(dir))
		if err := p.Fs.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	}

	for _, src := range []string{p.Skel, p.Source} {
		logger.Debug("[DEBUG] Merging %s into %s\n", src, p.Home)
		if err := fsutil.CopyTree(p.Fs, src, p.Home); err != nil {
			return fmt.Errorf("merge %s: %w", src, err)
		}
	}

	logger.Info("[INFO] Dotfiles merged into %s\n", p.Home)
	return nil
}
