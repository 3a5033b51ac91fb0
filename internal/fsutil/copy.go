// Package fsutil holds the file copy helpers shared by the installer and the
// dotfiles step. Copies behave like cp -p: content, mode and modification time.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// CopyFile copies src to dst, creating dst's parent directories and preserving
// the source mode and modification time. An existing dst is overwritten.
func CopyFile(fs afero.Fs, src, dst string) error {
	// Stat follows symlinks, so a linked file is copied by content
	info, err := fs.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source failed: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("copy %s: not a regular file", src)
	}

	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("open source failed: %w", err)
	}
	defer in.Close()

	// Ensure the destination directory exists
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir failed: %w", err)
	}

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create target failed: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy failed: %w", err)
	}
	// Close before restoring times; closing a written file may bump its mtime
	if err := out.Close(); err != nil {
		return fmt.Errorf("close target failed: %w", err)
	}

	// OpenFile only applies the mode on creation and is subject to umask
	if err := fs.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod failed: %w", err)
	}
	if err := fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("chtimes failed: %w", err)
	}
	return nil
}

// CopyTree merges the directory src into dst. Existing directories are reused
// and existing files overwritten; nothing in dst is removed. Symlinks are
// followed, and every directory, dst included, ends up with the mode and
// modification time of its source directory.
func CopyTree(fs afero.Fs, src, dst string) error {
	info, err := fs.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source tree failed: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("copy tree %s: not a directory", src)
	}

	var dirs []dirStat
	if err := copyTree(fs, src, dst, info, nil, &dirs); err != nil {
		return err
	}

	// Deepest first: filling a directory changes its mtime, and restricted
	// modes are only applied once nothing more is written below them.
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		if err := fs.Chmod(d.path, d.mode); err != nil {
			return fmt.Errorf("chmod %s failed: %w", d.path, err)
		}
		if err := fs.Chtimes(d.path, d.modTime, d.modTime); err != nil {
			return fmt.Errorf("chtimes %s failed: %w", d.path, err)
		}
	}
	return nil
}

type dirStat struct {
	path    string
	mode    os.FileMode
	modTime time.Time
}

// copyTree copies the directory src, described by info, into dst. parents are
// the source directories being copied above it and guard against link loops.
func copyTree(fs afero.Fs, src, dst string, info os.FileInfo, parents []os.FileInfo, dirs *[]dirStat) error {
	for _, parent := range parents {
		if os.SameFile(parent, info) {
			return fmt.Errorf("copy tree %s: symlink loop", src)
		}
	}
	parents = append(parents, info)

	if err := fs.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("mkdir %s failed: %w", dst, err)
	}
	*dirs = append(*dirs, dirStat{path: dst, mode: info.Mode().Perm(), modTime: info.ModTime()})

	entries, err := afero.ReadDir(fs, src)
	if err != nil {
		return fmt.Errorf("read %s failed: %w", src, err)
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())

		if entry.Mode()&os.ModeSymlink != 0 {
			resolved, err := fs.Stat(from)
			if err != nil {
				return fmt.Errorf("stat %s failed: %w", from, err)
			}
			entry = resolved
		}
		if entry.IsDir() {
			if err := copyTree(fs, from, to, entry, parents, dirs); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(fs, from, to); err != nil {
			return err
		}
	}
	return nil
}
