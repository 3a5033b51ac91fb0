package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/spf13/afero"

	"setup-host/internal/fsutil"
)

func TestCopyFilePreservesMetadata(t *testing.T) {
	c := qt.New(t)
	fs := afero.NewMemMapFs()
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	c.Assert(afero.WriteFile(fs, "/src/tool", []byte("binary"), 0o755), qt.IsNil)
	c.Assert(fs.Chtimes("/src/tool", stamp, stamp), qt.IsNil)

	c.Assert(fsutil.CopyFile(fs, "/src/tool", "/home/u/.local/bin/tool"), qt.IsNil)

	data, err := afero.ReadFile(fs, "/home/u/.local/bin/tool")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "binary")

	info, err := fs.Stat("/home/u/.local/bin/tool")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Mode().Perm(), qt.Equals, os.FileMode(0o755))
	c.Assert(info.ModTime().Equal(stamp), qt.IsTrue)
}

func TestCopyFileOverwrites(t *testing.T) {
	c := qt.New(t)
	fs := afero.NewMemMapFs()

	c.Assert(afero.WriteFile(fs, "/src/a", []byte("new"), 0o644), qt.IsNil)
	c.Assert(afero.WriteFile(fs, "/dst/a", []byte("old and longer"), 0o600), qt.IsNil)

	c.Assert(fsutil.CopyFile(fs, "/src/a", "/dst/a"), qt.IsNil)

	data, err := afero.ReadFile(fs, "/dst/a")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "new")
}

func TestCopyFileMissingSource(t *testing.T) {
	c := qt.New(t)
	fs := afero.NewMemMapFs()

	err := fsutil.CopyFile(fs, "/nope", "/dst")
	c.Assert(err, qt.ErrorMatches, "stat source failed: .*")
}

func TestCopyTreeMerges(t *testing.T) {
	c := qt.New(t)
	fs := afero.NewMemMapFs()

	c.Assert(afero.WriteFile(fs, "/skel/.bashrc", []byte("skel"), 0o644), qt.IsNil)
	c.Assert(afero.WriteFile(fs, "/skel/.config/git/config", []byte("[user]"), 0o644), qt.IsNil)
	c.Assert(afero.WriteFile(fs, "/home/u/.bashrc", []byte("mine"), 0o644), qt.IsNil)
	c.Assert(afero.WriteFile(fs, "/home/u/keep.txt", []byte("keep"), 0o644), qt.IsNil)

	c.Assert(fsutil.CopyTree(fs, "/skel", "/home/u"), qt.IsNil)

	for path, want := range map[string]string{
		"/home/u/.bashrc":            "skel",
		"/home/u/.config/git/config": "[user]",
		"/home/u/keep.txt":           "keep",
	} {
		data, err := afero.ReadFile(fs, path)
		c.Assert(err, qt.IsNil)
		c.Assert(string(data), qt.Equals, want, qt.Commentf(path))
	}
}

func TestCopyTreeRequiresDirectory(t *testing.T) {
	c := qt.New(t)
	fs := afero.NewMemMapFs()
	c.Assert(afero.WriteFile(fs, "/file", nil, 0o644), qt.IsNil)

	c.Assert(fsutil.CopyTree(fs, "/file", "/dst"), qt.ErrorMatches, "copy tree /file: not a directory")
	c.Assert(fsutil.CopyTree(fs, "/missing", "/dst"), qt.ErrorMatches, "stat source tree failed: .*")
}

func TestCopyTreeKeepsDirectoryMetadata(t *testing.T) {
	c := qt.New(t)
	fs := afero.NewMemMapFs()
	stamp := time.Date(2023, 11, 5, 9, 0, 0, 0, time.UTC)

	c.Assert(afero.WriteFile(fs, "/src/.ssh/config", []byte("Host *"), 0o600), qt.IsNil)
	c.Assert(afero.WriteFile(fs, "/src/.profile", []byte("export X=1"), 0o644), qt.IsNil)
	c.Assert(fs.Chmod("/src/.ssh", 0o700), qt.IsNil)
	c.Assert(fs.Chtimes("/src/.ssh", stamp, stamp), qt.IsNil)
	c.Assert(fs.Chmod("/src", 0o750), qt.IsNil)
	c.Assert(fs.Chtimes("/src", stamp, stamp), qt.IsNil)

	c.Assert(fsutil.CopyTree(fs, "/src", "/home/u"), qt.IsNil)

	for _, path := range []string{"/home/u/.ssh", "/home/u"} {
		info, err := fs.Stat(path)
		c.Assert(err, qt.IsNil)
		c.Assert(info.IsDir(), qt.IsTrue, qt.Commentf(path))
		c.Assert(info.ModTime().Equal(stamp), qt.IsTrue, qt.Commentf("%s: %v", path, info.ModTime()))
	}
	info, err := fs.Stat("/home/u/.ssh")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Mode().Perm(), qt.Equals, os.FileMode(0o700))
	info, err = fs.Stat("/home/u")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Mode().Perm(), qt.Equals, os.FileMode(0o750))
}

func TestCopyTreeFollowsDirectorySymlinks(t *testing.T) {
	c := qt.New(t)
	fs := afero.NewOsFs()
	root := t.TempDir()
	src := filepath.Join(root, "dotfiles")
	shared := filepath.Join(root, "shared", "nvim")
	dst := filepath.Join(root, "home")

	c.Assert(os.MkdirAll(filepath.Join(src, ".config"), 0o755), qt.IsNil)
	c.Assert(os.MkdirAll(shared, 0o755), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(shared, "init.lua"), []byte("-- nvim"), 0o644), qt.IsNil)
	c.Assert(os.Symlink(shared, filepath.Join(src, ".config", "nvim")), qt.IsNil)

	c.Assert(fsutil.CopyTree(fs, src, dst), qt.IsNil)

	info, err := os.Lstat(filepath.Join(dst, ".config", "nvim"))
	c.Assert(err, qt.IsNil)
	c.Assert(info.IsDir(), qt.IsTrue)
	data, err := os.ReadFile(filepath.Join(dst, ".config", "nvim", "init.lua"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "-- nvim")
}

func TestCopyTreeRejectsSymlinkLoop(t *testing.T) {
	c := qt.New(t)
	fs := afero.NewOsFs()
	root := t.TempDir()
	src := filepath.Join(root, "dotfiles")

	c.Assert(os.MkdirAll(filepath.Join(src, "sub"), 0o755), qt.IsNil)
	c.Assert(os.Symlink("..", filepath.Join(src, "sub", "up")), qt.IsNil)

	err := fsutil.CopyTree(fs, src, filepath.Join(root, "home"))
	c.Assert(err, qt.ErrorMatches, `copy tree .*/sub/up: symlink loop`)
}
