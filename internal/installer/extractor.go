package installer

import (
	"archive/tar"    // For reading .tar archives
	"archive/zip"    // For reading .zip archives
	"compress/bzip2" // For reading .bz2 compressed data
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bodgit/sevenzip"              // For reading .7z archives
	"github.com/klauspost/compress/gzip"      // For reading .gz compressed data
	"github.com/klauspost/compress/zstd"      // For reading .zst compressed data
	"github.com/spf13/afero"
	"github.com/xi2/xz" // For reading .xz compressed data

	"setup-host/internal/logger"
)

// Reasons an entry is refused by the extraction filter.
var (
	ErrOutsideRoot   = errors.New("path escapes the extraction root")
	ErrAbsoluteLink  = errors.New("link target is absolute")
	ErrLinkOutside   = errors.New("link target escapes the extraction root")
	ErrThroughLink   = errors.New("path traverses an extracted symlink")
	ErrLinkedThrough = errors.New("symlink replaces a directory an earlier link target passes through")
	ErrLinkToLink    = errors.New("hardlink target is an extracted symlink")
	ErrSpecialFile   = errors.New("device, fifo or other special file")
	ErrUnsupportedFS = errors.New("filesystem cannot create symlinks")
)

type entryType int

const (
	typeDir entryType = iota
	typeReg
	typeSymlink
	typeHardlink
	typeSpecial
)

// entry is the format-independent view of one archive member.
type entry struct {
	name     string
	typ      entryType
	perm     fs.FileMode // permission bits as stored in the archive
	linkname string
	modTime  time.Time
}

// archiveFormat walks the members of an opened archive file.
type archiveFormat func(f afero.File, size int64, fn func(entry, io.Reader) error) error

// formatFor picks a reader from the archive's file name.
func formatFor(name string) (archiveFormat, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return tarFormat(func(r io.Reader) (io.ReadCloser, error) { return gzip.NewReader(r) }), nil
	case strings.HasSuffix(lower, ".tar.xz"):
		return tarFormat(func(r io.Reader) (io.ReadCloser, error) {
			xr, err := xz.NewReader(r, 0)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(xr), nil
		}), nil
	case strings.HasSuffix(lower, ".tar.zst"):
		return tarFormat(func(r io.Reader) (io.ReadCloser, error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return zr.IOReadCloser(), nil
		}), nil
	case strings.HasSuffix(lower, ".tar.bz2"):
		return tarFormat(func(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(bzip2.NewReader(r)), nil }), nil
	case strings.HasSuffix(lower, ".tar"):
		return tarFormat(func(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(r), nil }), nil
	case strings.HasSuffix(lower, ".zip"):
		return zipFormat, nil
	case strings.HasSuffix(lower, ".7z"):
		return sevenZipFormat, nil
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", name)
	}
}

// tarFormat handles tar and compressed tar variants
func tarFormat(decompress func(io.Reader) (io.ReadCloser, error)) archiveFormat {
	return func(f afero.File, _ int64, fn func(entry, io.Reader) error) error {
		rc, err := decompress(f)
		if err != nil {
			return err
		}
		defer rc.Close()

		tr := tar.NewReader(rc)
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				return nil // End of archive
			}
			if err != nil {
				return err
			}

			e := entry{
				name:     hdr.Name,
				perm:     fs.FileMode(hdr.Mode) & fs.ModePerm,
				linkname: hdr.Linkname,
				modTime:  hdr.ModTime,
			}
			switch hdr.Typeflag {
			case tar.TypeDir:
				e.typ = typeDir
			case tar.TypeReg:
				e.typ = typeReg
			case tar.TypeSymlink:
				e.typ = typeSymlink
			case tar.TypeLink:
				e.typ = typeHardlink
			default:
				e.typ = typeSpecial
			}
			if err := fn(e, tr); err != nil {
				return err
			}
		}
	}
}

// zipFormat extracts a .zip archive
func zipFormat(f afero.File, size int64, fn func(entry, io.Reader) error) error {
	r, err := zip.NewReader(f, size)
	if err != nil {
		return err
	}
	for _, zf := range r.File {
		if err := visitFileInfo(zf.Name, zf.FileInfo(), zf.Open, fn); err != nil {
			return err
		}
	}
	return nil
}

// sevenZipFormat handles .7z extraction using the sevenzip library
func sevenZipFormat(f afero.File, size int64, fn func(entry, io.Reader) error) error {
	r, err := sevenzip.NewReader(f, size)
	if err != nil {
		return fmt.Errorf("failed to open 7z archive: %w", err)
	}
	for _, sf := range r.File {
		if err := visitFileInfo(sf.Name, sf.FileInfo(), sf.Open, fn); err != nil {
			return err
		}
	}
	return nil
}

// visitFileInfo adapts members of random-access formats, where symlink targets
// are stored as the member's content.
func visitFileInfo(name string, info fs.FileInfo, open func() (io.ReadCloser, error), fn func(entry, io.Reader) error) error {
	mode := info.Mode()
	e := entry{name: name, perm: mode.Perm(), modTime: info.ModTime()}

	switch {
	case mode.IsDir():
		e.typ = typeDir
		return fn(e, nil)
	case mode&fs.ModeSymlink != 0:
		e.typ = typeSymlink
	case mode.IsRegular():
		e.typ = typeReg
	default:
		e.typ = typeSpecial
		return fn(e, nil)
	}

	rc, err := open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if e.typ == typeSymlink {
		target, err := io.ReadAll(io.LimitReader(rc, 4096))
		if err != nil {
			return err
		}
		e.linkname = string(target)
		return fn(e, nil)
	}
	return fn(e, rc)
}

// extractor writes archive members below root, enforcing the data-only filter:
// no escaping paths or links, no special files, no setuid/setgid/sticky bits
// and no group/other write permission.
type extractor struct {
	fs      afero.Fs
	root    string
	archive string
	links   map[string]bool // extracted symlinks, slash-separated and relative to root

	// via holds every directory an extracted symlink's target walks through.
	// None of them may later become a symlink, or the checked target would
	// no longer describe where the link points.
	via map[string]bool
}

// extractArchive unpacks src into dest, which must already exist.
func extractArchive(fsys afero.Fs, src, dest string) error {
	format, err := formatFor(src)
	if err != nil {
		return &ExtractionError{Archive: src, Err: err}
	}

	f, err := fsys.Open(src)
	if err != nil {
		return &ExtractionError{Archive: src, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &ExtractionError{Archive: src, Err: err}
	}

	x := &extractor{fs: fsys, root: dest, archive: src, links: make(map[string]bool), via: make(map[string]bool)}
	logger.Debug("[DEBUG] Extracting %s to %s\n", src, dest)

	if err := format(f, info.Size(), x.write); err != nil {
		var exErr *ExtractionError
		if errors.As(err, &exErr) {
			return err
		}
		return &ExtractionError{Archive: src, Err: err}
	}
	return nil
}

func (x *extractor) refuse(e entry, err error) error {
	return &ExtractionError{Archive: x.archive, Entry: e.name, Err: err}
}

// write applies the filter to one member and materializes it.
func (x *extractor) write(e entry, body io.Reader) error {
	if e.typ == typeSpecial {
		return x.refuse(e, ErrSpecialFile)
	}

	rel, err := x.relPath(e.name)
	if err != nil {
		return x.refuse(e, err)
	}
	if rel == "." {
		return nil // the archive root itself
	}
	target := filepath.Join(x.root, filepath.FromSlash(rel))

	// A member replacing an extracted symlink must not write through it
	if x.links[rel] {
		if err := x.fs.Remove(target); err != nil {
			return x.refuse(e, err)
		}
		delete(x.links, rel)
	}

	switch e.typ {
	case typeDir:
		if err := x.fs.MkdirAll(target, 0o755); err != nil {
			return x.refuse(e, err)
		}
		return nil

	case typeSymlink:
		if path.IsAbs(e.linkname) {
			return x.refuse(e, ErrAbsoluteLink)
		}
		_, walked, err := x.resolveLink(path.Dir(rel), e.linkname)
		if err != nil {
			return x.refuse(e, err)
		}
		if x.via[rel] || slices.Contains(walked, rel) {
			return x.refuse(e, ErrLinkedThrough)
		}
		linker, ok := x.fs.(afero.Linker)
		if !ok {
			return x.refuse(e, ErrUnsupportedFS)
		}
		if err := x.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return x.refuse(e, err)
		}
		if err := linker.SymlinkIfPossible(e.linkname, target); err != nil {
			return x.refuse(e, err)
		}
		x.links[rel] = true
		for _, dir := range walked {
			x.via[dir] = true
		}
		return nil

	case typeHardlink:
		if path.IsAbs(e.linkname) {
			return x.refuse(e, ErrAbsoluteLink)
		}
		linked, _, err := x.resolveLink(".", e.linkname)
		if err != nil {
			return x.refuse(e, err)
		}
		if x.links[linked] {
			return x.refuse(e, ErrLinkToLink)
		}
		src, err := x.fs.Open(filepath.Join(x.root, filepath.FromSlash(linked)))
		if err != nil {
			return x.refuse(e, err)
		}
		defer src.Close()
		return x.writeFile(e, target, src)

	default:
		return x.writeFile(e, target, body)
	}
}

func (x *extractor) writeFile(e entry, target string, body io.Reader) error {
	mode := filterFileMode(e.perm)

	if err := x.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return x.refuse(e, err)
	}
	out, err := x.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return x.refuse(e, err)
	}
	if body != nil {
		if _, err := io.Copy(out, body); err != nil {
			out.Close()
			return x.refuse(e, err)
		}
	}
	if err := out.Close(); err != nil {
		return x.refuse(e, err)
	}
	if err := x.fs.Chmod(target, mode); err != nil {
		return x.refuse(e, err)
	}
	if !e.modTime.IsZero() {
		if err := x.fs.Chtimes(target, e.modTime, e.modTime); err != nil {
			return x.refuse(e, err)
		}
	}
	return nil
}

// relPath normalizes a member name to a slash path relative to the root.
// Leading slashes are stripped; anything still escaping the root is refused.
func (x *extractor) relPath(name string) (string, error) {
	name = strings.TrimLeft(filepath.ToSlash(name), "/")
	if name == "" {
		return ".", nil
	}
	clean, _, err := x.resolve(".", name)
	if err != nil {
		return "", err
	}
	return clean, nil
}

// resolve walks target relative to dir component by component and also returns
// the intermediate directories it passed through. It fails when the walk leaves
// the root or passes through a symlink created by this extraction, since its
// real destination cannot be checked lexically.
func (x *extractor) resolve(dir, target string) (string, []string, error) {
	var stack []string
	if dir != "." && dir != "" {
		stack = strings.Split(dir, "/")
	}

	var walked []string
	parts := strings.Split(target, "/")
	for i, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return "", nil, ErrOutsideRoot
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, part)
			// The final component may itself be a link that is being replaced
			if i < len(parts)-1 {
				sofar := strings.Join(stack, "/")
				if x.links[sofar] {
					return "", nil, ErrThroughLink
				}
				walked = append(walked, sofar)
			}
		}
	}

	if len(stack) == 0 {
		return ".", walked, nil
	}
	return strings.Join(stack, "/"), walked, nil
}

// resolveLink is resolve for link targets.
func (x *extractor) resolveLink(dir, target string) (string, []string, error) {
	resolved, walked, err := x.resolve(dir, target)
	if errors.Is(err, ErrOutsideRoot) {
		return "", nil, ErrLinkOutside
	}
	return resolved, walked, err
}

// filterFileMode limits a regular file's permissions: at most 0755, always
// owner read/write, and no exec bits unless the owner has exec.
func filterFileMode(perm fs.FileMode) fs.FileMode {
	mode := perm & 0o755
	if mode&0o100 == 0 {
		mode &^= 0o111
	}
	return mode | 0o600
}
