package installer

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

var fixtureTime = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

type fixtureEntry struct {
	Name string
	Type byte
	Mode int64
	Link string
	Body string
}

func file(name string, mode int64, body string) fixtureEntry {
	return fixtureEntry{Name: name, Type: tar.TypeReg, Mode: mode, Body: body}
}

func dir(name string) fixtureEntry {
	return fixtureEntry{Name: name, Type: tar.TypeDir, Mode: 0o755}
}

func symlink(name, target string) fixtureEntry {
	return fixtureEntry{Name: name, Type: tar.TypeSymlink, Mode: 0o777, Link: target}
}

func tarBytes(c *qt.C, entries ...fixtureEntry) []byte {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Typeflag: e.Type,
			Mode:     e.Mode,
			Linkname: e.Link,
			ModTime:  fixtureTime,
			Format:   tar.FormatPAX,
		}
		if e.Type == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}
		c.Assert(tw.WriteHeader(hdr), qt.IsNil)
		if e.Type == tar.TypeReg {
			_, err := io.WriteString(tw, e.Body)
			c.Assert(err, qt.IsNil)
		}
	}
	c.Assert(tw.Close(), qt.IsNil)
	return buf.Bytes()
}

func gzipBytes(c *qt.C, data []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	c.Assert(err, qt.IsNil)
	c.Assert(w.Close(), qt.IsNil)
	return buf.Bytes()
}

func xzBytes(c *qt.C, data []byte) []byte {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	c.Assert(err, qt.IsNil)
	_, err = w.Write(data)
	c.Assert(err, qt.IsNil)
	c.Assert(w.Close(), qt.IsNil)
	return buf.Bytes()
}

func zstdBytes(c *qt.C, data []byte) []byte {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	c.Assert(err, qt.IsNil)
	_, err = w.Write(data)
	c.Assert(err, qt.IsNil)
	c.Assert(w.Close(), qt.IsNil)
	return buf.Bytes()
}

func zipBytes(c *qt.C, entries ...fixtureEntry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: fixtureTime}
		hdr.SetMode(0o644)
		if e.Mode != 0 {
			hdr.SetMode(fsMode(e.Mode))
		}
		w, err := zw.CreateHeader(hdr)
		c.Assert(err, qt.IsNil)
		_, err = io.WriteString(w, e.Body)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(zw.Close(), qt.IsNil)
	return buf.Bytes()
}

func fsMode(mode int64) fs.FileMode {
	return fs.FileMode(mode) & fs.ModePerm
}
