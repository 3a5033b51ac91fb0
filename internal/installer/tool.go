package installer

import (
	"fmt"
	"strings"

	"setup-host/internal/release"
)

// File is one path copied out of the extracted archive.
type File struct {
	Src string // relative to the extraction root
	Dst string // relative to the home directory
}

// Tool describes a project released as per-platform archives on a GitHub-style host.
type Tool struct {
	Name      string
	BaseURL   string // e.g. https://github.com
	Repo      string // org/repo
	Ext       string // archive extension including the dot
	Checksums string // checksum asset name, empty to skip verification
	Files     []File
}

// Mise is the toolchain manager installed when it is missing from the clean PATH.
var Mise = Tool{
	Name:      "mise",
	BaseURL:   "https://github.com",
	Repo:      "jdx/mise",
	Ext:       ".tar.gz",
	Checksums: "SHASUMS256.txt",
	Files: []File{
		{Src: "mise/bin/mise", Dst: ".local/bin/mise"},
		{Src: "mise/man/man1/mise.1", Dst: ".local/share/man/man1/mise.1"},
	},
}

func (t Tool) base() string {
	return strings.TrimRight(t.BaseURL, "/") + "/" + t.Repo + "/releases"
}

// LatestURL is the redirect endpoint that points at the newest release page.
func (t Tool) LatestURL() string {
	return t.base() + "/latest"
}

// AssetName returns {name}-{tag}-{os}-{arch}{ext}.
func (t Tool) AssetName(tag release.Tag, p Platform) string {
	return fmt.Sprintf("%s-%s-%s-%s%s", t.Name, tag, p.OS, p.Arch, t.Ext)
}

// DownloadURL returns the URL of a named asset attached to the release tag.
func (t Tool) DownloadURL(tag release.Tag, asset string) string {
	return fmt.Sprintf("%s/download/%s/%s", t.base(), tag, asset)
}
