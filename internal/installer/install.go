package installer

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/afero"

	"setup-host/internal/fsutil"
	"setup-host/internal/logger"
	"setup-host/internal/release"
)

// Installer downloads the latest release archive of a Tool and places its
// files under the user's home directory.
type Installer struct {
	Fs       afero.Fs
	Client   *http.Client
	Resolver *release.Resolver
	Home     string

	// Platform reports the running OS/arch; DetectPlatform when nil.
	Platform func() (Platform, error)
}

// New returns an Installer for the real filesystem and network.
func New(home string) *Installer {
	return &Installer{
		Fs:       afero.NewOsFs(),
		Client:   http.DefaultClient,
		Resolver: release.NewResolver(),
		Home:     home,
		Platform: DetectPlatform,
	}
}

func (i *Installer) client() *http.Client {
	if i.Client == nil {
		return http.DefaultClient
	}
	return i.Client
}

// InstallLatest installs the newest release of tool. The platform is checked
// before any network access. The archive lives in a temporary directory that is
// removed on every return path. Files already copied are left in place on
// failure; a re-run overwrites them.
func (i *Installer) InstallLatest(ctx context.Context, tool Tool) error {
	detect := i.Platform
	if detect == nil {
		detect = DetectPlatform
	}
	platform, err := detect()
	if err != nil {
		return err
	}

	resolver := i.Resolver
	if resolver == nil {
		resolver = &release.Resolver{Client: i.client()}
	}
	tag, err := resolver.ResolveLatest(ctx, tool.LatestURL())
	if err != nil {
		return err
	}

	asset := tool.AssetName(tag, platform)
	assetURL := tool.DownloadURL(tag, asset)
	logger.Info("[INFO] Installing %s %s for %s/%s\n", tool.Name, tag, platform.OS, platform.Arch)

	tmpDir, cleanup, err := i.tempDir()
	if err != nil {
		return err
	}
	defer cleanup()

	archivePath := filepath.Join(tmpDir, asset)
	digest, err := i.downloadFile(ctx, assetURL, archivePath)
	if err != nil {
		return err
	}

	if tool.Checksums != "" {
		sumsURL := tool.DownloadURL(tag, tool.Checksums)
		want, err := i.fetchChecksum(ctx, sumsURL, asset)
		if err != nil {
			return err
		}
		if want != digest {
			return &DownloadError{URL: assetURL, Err: fmt.Errorf("%w: want %s, got %s", errChecksumMismatch, want, digest)}
		}
		logger.Debug("[DEBUG] Verified %s against %s\n", asset, tool.Checksums)
	}

	extractDir := filepath.Join(tmpDir, "extract")
	if err := i.Fs.MkdirAll(extractDir, 0o755); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}
	if err := extractArchive(i.Fs, archivePath, extractDir); err != nil {
		return err
	}

	for _, f := range tool.Files {
		src := filepath.Join(extractDir, filepath.FromSlash(f.Src))
		dst := filepath.Join(i.Home, filepath.FromSlash(f.Dst))
		if err := fsutil.CopyFile(i.Fs, src, dst); err != nil {
			return &ExtractionError{Archive: asset, Entry: f.Src, Err: err}
		}
		logger.Debug("[DEBUG] Copied %s to %s\n", f.Src, dst)
	}

	logger.Info("[INFO] Installed %s %s\n", tool.Name, tag)
	return nil
}
