// Package dockerrepo registers Docker's APT repository: it installs the
// repository signing key and writes a deb822 source file for this distribution.
package dockerrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/ini.v1"

	"setup-host/internal/logger"
)

const (
	DefaultBaseURL     = "https://download.docker.com/linux"
	DefaultKeyringPath = "/etc/apt/keyrings/docker.asc"
	DefaultSourcesPath = "/etc/apt/sources.list.d/docker.sources"
)

// DefaultOSReleasePaths are tried in order, as described by os-release(5).
var DefaultOSReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// Preparer writes the keyring and source descriptor. It needs root.
type Preparer struct {
	Fs             afero.Fs
	Client         *http.Client
	BaseURL        string
	KeyringPath    string
	SourcesPath    string
	OSReleasePaths []string
}

// New returns a Preparer for the real system.
func New() *Preparer {
	return &Preparer{
		Fs:             afero.NewOsFs(),
		Client:         http.DefaultClient,
		BaseURL:        DefaultBaseURL,
		KeyringPath:    DefaultKeyringPath,
		SourcesPath:    DefaultSourcesPath,
		OSReleasePaths: DefaultOSReleasePaths,
	}
}

// Prepare downloads the signing key and writes the source file.
func (p *Preparer) Prepare(ctx context.Context) error {
	osRelease, err := p.readOSRelease()
	if err != nil {
		return err
	}

	gpgURL, err := expand(p.BaseURL+"/${ID}/gpg", osRelease)
	if err != nil {
		return err
	}
	if err := p.downloadKey(ctx, gpgURL); err != nil {
		return err
	}

	content, err := expand(p.sourcesTemplate(), osRelease)
	if err != nil {
		return err
	}
	if err := p.Fs.MkdirAll(filepath.Dir(p.SourcesPath), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(p.SourcesPath), err)
	}
	if err := afero.WriteFile(p.Fs, p.SourcesPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p.SourcesPath, err)
	}

	logger.Info("[INFO] Docker repository written to %s\n", p.SourcesPath)
	return nil
}

func (p *Preparer) sourcesTemplate() string {
	lines := []string{
		"Types: deb",
		"URIs: " + p.BaseURL + "/${ID}",
		"Suites: ${VERSION_CODENAME}",
		"Components: stable",
		"Signed-By: " + p.KeyringPath,
		"",
	}
	return strings.Join(lines, "\n")
}

// readOSRelease parses the first os-release file that exists.
func (p *Preparer) readOSRelease() (map[string]string, error) {
	for _, path := range p.OSReleasePaths {
		data, err := afero.ReadFile(p.Fs, path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return ParseOSRelease(data)
	}
	return nil, fmt.Errorf("no os-release file found in %v", p.OSReleasePaths)
}

// ParseOSRelease parses os-release(5) KEY=value lines, unquoting values.
func ParseOSRelease(data []byte) (map[string]string, error) {
	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return nil, fmt.Errorf("parse os-release: %w", err)
	}
	return file.Section(ini.DefaultSection).KeysHash(), nil
}

func (p *Preparer) downloadKey(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP status %d", url, resp.StatusCode)
	}

	if err := p.Fs.MkdirAll(filepath.Dir(p.KeyringPath), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(p.KeyringPath), err)
	}
	out, err := p.Fs.OpenFile(p.KeyringPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", p.KeyringPath, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", p.KeyringPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("write %s: %w", p.KeyringPath, err)
	}

	logger.Debug("[DEBUG] Saved Docker signing key from %s to %s\n", url, p.KeyringPath)
	return nil
}

// expand substitutes ${KEY} references from vars. Unknown keys are an error.
func expand(template string, vars map[string]string) (string, error) {
	var missing []string
	out := os.Expand(template, func(key string) string {
		value, ok := vars[key]
		if !ok {
			missing = append(missing, key)
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("os-release has no %s", strings.Join(missing, ", "))
	}
	return out, nil
}
