package installer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"setup-host/internal/logger"
)

// maxChecksumSize bounds how much of a checksum listing is read into memory.
const maxChecksumSize = 1 << 20

var (
	errChecksumMissing  = errors.New("no checksum listed for asset")
	errChecksumMismatch = errors.New("checksum mismatch")
)

func (i *Installer) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	resp, err := i.client().Do(req)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("HTTP status %d", resp.StatusCode)}
	}
	return resp, nil
}

// downloadFile streams url into destPath and returns the hex SHA-256 of the body.
func (i *Installer) downloadFile(ctx context.Context, url, destPath string) (string, error) {
	resp, err := i.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("[WARN] Failed to close response body: %v\n", cerr)
		}
	}()

	out, err := i.Fs.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", destPath, err)
	}

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, hash), resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", &DownloadError{URL: url, Err: err}
	}

	logger.Debug("[DEBUG] Downloaded %s (%s) to %s\n", filepath.Base(destPath), humanize.Bytes(uint64(n)), destPath)
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// fetchChecksum downloads a checksum listing and returns the digest for asset.
func (i *Installer) fetchChecksum(ctx context.Context, url, asset string) (string, error) {
	resp, err := i.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxChecksumSize))
	if err != nil {
		return "", &DownloadError{URL: url, Err: err}
	}

	digest, err := findChecksum(data, asset)
	if err != nil {
		return "", &DownloadError{URL: url, Err: err}
	}
	return digest, nil
}

// findChecksum parses sha256sum-style output ("<hex>  <name>" per line, name
// optionally prefixed with "*" or "./") and returns the digest for asset.
func findChecksum(data []byte, asset string) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !isSHA256(fields[0]) {
			continue
		}
		name := strings.TrimPrefix(fields[len(fields)-1], "*")
		if filepath.Base(name) == asset {
			return strings.ToLower(fields[0]), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: %s", errChecksumMissing, asset)
}

func isSHA256(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// tempDir creates a scratch directory; the returned cleanup removes it.
func (i *Installer) tempDir() (string, func(), error) {
	dir, err := afero.TempDir(i.Fs, "", "setup-host-")
	if err != nil {
		return "", nil, fmt.Errorf("create temporary directory: %w", err)
	}
	cleanup := func() {
		if err := i.Fs.RemoveAll(dir); err != nil {
			logger.Warn("[WARN] Failed to remove %s: %v\n", dir, err)
		}
	}
	return dir, cleanup, nil
}
