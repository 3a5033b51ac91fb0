package release

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"setup-host/internal/logger"
)

// Tag is a release version identifier such as "v2025.1.0".
type Tag string

// ResolutionError means the latest-release redirect did not land on a tag page.
type ResolutionError struct {
	URL    string // the URL the redirect chain ended at
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve release tag from %s: %s", e.URL, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// MatchTagPath reports the tag encoded in a release page path of the form
// /{org}/{repo}/releases/tag/{tag}. The path is matched as written, with only
// one trailing slash tolerated; any other shape does not match.
func MatchTagPath(p string) (Tag, bool) {
	if !strings.HasPrefix(p, "/") {
		return "", false
	}
	p = strings.TrimSuffix(p, "/")
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	if len(parts) != 5 {
		return "", false
	}
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return "", false
		}
	}
	if parts[2] != "releases" || parts[3] != "tag" {
		return "", false
	}
	return Tag(parts[4]), true
}

// Resolver follows "latest release" redirects.
type Resolver struct {
	Client *http.Client
}

// NewResolver returns a Resolver using http.DefaultClient.
func NewResolver() *Resolver {
	return &Resolver{Client: http.DefaultClient}
}

// ResolveLatest requests latestURL, follows redirects without reading the body,
// and extracts the tag from the final URL. The final URL must stay on the same host.
func (r *Resolver) ResolveLatest(ctx context.Context, latestURL string) (Tag, error) {
	start, err := url.Parse(latestURL)
	if err != nil {
		return "", &ResolutionError{URL: latestURL, Reason: "invalid URL", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, latestURL, nil)
	if err != nil {
		return "", &ResolutionError{URL: latestURL, Reason: "invalid request", Err: err}
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	logger.Debug("[DEBUG] Resolving latest release via %s\n", latestURL)
	resp, err := client.Do(req)
	if err != nil {
		return "", &ResolutionError{URL: latestURL, Reason: "request failed", Err: err}
	}
	// Only the final URL matters; the page body is never read.
	_ = resp.Body.Close()

	final := resp.Request.URL
	if resp.StatusCode >= 400 {
		return "", &ResolutionError{URL: final.String(), Reason: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	if !strings.EqualFold(final.Host, start.Host) {
		return "", &ResolutionError{URL: final.String(), Reason: fmt.Sprintf("unexpected host %q", final.Host)}
	}

	tag, ok := MatchTagPath(final.Path)
	if !ok {
		return "", &ResolutionError{URL: final.String(), Reason: "path is not {org}/{repo}/releases/tag/{tag}"}
	}

	logger.Debug("[DEBUG] Latest release tag is %s\n", tag)
	return tag, nil
}
