// Package release discovers the latest published version of a project by
// following its "latest release" redirect and reading the tag from the final URL.
package release
